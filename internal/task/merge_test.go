package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/work"
)

// fakeResolver hands every caller the same client regardless of host.
type fakeResolver struct {
	client forge.Client
	err    error
}

func (f fakeResolver) ClientFor(cloneURL, hostOverride string) (forge.Client, error) {
	return f.client, f.err
}

var _ forge.Resolver = fakeResolver{}

func mergeTaskFor(client forge.Client) *Merge {
	return &Merge{
		Item: work.MergeItem{
			Identity: work.NewID(work.KindMerge, "org/repo", 7),
			Number:   7,
		},
		Repo:   work.Repo{FullName: "org/repo"},
		Coll:   &Collaborators{Forge: fakeResolver{client: client}},
		RepoID: 3,
	}
}

func TestMergeAfterInvokeCleanMergeCompletes(t *testing.T) {
	client := &fakeForgeClient{}
	mt := mergeTaskFor(client)

	result := mt.AfterInvoke(context.Background(), AgentResponse{ExitCode: 0, Stdout: "Fast-forward"})

	assert.Equal(t, Completed, result.Status)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, OpRemove, result.Ops[0].Kind)
	assert.Equal(t, 1, client.merged)
	assert.Contains(t, client.labelsRemoved, work.LabelWIP)
	assert.Contains(t, client.labelsAdded, work.LabelDone)
	require.Len(t, result.LogEntries, 1)
	assert.Equal(t, "merge", result.LogEntries[0].Command)
}

func TestMergeAfterInvokeFailureWithoutConflictSignatureFails(t *testing.T) {
	client := &fakeForgeClient{}
	mt := mergeTaskFor(client)

	result := mt.AfterInvoke(context.Background(), AgentResponse{ExitCode: 1, Stderr: "network unreachable"})

	assert.Equal(t, Failed, result.Status)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, OpRemove, result.Ops[0].Kind)
	assert.Equal(t, 0, client.merged)
	assert.Contains(t, client.labelsRemoved, work.LabelWIP)
	assert.NotContains(t, client.labelsAdded, work.LabelDone)
}

func TestMergeAfterInvokeForgeMergeErrorFails(t *testing.T) {
	client := &fakeForgeClient{mergeErr: errors.New("405 not mergeable")}
	mt := mergeTaskFor(client)

	result := mt.AfterInvoke(context.Background(), AgentResponse{ExitCode: 0})

	assert.Equal(t, Failed, result.Status)
	assert.Contains(t, result.Reason, "forge merge failed")
	assert.Contains(t, client.labelsRemoved, work.LabelWIP)
	assert.NotContains(t, client.labelsAdded, work.LabelDone)
}

func TestConflictPathsExtractsFilesFromGitOutput(t *testing.T) {
	stdout := `Auto-merging internal/a.go
CONFLICT (content): Merge conflict in internal/a.go
Auto-merging cmd/b.go
CONFLICT (content): Merge conflict in cmd/b.go
Automatic merge failed; fix conflicts and then commit the result.`

	files := conflictPaths(stdout)
	assert.Equal(t, []string{"internal/a.go", "cmd/b.go"}, files)
}

func TestConflictPathsIgnoresCleanOutput(t *testing.T) {
	assert.Empty(t, conflictPaths("Already up to date.\n"))
}
