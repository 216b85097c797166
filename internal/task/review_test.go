package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// fakeForgeClient records label/comment calls for assertions without
// touching a real forge.
type fakeForgeClient struct {
	labelsAdded   []string
	labelsRemoved []string
	comments      []string
	mergeErr      error
	merged        int
}

func (f *fakeForgeClient) Name() string { return "fake" }
func (f *fakeForgeClient) AuthToken() string { return "" }
func (f *fakeForgeClient) ListIssues(ctx context.Context, repo string, opts forge.ListOptions) ([]forge.Entity, error) {
	return nil, nil
}
func (f *fakeForgeClient) ListPulls(ctx context.Context, repo string, opts forge.ListOptions) ([]forge.Entity, error) {
	return nil, nil
}
func (f *fakeForgeClient) AddLabel(ctx context.Context, repo string, number int, label string) error {
	f.labelsAdded = append(f.labelsAdded, label)
	return nil
}
func (f *fakeForgeClient) RemoveLabel(ctx context.Context, repo string, number int, label string) error {
	f.labelsRemoved = append(f.labelsRemoved, label)
	return nil
}
func (f *fakeForgeClient) CreateComment(ctx context.Context, repo string, number int, body string) error {
	f.comments = append(f.comments, body)
	return nil
}
func (f *fakeForgeClient) ListComments(ctx context.Context, repo string, number int) ([]string, error) {
	return nil, nil
}
func (f *fakeForgeClient) CreateIssue(ctx context.Context, repo, title, body string) error { return nil }
func (f *fakeForgeClient) GetEntity(ctx context.Context, repo string, number int, isPR bool) (*forge.Entity, error) {
	return nil, nil
}
func (f *fakeForgeClient) Merge(ctx context.Context, repo string, number int) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merged++
	return nil
}

var _ forge.Client = (*fakeForgeClient)(nil)

func TestApplyReviewVerdictApproveCompletesAndSwapsLabels(t *testing.T) {
	client := &fakeForgeClient{}
	coll := &Collaborators{Cfg: config.DaemonConfig{IterationCeiling: 5}}
	repo := work.Repo{FullName: "org/repo"}
	item := work.PRItem{Identity: work.NewID(work.KindPR, "org/repo", 1), Number: 1}
	resp := AgentResponse{ExitCode: 0, Stdout: `{"verdict":"approve","comment":"lgtm"}`}

	result := applyReviewVerdict(context.Background(), client, coll, repo, item, resp, store.WorkLogEntry{}, 7)

	assert.Equal(t, Completed, result.Status)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, OpRemove, result.Ops[0].Kind)
	assert.Contains(t, client.labelsRemoved, work.LabelWIP)
	assert.Contains(t, client.labelsAdded, work.LabelDone)
}

func TestApplyReviewVerdictRequestChangesLoopsBackWithIncrementedIteration(t *testing.T) {
	client := &fakeForgeClient{}
	coll := &Collaborators{Cfg: config.DaemonConfig{IterationCeiling: 5}}
	repo := work.Repo{FullName: "org/repo"}
	item := work.PRItem{Identity: work.NewID(work.KindPR, "org/repo", 1), Number: 1, Iteration: 1}
	resp := AgentResponse{ExitCode: 0, Stdout: `{"verdict":"request_changes","comment":"needs work"}`}

	result := applyReviewVerdict(context.Background(), client, coll, repo, item, resp, store.WorkLogEntry{}, 7)

	require.Equal(t, Completed, result.Status)
	require.Len(t, result.Ops, 2)
	assert.Equal(t, OpRemove, result.Ops[0].Kind)
	assert.Equal(t, OpPushPR, result.Ops[1].Kind)
	assert.Equal(t, work.PRReviewDone, result.Ops[1].PRPhase)
	assert.Equal(t, 2, result.Ops[1].PRItem.Iteration)
	assert.Contains(t, client.labelsAdded, work.IterationLabel(2))
	assert.Empty(t, client.comments)
}

func TestApplyReviewVerdictStopsAtIterationCeiling(t *testing.T) {
	client := &fakeForgeClient{}
	coll := &Collaborators{Cfg: config.DaemonConfig{IterationCeiling: 2}}
	repo := work.Repo{FullName: "org/repo"}
	item := work.PRItem{Identity: work.NewID(work.KindPR, "org/repo", 1), Number: 1, Iteration: 2}
	resp := AgentResponse{ExitCode: 0, Stdout: `{"verdict":"request_changes","comment":"still broken"}`}

	result := applyReviewVerdict(context.Background(), client, coll, repo, item, resp, store.WorkLogEntry{}, 7)

	assert.Equal(t, Completed, result.Status)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, OpRemove, result.Ops[0].Kind)
	assert.Contains(t, client.labelsAdded, work.LabelDone)
	assert.NotEmpty(t, client.comments)
}

func TestApplyReviewVerdictAgentFailureFailsTask(t *testing.T) {
	client := &fakeForgeClient{}
	coll := &Collaborators{Cfg: config.DaemonConfig{IterationCeiling: 5}}
	repo := work.Repo{FullName: "org/repo"}
	item := work.PRItem{Identity: work.NewID(work.KindPR, "org/repo", 1), Number: 1}
	resp := AgentResponse{ExitCode: 1}

	result := applyReviewVerdict(context.Background(), client, coll, repo, item, resp, store.WorkLogEntry{}, 7)

	assert.Equal(t, Failed, result.Status)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, OpRemove, result.Ops[0].Kind)
}
