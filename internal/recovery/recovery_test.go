package recovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/queue"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// fakeClient returns a fixed set of wip-labeled issues/pulls and records
// every RemoveLabel call for assertions.
type fakeClient struct {
	issues        []forge.Entity
	pulls         []forge.Entity
	labelsRemoved []int
}

func (f *fakeClient) Name() string      { return "fake" }
func (f *fakeClient) AuthToken() string { return "" }
func (f *fakeClient) ListIssues(ctx context.Context, repo string, opts forge.ListOptions) ([]forge.Entity, error) {
	return f.issues, nil
}
func (f *fakeClient) ListPulls(ctx context.Context, repo string, opts forge.ListOptions) ([]forge.Entity, error) {
	return f.pulls, nil
}
func (f *fakeClient) AddLabel(ctx context.Context, repo string, number int, label string) error {
	return nil
}
func (f *fakeClient) RemoveLabel(ctx context.Context, repo string, number int, label string) error {
	f.labelsRemoved = append(f.labelsRemoved, number)
	return nil
}
func (f *fakeClient) CreateComment(ctx context.Context, repo string, number int, body string) error {
	return nil
}
func (f *fakeClient) ListComments(ctx context.Context, repo string, number int) ([]string, error) {
	return nil, nil
}
func (f *fakeClient) CreateIssue(ctx context.Context, repo, title, body string) error { return nil }
func (f *fakeClient) GetEntity(ctx context.Context, repo string, number int, isPR bool) (*forge.Entity, error) {
	return nil, nil
}
func (f *fakeClient) Merge(ctx context.Context, repo string, number int) error { return nil }

var _ forge.Client = (*fakeClient)(nil)

// fakeResolver always resolves to the same client, regardless of repo.
type fakeResolver struct{ client forge.Client }

func (f fakeResolver) ClientFor(cloneURL, hostOverride string) (forge.Client, error) {
	return f.client, nil
}

func TestReconcileStripsOrphanIssueWip(t *testing.T) {
	client := &fakeClient{issues: []forge.Entity{{Number: 5}}}
	queues := queue.NewQueues() // empty: #5 is not tracked by this incarnation
	r := New(fakeResolver{client}, queues)

	err := r.Reconcile(context.Background(), store.Repository{FullName: "org/repo"})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, client.labelsRemoved)
}

func TestReconcileLeavesOwnedIssueAlone(t *testing.T) {
	client := &fakeClient{issues: []forge.Entity{{Number: 5}}}
	queues := queue.NewQueues()
	id := work.NewID(work.KindIssue, "org/repo", 5)
	queues.Issues.Push(work.IssuePending, work.IssueItem{Identity: id, Number: 5, Repo: work.Repo{FullName: "org/repo"}})

	r := New(fakeResolver{client}, queues)
	err := r.Reconcile(context.Background(), store.Repository{FullName: "org/repo"})
	require.NoError(t, err)
	assert.Empty(t, client.labelsRemoved)
}

func TestReconcileLeavesPROwnedByEitherQueueAlone(t *testing.T) {
	client := &fakeClient{pulls: []forge.Entity{{Number: 9}}}
	queues := queue.NewQueues()
	mergeID := work.NewID(work.KindMerge, "org/repo", 9)
	queues.Merges.Push(work.MergePending, work.MergeItem{Identity: mergeID, Number: 9, Repo: work.Repo{FullName: "org/repo"}})

	r := New(fakeResolver{client}, queues)
	err := r.Reconcile(context.Background(), store.Repository{FullName: "org/repo"})
	require.NoError(t, err)
	assert.Empty(t, client.labelsRemoved, "a PR owned by the merge queue must not have wip stripped")
}

func TestReconcileStripsOrphanPRWip(t *testing.T) {
	client := &fakeClient{pulls: []forge.Entity{{Number: 11}}}
	queues := queue.NewQueues()

	r := New(fakeResolver{client}, queues)
	err := r.Reconcile(context.Background(), store.Repository{FullName: "org/repo"})
	require.NoError(t, err)
	assert.Equal(t, []int{11}, client.labelsRemoved)
}
