package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/task"
	"github.com/autodevhq/autodev/internal/work"
)

// fakeTask lets tests drive BeforeInvoke/AfterInvoke behavior directly,
// without an agent subprocess ever running.
type fakeTask struct {
	workID   work.ID
	repoName string

	skip       *task.TaskResult
	panicOn    string // "before" or "after"
	afterValue task.TaskResult
}

func (f *fakeTask) WorkID() work.ID { return f.workID }
func (f *fakeTask) RepoName() string { return f.repoName }
func (f *fakeTask) BeforeInvoke(ctx context.Context) (*task.AgentRequest, *task.TaskResult) {
	if f.panicOn == "before" {
		panic("boom")
	}
	if f.skip != nil {
		return nil, f.skip
	}
	return &task.AgentRequest{WorkingDir: "/tmp", Prompt: "do it"}, nil
}
func (f *fakeTask) AfterInvoke(ctx context.Context, resp task.AgentResponse) task.TaskResult {
	if f.panicOn == "after" {
		panic("boom")
	}
	return f.afterValue
}

var _ task.Task = (*fakeTask)(nil)

func TestRunSkippedTaskNeverInvokesAgent(t *testing.T) {
	r := New(nil, config.DaemonConfig{Concurrency: 1})
	ft := &fakeTask{
		workID: work.NewID(work.KindIssue, "org/repo", 1), repoName: "org/repo",
		skip: &task.TaskResult{Status: task.Skipped, Reason: "wontfix"},
	}

	result := r.run(context.Background(), ft)
	assert.Equal(t, task.Skipped, result.Status)
	assert.Equal(t, ft.workID, result.WorkID)
	assert.Equal(t, "org/repo", result.RepoName)
}

func TestRunRecoversPanicInBeforeInvoke(t *testing.T) {
	r := New(nil, config.DaemonConfig{Concurrency: 1})
	ft := &fakeTask{workID: work.NewID(work.KindIssue, "org/repo", 2), repoName: "org/repo", panicOn: "before"}

	result := r.run(context.Background(), ft)
	assert.Equal(t, task.Failed, result.Status)
	assert.Contains(t, result.Reason, "panic")
	require.Len(t, result.Ops, 1)
	assert.Equal(t, task.OpRemove, result.Ops[0].Kind, "a panicking task must still release its queued item")
}

func TestTryAcquireEnforcesGlobalCap(t *testing.T) {
	r := New(nil, config.DaemonConfig{Concurrency: 1})

	require.True(t, r.tryAcquire("org/repo", work.KindIssue))
	assert.False(t, r.tryAcquire("org/other", work.KindPR), "a saturated global cap must reject regardless of repo/kind")

	r.release("org/repo", work.KindIssue)
	assert.True(t, r.tryAcquire("org/other", work.KindPR), "releasing a slot must free capacity for a different repo/kind")
}

func TestTryAcquireEnforcesPerRepoIssueCap(t *testing.T) {
	r := New(nil, config.DaemonConfig{Concurrency: 4, PerRepoIssueCap: 1})

	require.True(t, r.tryAcquire("org/repo", work.KindIssue))
	assert.False(t, r.tryAcquire("org/repo", work.KindIssue), "a saturated per-repo issue cap must reject a second issue on the same repo")
	assert.True(t, r.tryAcquire("org/repo", work.KindPR), "the issue cap must not throttle a different kind on the same repo")
}

func TestTryAcquireMergesOnlyShareGlobalCap(t *testing.T) {
	r := New(nil, config.DaemonConfig{Concurrency: 4, PerRepoIssueCap: 1, PerRepoPRCap: 1})

	require.True(t, r.tryAcquire("org/repo", work.KindMerge))
	assert.True(t, r.tryAcquire("org/repo", work.KindMerge), "merges have no per-repo sub-cap, only the global one")
}

func TestCollectDrainsWithoutBlocking(t *testing.T) {
	r := New(nil, config.DaemonConfig{Concurrency: 2})
	r.results <- task.TaskResult{WorkID: work.NewID(work.KindIssue, "org/repo", 1), Status: task.Completed}

	out := r.Collect()
	require.Len(t, out, 1)
	assert.Equal(t, task.Completed, out[0].Status)
	assert.Empty(t, r.Collect(), "a second Collect on an empty channel returns nothing")
}

func TestDrainReturnsEarlyWhenIdle(t *testing.T) {
	r := New(nil, config.DaemonConfig{Concurrency: 1})
	start := time.Now()
	out := r.Drain(5 * time.Second)
	assert.Empty(t, out)
	assert.Less(t, time.Since(start), time.Second, "an idle runner must not wait out the full drain timeout")
}

func TestDrainCollectsBufferedResults(t *testing.T) {
	r := New(nil, config.DaemonConfig{Concurrency: 1})
	r.results <- task.TaskResult{WorkID: work.NewID(work.KindPR, "org/repo", 7), Status: task.Failed}

	out := r.Drain(time.Second)
	require.Len(t, out, 1)
	assert.Equal(t, task.Failed, out[0].Status)
}
