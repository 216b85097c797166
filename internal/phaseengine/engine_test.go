package phaseengine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/queue"
	"github.com/autodevhq/autodev/internal/runner"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/task"
	"github.com/autodevhq/autodev/internal/work"
)

func newTestEngine(t *testing.T) (*Engine, *queue.Queues) {
	t.Helper()
	db, err := store.NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "autodev.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	queues := queue.NewQueues()
	return New(queues, nil, store.NewStore(db), &task.Collaborators{}), queues
}

func TestApplyRemoveOpDropsFromAllQueues(t *testing.T) {
	e, queues := newTestEngine(t)
	id := work.NewID(work.KindIssue, "org/repo", 1)
	queues.Issues.Push(work.IssuePending, work.IssueItem{Identity: id, Number: 1, Repo: work.Repo{FullName: "org/repo"}})

	e.DrainTimeout([]task.TaskResult{{
		WorkID: id, RepoName: "org/repo",
		Ops:    []task.Op{task.RemoveOp(id)},
		Status: task.Completed,
	}})

	assert.False(t, queues.Issues.Contains(id))
}

func TestApplyPushPROpEnqueuesUpdatedItem(t *testing.T) {
	e, queues := newTestEngine(t)
	id := work.NewID(work.KindPR, "org/repo", 1)
	item := work.PRItem{Identity: id, Number: 1, Iteration: 2, Repo: work.Repo{FullName: "org/repo"}}

	e.DrainTimeout([]task.TaskResult{{
		WorkID: id, RepoName: "org/repo",
		Ops:    []task.Op{task.PushPROp(work.PRReviewDone, item)},
		Status: task.Completed,
	}})

	phase, ok := queues.PRs.PhaseOf(id)
	require.True(t, ok)
	assert.Equal(t, work.PRReviewDone, phase)
	items := queues.PRs.Iter(work.PRReviewDone)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Iteration)
}

func TestApplyUpdatesCountersByStatus(t *testing.T) {
	e, _ := newTestEngine(t)

	e.DrainTimeout([]task.TaskResult{
		{RepoName: "org/repo", Status: task.Completed},
		{RepoName: "org/repo", Status: task.Skipped},
		{RepoName: "org/repo", Status: task.Failed},
	})

	counters := e.Counters()["org/repo"]
	assert.Equal(t, 1, counters.Done)
	assert.Equal(t, 1, counters.Skip)
	assert.Equal(t, 1, counters.Failed)
}

func TestApplyPersistsLogEntries(t *testing.T) {
	e, _ := newTestEngine(t)

	e.DrainTimeout([]task.TaskResult{{
		RepoName: "org/repo",
		Status:   task.Completed,
		LogEntries: []store.WorkLogEntry{
			{RepoID: 1, Kind: "issue", WorkID: "issue:org/repo:1", WorkerID: "agent"},
		},
	}})

	entries, err := e.store.RecentWorkLog(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "issue:org/repo:1", entries[0].WorkID)
}

func TestActiveItemsReflectsAllThreeQueues(t *testing.T) {
	e, queues := newTestEngine(t)
	issueID := work.NewID(work.KindIssue, "org/repo", 1)
	prID := work.NewID(work.KindPR, "org/repo", 2)
	mergeID := work.NewID(work.KindMerge, "org/repo", 3)

	queues.Issues.Push(work.IssuePending, work.IssueItem{Identity: issueID, Number: 1, Repo: work.Repo{FullName: "org/repo"}})
	queues.PRs.Push(work.PRPending, work.PRItem{Identity: prID, Number: 2, Repo: work.Repo{FullName: "org/repo"}})
	queues.Merges.Push(work.MergePending, work.MergeItem{Identity: mergeID, Number: 3, Repo: work.Repo{FullName: "org/repo"}})

	items := e.ActiveItems()
	assert.Len(t, items, 3)
}

func TestCountersWIPFloorsAtZero(t *testing.T) {
	e, _ := newTestEngine(t)

	e.DrainTimeout([]task.TaskResult{{RepoName: "org/repo", Status: task.Completed}})

	assert.Equal(t, 0, e.Counters()["org/repo"].WIP, "WIP must never go negative when a result arrives without a matching dispatch")
}

func TestApplyTransitOpsMovePhaseWithoutPayloadChange(t *testing.T) {
	e, queues := newTestEngine(t)
	prID := work.NewID(work.KindPR, "org/repo", 4)
	mergeID := work.NewID(work.KindMerge, "org/repo", 5)
	queues.PRs.Push(work.PRImproving, work.PRItem{Identity: prID, Number: 4, Iteration: 1, Repo: work.Repo{FullName: "org/repo"}})
	queues.Merges.Push(work.MergeMerging, work.MergeItem{Identity: mergeID, Number: 5, Repo: work.Repo{FullName: "org/repo"}})

	e.DrainTimeout([]task.TaskResult{
		{
			WorkID: prID, RepoName: "org/repo", Status: task.Completed,
			Ops: []task.Op{task.TransitPROp(prID, work.PRImproving, work.PRImproved)},
		},
		{
			WorkID: mergeID, RepoName: "org/repo", Status: task.Completed,
			Ops: []task.Op{
				task.TransitMergeOp(mergeID, work.MergeMerging, work.MergeConflict),
				task.RemoveOp(mergeID),
			},
		},
	})

	phase, ok := queues.PRs.PhaseOf(prID)
	require.True(t, ok)
	assert.Equal(t, work.PRImproved, phase)
	items := queues.PRs.Iter(work.PRImproved)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Iteration, "transit must not rewrite the queued payload")

	assert.False(t, queues.Merges.Contains(mergeID), "the merge item ends removed after its trip through CONFLICT")
}

func TestDispatchTransitsItemIntoTransientPhase(t *testing.T) {
	e, queues := newTestEngine(t)
	e.runner = runner.New(nil, config.DaemonConfig{Concurrency: 1})

	id := work.NewID(work.KindIssue, "org/repo", 9)
	queues.Issues.Push(work.IssuePending, work.IssueItem{Identity: id, Number: 9, Repo: work.Repo{FullName: "org/repo"}})

	repo := store.Repository{ID: 1, FullName: "org/repo", URL: "https://github.com/org/repo.git", Enabled: true}
	e.Dispatch(context.Background(), []store.Repository{repo})

	phase, ok := queues.Issues.PhaseOf(id)
	require.True(t, ok, "a dispatched item must stay queue-visible")
	assert.Equal(t, work.IssueAnalyzing, phase)

	// The spawned task has no real collaborators and dies in preflight; its
	// Failed result must still carry the Remove that releases the item.
	results := e.runner.Drain(5 * time.Second)
	require.NotEmpty(t, results)
	e.DrainTimeout(results)
	assert.False(t, queues.Issues.Contains(id))
}

func TestActiveItemsIncludesTransientPhases(t *testing.T) {
	e, queues := newTestEngine(t)
	id := work.NewID(work.KindPR, "org/repo", 6)
	queues.PRs.Push(work.PRReviewing, work.PRItem{Identity: id, Number: 6, Repo: work.Repo{FullName: "org/repo"}})

	items := e.ActiveItems()
	require.Len(t, items, 1)
	assert.Equal(t, string(work.PRReviewing), items[0].Phase)
}
