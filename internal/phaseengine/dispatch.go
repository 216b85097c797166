package phaseengine

import (
	"context"

	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/task"
	"github.com/autodevhq/autodev/internal/work"
)

// Dispatch attempts one new task per (repo, kind) per tick, in phase
// priority order, respecting the runner's global and per-repo caps. An
// item handed to the runner stays in its queue: it transits into the
// transient phase for its task (ANALYZING, REVIEWING, ...) so the queues
// remain the full picture of live work, and the head of a phase is only
// peeked, never re-enqueued, so a capacity rejection cannot reorder the
// FIFO. The spawned task owns a clone of the item's value; the queued
// original is released by the queue ops in the task's result.
func (e *Engine) Dispatch(ctx context.Context, repos []store.Repository) {
	for _, repo := range repos {
		wrepo := work.Repo{ID: repo.FullName, FullName: repo.FullName, CloneURL: repo.URL}
		e.dispatchIssue(ctx, repo, wrepo)
		e.dispatchPR(ctx, repo, wrepo)
		e.dispatchMerge(ctx, repo, wrepo)
	}
}

// dispatchIssue tries READY (Implement) before PENDING (Analyze).
func (e *Engine) dispatchIssue(ctx context.Context, repo store.Repository, wrepo work.Repo) {
	if item, ok := e.queues.Issues.Peek(work.IssueReady); ok {
		t := &task.Implement{Item: item, Repo: wrepo, Coll: e.coll, RepoID: repo.ID}
		if e.trySpawn(ctx, t, work.KindIssue, repo.FullName) {
			e.queues.Issues.Transit(item.Identity, work.IssueReady, work.IssueImplementing)
		}
		return
	}
	if item, ok := e.queues.Issues.Peek(work.IssuePending); ok {
		t := &task.Analyze{Item: item, Repo: wrepo, Coll: e.coll, RepoID: repo.ID}
		if e.trySpawn(ctx, t, work.KindIssue, repo.FullName) {
			e.queues.Issues.Transit(item.Identity, work.IssuePending, work.IssueAnalyzing)
		}
	}
}

// dispatchPR tries IMPROVED (ReReview), then REVIEW_DONE (Improve), then
// PENDING (Review). Both review variants run in the REVIEWING phase.
func (e *Engine) dispatchPR(ctx context.Context, repo store.Repository, wrepo work.Repo) {
	if item, ok := e.queues.PRs.Peek(work.PRImproved); ok {
		t := &task.ReReview{Item: item, Repo: wrepo, Coll: e.coll, RepoID: repo.ID}
		if e.trySpawn(ctx, t, work.KindPR, repo.FullName) {
			e.queues.PRs.Transit(item.Identity, work.PRImproved, work.PRReviewing)
		}
		return
	}
	if item, ok := e.queues.PRs.Peek(work.PRReviewDone); ok {
		t := &task.Improve{Item: item, Repo: wrepo, Coll: e.coll, RepoID: repo.ID}
		if e.trySpawn(ctx, t, work.KindPR, repo.FullName) {
			e.queues.PRs.Transit(item.Identity, work.PRReviewDone, work.PRImproving)
		}
		return
	}
	if item, ok := e.queues.PRs.Peek(work.PRPending); ok {
		t := &task.Review{Item: item, Repo: wrepo, Coll: e.coll, RepoID: repo.ID}
		if e.trySpawn(ctx, t, work.KindPR, repo.FullName) {
			e.queues.PRs.Transit(item.Identity, work.PRPending, work.PRReviewing)
		}
	}
}

func (e *Engine) dispatchMerge(ctx context.Context, repo store.Repository, wrepo work.Repo) {
	if item, ok := e.queues.Merges.Peek(work.MergePending); ok {
		t := &task.Merge{Item: item, Repo: wrepo, Coll: e.coll, RepoID: repo.ID}
		if e.trySpawn(ctx, t, work.KindMerge, repo.FullName) {
			e.queues.Merges.Transit(item.Identity, work.MergePending, work.MergeMerging)
		}
	}
}

func (e *Engine) trySpawn(ctx context.Context, t task.Task, kind work.Kind, repoFullName string) bool {
	if !e.runner.Spawn(ctx, t, kind) {
		return false
	}
	e.mu.Lock()
	e.counterFor(repoFullName).WIP++
	e.mu.Unlock()
	return true
}
