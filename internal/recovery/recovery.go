// Package recovery implements label recovery: at each tick it reconciles the
// wip label universe on the forge against the in-memory queues, stripping
// wip from any entity the current daemon incarnation does not own.
package recovery

import (
	"context"
	"log/slog"

	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/queue"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// Reconciler strips orphaned wip labels left by a prior daemon incarnation.
type Reconciler struct {
	registry forge.Resolver
	queues   *queue.Queues
}

func New(registry forge.Resolver, queues *queue.Queues) *Reconciler {
	return &Reconciler{registry: registry, queues: queues}
}

// Reconcile lists every wip-labeled issue and PR for repo and removes the
// label from any entity whose work identity is absent from both queues.
func (r *Reconciler) Reconcile(ctx context.Context, repo store.Repository) error {
	client, err := r.registry.ClientFor(repo.URL, "")
	if err != nil {
		return err
	}

	issues, err := client.ListIssues(ctx, repo.FullName, forge.ListOptions{PerPage: 100, Label: work.LabelWIP})
	if err != nil {
		return err
	}
	for _, e := range issues {
		id := work.NewID(work.KindIssue, repo.FullName, e.Number)
		if r.queues.Issues.Contains(id) {
			continue
		}
		r.stripOrphan(ctx, client, repo.FullName, e.Number)
	}

	pulls, err := client.ListPulls(ctx, repo.FullName, forge.ListOptions{PerPage: 100, Label: work.LabelWIP})
	if err != nil {
		return err
	}
	for _, e := range pulls {
		prID := work.NewID(work.KindPR, repo.FullName, e.Number)
		mergeID := work.NewID(work.KindMerge, repo.FullName, e.Number)
		if r.queues.PRs.Contains(prID) || r.queues.Merges.Contains(mergeID) {
			continue
		}
		r.stripOrphan(ctx, client, repo.FullName, e.Number)
	}
	return nil
}

func (r *Reconciler) stripOrphan(ctx context.Context, client forge.Client, repoFullName string, number int) {
	if err := client.RemoveLabel(ctx, repoFullName, number, work.LabelWIP); err != nil {
		slog.Warn("stripping orphan wip label", "repo", repoFullName, "number", number, "error", err)
	}
}
