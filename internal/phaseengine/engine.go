// Package phaseengine implements the phase engine, the only component
// that mutates the phased queues: it drains completed tasks, applies their
// queue operations, and dispatches new tasks in strict phase priority order
// under a single mutex held only for synchronous bookkeeping.
package phaseengine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/autodevhq/autodev/internal/notify"
	"github.com/autodevhq/autodev/internal/queue"
	"github.com/autodevhq/autodev/internal/runner"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/task"
	"github.com/autodevhq/autodev/internal/work"
)

// Counters are the per-repo rolling totals exposed to status snapshots.
type Counters struct {
	WIP    int
	Done   int
	Skip   int
	Failed int
}

// ActiveItem is the snapshot-facing view of one queued work item.
type ActiveItem struct {
	WorkID   string
	Kind     string
	RepoName string
	Number   int
	Title    string
	Phase    string
}

// Engine owns the queues, the runner, and the per-repo counters.
type Engine struct {
	queues *queue.Queues
	runner *runner.Runner
	store  *store.Store
	coll   *task.Collaborators

	mu       sync.Mutex
	counters map[string]*Counters

	notifier *notify.Dispatcher
}

func New(queues *queue.Queues, r *runner.Runner, st *store.Store, coll *task.Collaborators) *Engine {
	return &Engine{queues: queues, runner: r, store: st, coll: coll, counters: make(map[string]*Counters)}
}

// SetNotifier attaches an outbound notification dispatcher. Optional; a nil
// or unconfigured dispatcher silences failure events.
func (e *Engine) SetNotifier(n *notify.Dispatcher) { e.notifier = n }

func (e *Engine) counterFor(repo string) *Counters {
	c, ok := e.counters[repo]
	if !ok {
		c = &Counters{}
		e.counters[repo] = c
	}
	return c
}

// Drain collects every completed task result and applies its queue
// operations and log records.
func (e *Engine) Drain(ctx context.Context) {
	for _, result := range e.runner.Collect() {
		e.apply(ctx, result)
		e.notifyFailure(ctx, result)
	}
}

// DrainTimeout is the shutdown variant: it applies the results that the
// runner's bounded Drain already collected and notifies their failures. It
// does not wait itself; tasks still running are not represented here.
func (e *Engine) DrainTimeout(results []task.TaskResult) {
	for _, result := range results {
		e.apply(context.Background(), result)
		e.notifyFailure(context.Background(), result)
	}
}

// notifyFailure fires a task_failed event. Runs outside apply's critical
// section: notification delivery does HTTP and must not hold the lock.
func (e *Engine) notifyFailure(ctx context.Context, result task.TaskResult) {
	if e.notifier == nil || !e.notifier.IsAnyConfigured() || result.Status != task.Failed {
		return
	}
	e.notifier.Notify(ctx, notify.Event{
		Type:     "task_failed",
		Title:    fmt.Sprintf("task failed: %s", result.WorkID),
		Body:     result.Reason,
		RepoName: result.RepoName,
	})
}

func (e *Engine) apply(ctx context.Context, result task.TaskResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, op := range result.Ops {
		switch op.Kind {
		case task.OpRemove:
			e.queues.Issues.Remove(op.WorkID)
			e.queues.PRs.Remove(op.WorkID)
			e.queues.Merges.Remove(op.WorkID)
		case task.OpPushPR:
			e.queues.PRs.Push(op.PRPhase, op.PRItem)
		case task.OpTransitPR:
			e.queues.PRs.Transit(op.WorkID, op.PRFrom, op.PRPhase)
		case task.OpTransitMerge:
			e.queues.Merges.Transit(op.WorkID, op.MergeFrom, op.MergePhase)
		}
	}

	for _, entry := range result.LogEntries {
		if err := e.store.AppendWorkLog(ctx, entry); err != nil {
			slog.Error("appending work log", "work_id", result.WorkID, "error", err)
		}
	}

	c := e.counterFor(result.RepoName)
	if c.WIP > 0 {
		c.WIP--
	}
	switch result.Status {
	case task.Completed:
		c.Done++
	case task.Skipped:
		c.Skip++
	case task.Failed:
		c.Failed++
	}
}

// ActiveItems returns exactly the set of (work_id, phase) pairs currently
// in the queues. Items being worked by a task sit in their transient phase
// (ANALYZING, REVIEWING, ...), so the snapshot shows them too.
func (e *Engine) ActiveItems() []ActiveItem {
	var out []ActiveItem
	for _, p := range work.IssuePhases {
		for _, it := range e.queues.Issues.Iter(p) {
			out = append(out, ActiveItem{WorkID: string(it.Identity), Kind: string(work.KindIssue), RepoName: it.Repo.FullName, Number: it.Number, Title: it.Title, Phase: string(p)})
		}
	}
	for _, p := range work.PRPhases {
		for _, it := range e.queues.PRs.Iter(p) {
			out = append(out, ActiveItem{WorkID: string(it.Identity), Kind: string(work.KindPR), RepoName: it.Repo.FullName, Number: it.Number, Title: it.Title, Phase: string(p)})
		}
	}
	for _, p := range work.MergePhases {
		for _, it := range e.queues.Merges.Iter(p) {
			out = append(out, ActiveItem{WorkID: string(it.Identity), Kind: string(work.KindMerge), RepoName: it.Repo.FullName, Number: it.Number, Title: it.Title, Phase: string(p)})
		}
	}
	return out
}

// Counters returns a snapshot copy of every repo's rolling counters.
func (e *Engine) Counters() map[string]Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]Counters, len(e.counters))
	for repo, c := range e.counters {
		out[repo] = *c
	}
	return out
}
