// Package runner implements the task runner pool: bounded concurrent
// execution of tasks behind a global cap plus per-repo, per-kind sub-caps,
// grounded on the worker-pool submit/active-state pattern used by the
// pack's standalone orchestrator-polling reference.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/autodevhq/autodev/internal/agentproc"
	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/task"
	"github.com/autodevhq/autodev/internal/work"
)

// Runner multiplexes task execution across a small worker set.
type Runner struct {
	launcher *agentproc.Launcher

	globalSlots chan struct{}

	mu         sync.Mutex
	repoActive map[string]map[work.Kind]int

	perRepoIssueCap int
	perRepoPRCap    int

	results chan task.TaskResult
}

// New creates a Runner sized by cfg.Concurrency and cfg.PerRepo*Cap.
func New(launcher *agentproc.Launcher, cfg config.DaemonConfig) *Runner {
	cap := cfg.Concurrency
	if cap <= 0 {
		cap = 1
	}
	return &Runner{
		launcher:        launcher,
		globalSlots:     make(chan struct{}, cap),
		repoActive:      make(map[string]map[work.Kind]int),
		perRepoIssueCap: cfg.PerRepoIssueCap,
		perRepoPRCap:    cfg.PerRepoPRCap,
		results:         make(chan task.TaskResult, cap*4),
	}
}

// Spawn attempts to run t concurrently. It returns false without starting
// anything if the global or per-repo/kind cap is currently saturated; the
// caller (the Phase Engine) should leave the item for the next tick.
func (r *Runner) Spawn(ctx context.Context, t task.Task, kind work.Kind) bool {
	repo := t.RepoName()
	if !r.tryAcquire(repo, kind) {
		return false
	}

	go func() {
		defer r.release(repo, kind)
		r.results <- r.run(ctx, t)
	}()
	return true
}

func (r *Runner) tryAcquire(repo string, kind work.Kind) bool {
	select {
	case r.globalSlots <- struct{}{}:
	default:
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.repoActive[repo]
	if !ok {
		m = make(map[work.Kind]int)
		r.repoActive[repo] = m
	}
	limit := r.capFor(kind)
	if limit > 0 && m[kind] >= limit {
		<-r.globalSlots
		return false
	}
	m[kind]++
	return true
}

func (r *Runner) release(repo string, kind work.Kind) {
	<-r.globalSlots
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repoActive[repo][kind]--
}

func (r *Runner) capFor(kind work.Kind) int {
	switch kind {
	case work.KindIssue:
		return r.perRepoIssueCap
	case work.KindPR:
		return r.perRepoPRCap
	default:
		return 0 // merges share only the global cap
	}
}

// run executes the lifecycle: before_invoke -> agent.invoke -> after_invoke.
// Any panic is captured here and surfaced as a Failed result rather than
// crashing the runner.
func (r *Runner) run(ctx context.Context, t task.Task) (result task.TaskResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = task.TaskResult{
				WorkID: t.WorkID(), RepoName: t.RepoName(),
				Ops:    []task.Op{task.RemoveOp(t.WorkID())},
				Status: task.Failed, Reason: fmt.Sprintf("panic: %v", rec),
			}
		}
	}()

	req, skipResult := t.BeforeInvoke(ctx)
	if skipResult != nil {
		skipResult.WorkID = t.WorkID()
		skipResult.RepoName = t.RepoName()
		return *skipResult
	}

	resp, err := r.launcher.Invoke(ctx, agentproc.Request{
		WorkID:      string(t.WorkID()),
		WorkDir:     req.WorkingDir,
		Instruction: buildInstruction(req),
	})
	if err != nil {
		return task.TaskResult{
			WorkID: t.WorkID(), RepoName: t.RepoName(),
			Ops:    []task.Op{task.RemoveOp(t.WorkID())},
			Status: task.Failed, Reason: err.Error(),
		}
	}

	return t.AfterInvoke(ctx, task.AgentResponse{
		ExitCode: resp.ExitCode,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		Duration: resp.Duration,
	})
}

func buildInstruction(req *task.AgentRequest) string {
	instruction := req.Prompt
	if req.Session.AppendedSystemPrompt != "" {
		instruction += "\n\n" + req.Session.AppendedSystemPrompt
	}
	if req.Session.OutputFormat == "json" {
		instruction += "\n\nRespond with JSON only, matching this shape: " + req.Session.JSONSchemaHint
	}
	return instruction
}

// Collect drains every completed result currently buffered, without
// blocking.
func (r *Runner) Collect() []task.TaskResult {
	var out []task.TaskResult
	for {
		select {
		case res := <-r.results:
			out = append(out, res)
		default:
			return out
		}
	}
}

// Drain blocks, collecting completions, until every in-flight task has
// finished or timeout elapses. Used at shutdown; tasks still running past
// the deadline are abandoned (their eventual forge side effects are
// reconciled by the next daemon start's Recovery pass).
func (r *Runner) Drain(timeout time.Duration) []task.TaskResult {
	deadline := time.After(timeout)
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	var out []task.TaskResult
	for {
		select {
		case res := <-r.results:
			out = append(out, res)
		case <-deadline:
			return out
		case <-poll.C:
			if len(r.globalSlots) == 0 && len(r.results) == 0 {
				return out
			}
		}
	}
}
