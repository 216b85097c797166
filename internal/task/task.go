// Package task implements the task lifecycle: the six task variants
// (Analyze, Implement, Review, ReReview, Improve, Merge), each a
// preflight/agent/postflight triple whose postflight reports a declarative
// TaskResult for the engine to apply.
package task

import (
	"context"
	"time"

	"github.com/autodevhq/autodev/internal/agentproc"
	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/vcs"
	"github.com/autodevhq/autodev/internal/work"
)

// Collaborators bundles the injected services every task variant needs.
// None of them are globals; the engine constructs one instance at startup
// and hands it to every task it builds.
type Collaborators struct {
	Forge forge.Resolver
	VCS   *vcs.Manager
	Agent *agentproc.Launcher
	Cfg   config.DaemonConfig
}

// SessionOptions hints the agent launcher about the expected reply shape.
type SessionOptions struct {
	OutputFormat         string // "json" or "" for free text
	JSONSchemaHint       string
	AppendedSystemPrompt string
}

// AgentRequest is what before_invoke hands to the runner to pass to the
// agent launcher.
type AgentRequest struct {
	WorkingDir string
	Prompt     string
	Session    SessionOptions
}

// AgentResponse is what the runner hands back to after_invoke.
type AgentResponse struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Status is the terminal classification of a completed task.
type Status int

const (
	Completed Status = iota
	Skipped
	Failed
)

// OpKind tags which queue operation a Op performs.
type OpKind int

const (
	OpRemove OpKind = iota
	OpPushPR
	OpTransitPR
	OpTransitMerge
)

// Op is a declarative queue mutation the engine applies under its lock.
// Only the fields matching Kind are meaningful.
type Op struct {
	Kind       OpKind
	WorkID     work.ID
	PRItem     work.PRItem
	PRPhase    work.PRPhase
	PRFrom     work.PRPhase
	MergePhase work.MergePhase
	MergeFrom  work.MergePhase
}

func RemoveOp(id work.ID) Op { return Op{Kind: OpRemove, WorkID: id} }

// PushPROp enqueues a PR item, used when a task hands a PR to a later
// stage with an updated payload.
func PushPROp(phase work.PRPhase, item work.PRItem) Op {
	return Op{Kind: OpPushPR, PRPhase: phase, PRItem: item}
}

// TransitPROp moves id between PR phases without touching its payload.
func TransitPROp(id work.ID, from, to work.PRPhase) Op {
	return Op{Kind: OpTransitPR, WorkID: id, PRFrom: from, PRPhase: to}
}

// TransitMergeOp moves id between merge phases without touching its payload.
func TransitMergeOp(id work.ID, from, to work.MergePhase) Op {
	return Op{Kind: OpTransitMerge, WorkID: id, MergeFrom: from, MergePhase: to}
}

// TaskResult is what after_invoke (or a preflight skip) reports back to the
// runner and, through it, the engine.
type TaskResult struct {
	WorkID     work.ID
	RepoName   string
	Ops        []Op
	LogEntries []store.WorkLogEntry
	Status     Status
	Reason     string
}

// Task is the polymorphic unit the runner executes. Concrete variants live
// in analyze.go, implement.go, review.go, rereview.go, improve.go, merge.go.
type Task interface {
	WorkID() work.ID
	RepoName() string

	// BeforeInvoke runs preflight. If it returns a non-nil TaskResult the
	// item is being skipped and the agent is never invoked; req is nil in
	// that case.
	BeforeInvoke(ctx context.Context) (*AgentRequest, *TaskResult)

	// AfterInvoke runs postflight against a completed agent response.
	AfterInvoke(ctx context.Context, resp AgentResponse) TaskResult
}
