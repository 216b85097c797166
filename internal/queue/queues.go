package queue

import "github.com/autodevhq/autodev/internal/work"

// Queues bundles the three phased queues the engine operates on. A single
// instance is shared by the Scanner, Recovery, Task Runner, and Phase
// Engine for the lifetime of the daemon.
type Queues struct {
	Issues *Queue[work.IssuePhase, work.IssueItem]
	PRs    *Queue[work.PRPhase, work.PRItem]
	Merges *Queue[work.MergePhase, work.MergeItem]
}

// NewQueues allocates one empty queue per kind.
func NewQueues() *Queues {
	return &Queues{
		Issues: New[work.IssuePhase, work.IssueItem](),
		PRs:    New[work.PRPhase, work.PRItem](),
		Merges: New[work.MergePhase, work.MergeItem](),
	}
}
