package work

import "time"

// Repo identifies the repository a work item belongs to.
type Repo struct {
	ID       string
	FullName string
	CloneURL string
	Host     string // forge host override, empty means the provider default
}

// Item is implemented by every concrete queue payload (IssueItem, PRItem,
// MergeItem). It exposes just enough for the phased queue to index and
// order items without knowing their concrete shape.
type Item interface {
	WorkID() ID
	RepoFullName() string
}

// IssueItem is the payload carried through the issue queue's phases.
type IssueItem struct {
	Identity ID
	Repo     Repo
	Number   int
	Title    string

	// AnalysisReport holds the report text extracted from the
	// `<!-- autodev:analysis -->` comment once scan_approved has run.
	AnalysisReport string
	EnqueuedAt     time.Time
}

func (i IssueItem) WorkID() ID { return i.Identity }
func (i IssueItem) RepoFullName() string { return i.Repo.FullName }

// PRItem is the payload carried through the PR review/improve queue.
type PRItem struct {
	Identity ID
	Repo     Repo
	Number   int
	Title    string

	// Iteration is the current review round, starting at 0. Incremented
	// each time a `request_changes` verdict sends the PR back around.
	Iteration int

	// ReviewComment holds the latest review verdict text, handed to the
	// next Improve task as part of its prompt payload.
	ReviewComment string
	EnqueuedAt    time.Time
}

func (p PRItem) WorkID() ID { return p.Identity }
func (p PRItem) RepoFullName() string { return p.Repo.FullName }

// MergeItem is the payload carried through the merge queue.
type MergeItem struct {
	Identity ID
	Repo     Repo
	Number   int
	Title    string

	// ConflictFiles lists paths reported as conflicting by the first
	// merge attempt, handed to the conflict-resolution agent call.
	ConflictFiles []string
	EnqueuedAt    time.Time
}

func (m MergeItem) WorkID() ID { return m.Identity }
func (m MergeItem) RepoFullName() string { return m.Repo.FullName }
