// Package forge defines the consumed forge client contract: list open
// issues/pulls with pagination, add/remove a label, post a comment, and
// create an issue. Only GitHub and GitLab implementations are provided;
// the core depends solely on the Client interface.
package forge

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Entity is a forge issue or pull request as seen by the Scanner and
// Recovery. PR-specific fields are zero for issues.
type Entity struct {
	Number     int
	Title      string
	Body       string
	State      string // "open" or "closed"
	Author     string
	Labels     []string
	UpdatedAt  time.Time
	IsPR       bool
	HeadBranch string
	BaseBranch string
}

// ListOptions bounds and filters a forge listing.
type ListOptions struct {
	PerPage int
	Page    int
	// Label, if set, restricts the listing to entities carrying it
	// (used by scan_approved and scan_merges).
	Label string
}

// Client is the consumed Forge client contract. All operations are
// best-effort: errors are recoverable and never fatal to the caller.
type Client interface {
	Name() string
	AuthToken() string

	// ListIssues returns open issues (PRs excluded) for repoFullName.
	ListIssues(ctx context.Context, repoFullName string, opts ListOptions) ([]Entity, error)
	// ListPulls returns open pull requests for repoFullName.
	ListPulls(ctx context.Context, repoFullName string, opts ListOptions) ([]Entity, error)

	// AddLabel and RemoveLabel mutate an entity's label set. Best-effort:
	// callers log failures and proceed.
	AddLabel(ctx context.Context, repoFullName string, number int, label string) error
	RemoveLabel(ctx context.Context, repoFullName string, number int, label string) error

	// CreateComment posts a comment on an issue or PR.
	CreateComment(ctx context.Context, repoFullName string, number int, body string) error
	// ListComments returns comments on an entity, oldest first.
	ListComments(ctx context.Context, repoFullName string, number int) ([]string, error)

	// CreateIssue opens a new issue. No task in this module calls it.
	CreateIssue(ctx context.Context, repoFullName, title, body string) error

	// GetEntity re-reads a single entity's current state, used by
	// before_invoke preflight checks (e.g. "is the PR still open").
	GetEntity(ctx context.Context, repoFullName string, number int, isPR bool) (*Entity, error)

	// Merge attempts to merge a pull request.
	Merge(ctx context.Context, repoFullName string, number int) error
}

// DetectProvider guesses "github" or "gitlab" from a clone URL host.
func DetectProvider(cloneURL string) string {
	switch {
	case strings.Contains(cloneURL, "gitlab"):
		return "gitlab"
	default:
		return "github"
	}
}

// ErrNotFound is returned by GetEntity when the entity no longer exists.
var ErrNotFound = fmt.Errorf("forge: entity not found")
