// Package vcs adapts go-git into the workspace operations the runner needs:
// clone a repository into a per-task workspace (cleared and cloned afresh on
// every checkout; an existing workspace is never pulled or fast-forwarded),
// and create/remove a branch checkout. go-git has no porcelain
// equivalent of `git worktree`, so a "worktree" here is a fresh shallow
// clone scoped to one work item rather than a linked worktree of a shared
// object store.
package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Workspace describes a local checkout ready for an agent to operate in.
type Workspace struct {
	Path   string
	Owner  string
	Repo   string
	Branch string
	Commit string
}

// Manager checks out and tears down per-task workspaces under a root
// directory (config.Home()+"/workspaces").
type Manager struct {
	root string
}

// NewManager creates a Manager rooted at dir. dir is created on first use.
func NewManager(dir string) *Manager {
	return &Manager{root: dir}
}

// Checkout creates a fresh shallow clone of repoURL at branch (HEAD if
// branch is empty) at {root}/{sanitized-repo}/{taskID}, so concurrent
// tasks on the same repository never share a working tree.
func (m *Manager) Checkout(ctx context.Context, repoFullName, taskID, repoURL, token, branch string) (*Workspace, error) {
	dest := filepath.Join(m.root, sanitizeRepo(repoFullName), taskID)
	if err := os.RemoveAll(dest); err != nil {
		return nil, fmt.Errorf("clearing workspace %s: %w", dest, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace parent: %w", err)
	}

	opts := &gogit.CloneOptions{
		URL:   repoURL,
		Depth: 1,
	}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "autodev", Password: token}
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	slog.Debug("checking out workspace", "task_id", taskID, "url", repoURL, "branch", branch, "dest", dest)

	repo, err := gogit.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		os.RemoveAll(dest)
		return nil, fmt.Errorf("cloning %s: %w", repoURL, err)
	}

	head, err := repo.Head()
	if err != nil {
		os.RemoveAll(dest)
		return nil, fmt.Errorf("resolving HEAD of %s: %w", repoURL, err)
	}

	resolvedBranch := head.Name().Short()
	if resolvedBranch == "" {
		resolvedBranch = branch
	}
	owner, name := ParseOwnerRepo(repoURL)

	return &Workspace{
		Path:   dest,
		Owner:  owner,
		Repo:   name,
		Branch: resolvedBranch,
		Commit: head.Hash().String(),
	}, nil
}

// CheckoutNewBranch clones the base branch and creates branchName off HEAD,
// used by the Implement task to start a fix branch.
func (m *Manager) CheckoutNewBranch(ctx context.Context, repoFullName, taskID, repoURL, token, baseBranch, branchName string) (*Workspace, error) {
	ws, err := m.Checkout(ctx, repoFullName, taskID, repoURL, token, baseBranch)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.PlainOpen(ws.Path)
	if err != nil {
		return nil, fmt.Errorf("opening workspace %s: %w", ws.Path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree of %s: %w", ws.Path, err)
	}
	ref := plumbing.NewBranchReferenceName(branchName)
	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: ref, Create: true}); err != nil {
		return nil, fmt.Errorf("creating branch %s: %w", branchName, err)
	}
	ws.Branch = branchName
	return ws, nil
}

// Remove deletes a workspace directory. Best-effort; callers log failures.
func (m *Manager) Remove(ws *Workspace) error {
	if ws == nil {
		return nil
	}
	if err := os.RemoveAll(ws.Path); err != nil {
		return fmt.Errorf("removing workspace %s: %w", ws.Path, err)
	}
	return nil
}

// ParseOwnerRepo extracts owner/name from an HTTPS or SSH git remote URL.
func ParseOwnerRepo(repoURL string) (owner, repo string) {
	u := strings.TrimSuffix(repoURL, ".git")

	if strings.Contains(u, "://") {
		parts := strings.Split(u, "/")
		if len(parts) >= 2 {
			return parts[len(parts)-2], parts[len(parts)-1]
		}
	}

	if idx := strings.Index(u, ":"); idx != -1 {
		path := u[idx+1:]
		parts := strings.SplitN(path, "/", 2)
		if len(parts) == 2 {
			return parts[0], parts[1]
		}
	}

	return "", u
}

// sanitizeRepo maps an "owner/repo" full name to its workspace directory
// component.
func sanitizeRepo(fullName string) string {
	return strings.ReplaceAll(fullName, "/", "-")
}
