package task

import (
	"context"
	"fmt"
	"time"

	"github.com/autodevhq/autodev/internal/agentproc"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// Implement runs the implementation workflow for a READY issue. The agent
// is expected to open a PR; the item is removed regardless of outcome, the
// PR itself surfaces through the next scan.
type Implement struct {
	Item   work.IssueItem
	Repo   work.Repo
	Coll   *Collaborators
	RepoID int64

	branch string
	wsPath string
}

func (t *Implement) WorkID() work.ID { return t.Item.Identity }
func (t *Implement) RepoName() string { return t.Repo.FullName }

func (t *Implement) BeforeInvoke(ctx context.Context) (*AgentRequest, *TaskResult) {
	client, err := t.Coll.Forge.ClientFor(t.Repo.CloneURL, t.Repo.Host)
	if err != nil {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, fmt.Sprintf("resolving forge client: %v", err))
	}

	entity, err := client.GetEntity(ctx, t.Repo.FullName, t.Item.Number, false)
	if err != nil || entity.State != "open" {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, "issue no longer open")
	}

	t.branch = fmt.Sprintf("autodev/issue-%d", t.Item.Number)
	ws, err := t.Coll.VCS.CheckoutNewBranch(ctx, t.Repo.FullName, taskID(work.KindIssue, t.Item.Number), t.Repo.CloneURL, client.AuthToken(), "", t.branch)
	if err != nil {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, fmt.Sprintf("checkout failed: %v", err))
	}
	t.wsPath = ws.Path

	prompt := fmt.Sprintf(
		"Implement a fix for issue #%d (%q) on branch %s.\n\nAnalysis:\n%s",
		t.Item.Number, entity.Title, t.branch, t.Item.AnalysisReport,
	)
	return &AgentRequest{
		WorkingDir: ws.Path,
		Prompt:     prompt,
		Session:    SessionOptions{OutputFormat: "text"},
	}, nil
}

func (t *Implement) AfterInvoke(ctx context.Context, resp AgentResponse) TaskResult {
	started := time.Now().Add(-resp.Duration)
	entry := logEntry(t.RepoID, work.KindIssue, t.Item.Identity, "implement", resp, started)
	result := TaskResult{
		WorkID:     t.Item.Identity,
		RepoName:   t.Repo.FullName,
		LogEntries: []store.WorkLogEntry{entry},
		Ops:        []Op{RemoveOp(t.Item.Identity)},
	}

	if resp.ExitCode != 0 {
		removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
		result.Status = Failed
		result.Reason = "agent exited non-zero"
		return result
	}

	if err := agentproc.CommitAndPush(ctx, t.wsPath, t.branch, fmt.Sprintf("Fix #%d", t.Item.Number)); err != nil {
		removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
		result.Status = Failed
		result.Reason = fmt.Sprintf("commit/push failed: %v", err)
		return result
	}

	removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
	result.Status = Completed
	return result
}
