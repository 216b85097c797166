package task

import (
	"context"
	"fmt"
	"time"

	"github.com/autodevhq/autodev/internal/agentproc"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// Improve asks the agent to apply a requested-changes review comment to a
// PR in REVIEW_DONE. On success the item transits to IMPROVED; on failure
// wip is stripped and the item is removed.
type Improve struct {
	Item   work.PRItem
	Repo   work.Repo
	Coll   *Collaborators
	RepoID int64

	wsPath string
	branch string
}

func (t *Improve) WorkID() work.ID { return t.Item.Identity }
func (t *Improve) RepoName() string { return t.Repo.FullName }

func (t *Improve) BeforeInvoke(ctx context.Context) (*AgentRequest, *TaskResult) {
	client, err := t.Coll.Forge.ClientFor(t.Repo.CloneURL, t.Repo.Host)
	if err != nil {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, fmt.Sprintf("resolving forge client: %v", err))
	}
	entity, err := client.GetEntity(ctx, t.Repo.FullName, t.Item.Number, true)
	if err != nil || entity.State != "open" {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, "PR no longer open")
	}

	ws, err := t.Coll.VCS.Checkout(ctx, t.Repo.FullName, taskID(work.KindPR, t.Item.Number), t.Repo.CloneURL, client.AuthToken(), entity.HeadBranch)
	if err != nil {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, fmt.Sprintf("checkout failed: %v", err))
	}
	t.wsPath = ws.Path
	t.branch = entity.HeadBranch

	prompt := fmt.Sprintf("Apply the following review feedback to PR #%d:\n\n%s", t.Item.Number, t.Item.ReviewComment)
	return &AgentRequest{
		WorkingDir: ws.Path,
		Prompt:     prompt,
		Session:    SessionOptions{OutputFormat: "text"},
	}, nil
}

func (t *Improve) AfterInvoke(ctx context.Context, resp AgentResponse) TaskResult {
	started := time.Now().Add(-resp.Duration)
	entry := logEntry(t.RepoID, work.KindPR, t.Item.Identity, "improve", resp, started)
	result := TaskResult{WorkID: t.Item.Identity, RepoName: t.Repo.FullName, LogEntries: []store.WorkLogEntry{entry}}

	if resp.ExitCode != 0 {
		removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
		result.Ops = []Op{RemoveOp(t.Item.Identity)}
		result.Status = Failed
		result.Reason = "agent exited non-zero"
		return result
	}

	if err := agentproc.CommitAndPush(ctx, t.wsPath, t.branch, "Address review feedback"); err != nil {
		removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
		result.Ops = []Op{RemoveOp(t.Item.Identity)}
		result.Status = Failed
		result.Reason = fmt.Sprintf("commit/push failed: %v", err)
		return result
	}

	result.Ops = []Op{TransitPROp(t.Item.Identity, work.PRImproving, work.PRImproved)}
	result.Status = Completed
	return result
}
