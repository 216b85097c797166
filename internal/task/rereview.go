package task

import (
	"context"
	"fmt"
	"time"

	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// ReReview re-evaluates a PR that came back around from IMPROVED. It shares
// postflight logic with Review: approve ends the item, request_changes
// loops back to REVIEW_DONE subject to the iteration ceiling.
type ReReview struct {
	Item   work.PRItem
	Repo   work.Repo
	Coll   *Collaborators
	RepoID int64
}

func (t *ReReview) WorkID() work.ID { return t.Item.Identity }
func (t *ReReview) RepoName() string { return t.Repo.FullName }

func (t *ReReview) BeforeInvoke(ctx context.Context) (*AgentRequest, *TaskResult) {
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

	prompt := fmt.Sprintf("Re-review PR #%d (%q) after improvements:\n\n%s", t.Item.Number, entity.Title, entity.Body)
	return &AgentRequest{
		WorkingDir: ws.Path,
		Prompt:     prompt,
		Session:    SessionOptions{OutputFormat: "json", JSONSchemaHint: reviewSchemaHint},
	}, nil
}

func (t *ReReview) AfterInvoke(ctx context.Context, resp AgentResponse) TaskResult {
	started := time.Now().Add(-resp.Duration)
	entry := logEntry(t.RepoID, work.KindPR, t.Item.Identity, "rereview", resp, started)
	client, err := t.Coll.Forge.ClientFor(t.Repo.CloneURL, t.Repo.Host)
	if err != nil {
		removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
		return TaskResult{
			WorkID: t.Item.Identity, RepoName: t.Repo.FullName,
			LogEntries: []store.WorkLogEntry{entry}, Ops: []Op{RemoveOp(t.Item.Identity)},
			Status: Failed, Reason: fmt.Sprintf("resolving forge client: %v", err),
		}
	}
	return applyReviewVerdict(ctx, client, t.Coll, t.Repo, t.Item, resp, entry, t.RepoID)
}
