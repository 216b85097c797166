package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// ReviewVerdict is the parsed shape of a Review/ReReview agent's stdout.
type ReviewVerdict struct {
	Verdict string `json:"verdict"` // approve | request_changes
	Comment string `json:"comment"`
}

const reviewSchemaHint = `{"verdict":"approve|request_changes","comment":"string"}`

// Review evaluates an open PR for the first time (dispatched from PENDING).
type Review struct {
	Item   work.PRItem
	Repo   work.Repo
	Coll   *Collaborators
	RepoID int64
}

func (t *Review) WorkID() work.ID { return t.Item.Identity }
func (t *Review) RepoName() string { return t.Repo.FullName }

func (t *Review) BeforeInvoke(ctx context.Context) (*AgentRequest, *TaskResult) {
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

	prompt := fmt.Sprintf("Review PR #%d (%q):\n\n%s", t.Item.Number, entity.Title, entity.Body)
	if issue, ok := work.SourceIssueNumber(entity.Body); ok {
		prompt += fmt.Sprintf("\n\nThis PR declares it closes issue #%d; review it against that issue's intent.", issue)
	}
	return &AgentRequest{
		WorkingDir: ws.Path,
		Prompt:     prompt,
		Session:    SessionOptions{OutputFormat: "json", JSONSchemaHint: reviewSchemaHint},
	}, nil
}

func (t *Review) AfterInvoke(ctx context.Context, resp AgentResponse) TaskResult {
	started := time.Now().Add(-resp.Duration)
	entry := logEntry(t.RepoID, work.KindPR, t.Item.Identity, "review", resp, started)
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

// applyReviewVerdict implements the shared Review/ReReview postflight
// rule: approve ends the item, request_changes loops it back into
// ReviewDone with an incremented iteration, subject to the configured
// iteration ceiling.
func applyReviewVerdict(ctx context.Context, client forge.Client, coll *Collaborators, repo work.Repo, item work.PRItem, resp AgentResponse, entry store.WorkLogEntry, repoID int64) TaskResult {
	result := TaskResult{WorkID: item.Identity, RepoName: repo.FullName, LogEntries: []store.WorkLogEntry{entry}}

	if resp.ExitCode != 0 {
		swapLabels(ctx, client, repo.FullName, item.Number, work.LabelWIP, "")
		result.Ops = []Op{RemoveOp(item.Identity)}
		result.Status = Failed
		result.Reason = "agent exited non-zero"
		return result
	}

	var verdict ReviewVerdict
	if err := json.Unmarshal([]byte(resp.Stdout), &verdict); err != nil {
		swapLabels(ctx, client, repo.FullName, item.Number, work.LabelWIP, "")
		result.Ops = []Op{RemoveOp(item.Identity)}
		result.Status = Failed
		result.Reason = "could not parse agent verdict"
		return result
	}

	switch verdict.Verdict {
	case "approve":
		swapLabels(ctx, client, repo.FullName, item.Number, work.LabelWIP, work.LabelDone)
		result.Ops = []Op{RemoveOp(item.Identity)}
		result.Status = Completed
	case "request_changes":
		nextIteration := item.Iteration + 1
		if nextIteration > coll.Cfg.IterationCeiling {
			// Ceiling reached: stop looping, surface to a human as done.
			_ = client.CreateComment(ctx, repo.FullName, item.Number, "Iteration ceiling reached; leaving for manual follow-up.")
			swapLabels(ctx, client, repo.FullName, item.Number, work.LabelWIP, work.LabelDone)
			result.Ops = []Op{RemoveOp(item.Identity)}
			result.Status = Completed
			return result
		}
		swapLabels(ctx, client, repo.FullName, item.Number, work.LabelWIP, work.LabelChangesRequested)
		if err := client.AddLabel(ctx, repo.FullName, item.Number, work.IterationLabel(nextIteration)); err != nil {
			result.Reason = fmt.Sprintf("adding iteration label: %v", err)
		}
		updated := item
		updated.Iteration = nextIteration
		updated.ReviewComment = verdict.Comment
		// The item sits in REVIEWING while the task runs; moving it to
		// REVIEW_DONE with a changed payload is a remove-then-push, since
		// Transit cannot rewrite the queued value.
		result.Ops = []Op{RemoveOp(item.Identity), PushPROp(work.PRReviewDone, updated)}
		result.Status = Completed
	default:
		swapLabels(ctx, client, repo.FullName, item.Number, work.LabelWIP, "")
		result.Ops = []Op{RemoveOp(item.Identity)}
		result.Status = Failed
		result.Reason = "unrecognized verdict: " + verdict.Verdict
	}
	return result
}

