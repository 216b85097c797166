package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// AnalyzeVerdict is the parsed shape of an Analyze agent's stdout.
type AnalyzeVerdict struct {
	Verdict string `json:"verdict"` // wontfix | needs_clarification | ok_to_implement
	Summary string `json:"summary"`
}

// Analyze asks the agent whether and how an issue should be implemented.
type Analyze struct {
	Item   work.IssueItem
	Repo   work.Repo
	Coll   *Collaborators
	RepoID int64
}

func (t *Analyze) WorkID() work.ID { return t.Item.Identity }
func (t *Analyze) RepoName() string { return t.Repo.FullName }

func (t *Analyze) BeforeInvoke(ctx context.Context) (*AgentRequest, *TaskResult) {
	client, err := t.Coll.Forge.ClientFor(t.Repo.CloneURL, t.Repo.Host)
	if err != nil {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, fmt.Sprintf("resolving forge client: %v", err))
	}

	entity, err := client.GetEntity(ctx, t.Repo.FullName, t.Item.Number, false)
	if err != nil || entity.State != "open" {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, "issue no longer open")
	}

	ws, err := t.Coll.VCS.Checkout(ctx, t.Repo.FullName, taskID(work.KindIssue, t.Item.Number), t.Repo.CloneURL, client.AuthToken(), "")
	if err != nil {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, fmt.Sprintf("checkout failed: %v", err))
	}

	prompt := fmt.Sprintf("Analyze issue #%d (%q):\n\n%s", t.Item.Number, entity.Title, entity.Body)
	return &AgentRequest{
		WorkingDir: ws.Path,
		Prompt:     prompt,
		Session: SessionOptions{
			OutputFormat:   "json",
			JSONSchemaHint: `{"verdict":"wontfix|needs_clarification|ok_to_implement","summary":"string"}`,
		},
	}, nil
}

func (t *Analyze) AfterInvoke(ctx context.Context, resp AgentResponse) TaskResult {
	started := time.Now().Add(-resp.Duration)
	entry := logEntry(t.RepoID, work.KindIssue, t.Item.Identity, "analyze", resp, started)
	base := TaskResult{WorkID: t.Item.Identity, RepoName: t.Repo.FullName, LogEntries: []store.WorkLogEntry{entry}}

	client, err := t.Coll.Forge.ClientFor(t.Repo.CloneURL, t.Repo.Host)
	if err != nil {
		base.Status = Failed
		base.Reason = fmt.Sprintf("resolving forge client: %v", err)
		removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
		base.Ops = append(base.Ops, RemoveOp(t.Item.Identity))
		return base
	}

	if resp.ExitCode != 0 {
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, "")
		base.Ops = append(base.Ops, RemoveOp(t.Item.Identity))
		base.Status = Failed
		base.Reason = "agent exited non-zero"
		return base
	}

	var verdict AnalyzeVerdict
	if err := json.Unmarshal([]byte(resp.Stdout), &verdict); err != nil {
		// Structural parse failure: soft-downgrade, treat as no verdict.
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, "")
		base.Ops = append(base.Ops, RemoveOp(t.Item.Identity))
		base.Status = Failed
		base.Reason = "could not parse agent verdict"
		return base
	}

	switch verdict.Verdict {
	case "wontfix":
		_ = client.CreateComment(ctx, t.Repo.FullName, t.Item.Number, work.MarkerWontfix+"\n\n"+verdict.Summary)
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, work.LabelSkip)
		base.Ops = append(base.Ops, RemoveOp(t.Item.Identity))
		base.Status = Completed
	case "needs_clarification":
		_ = client.CreateComment(ctx, t.Repo.FullName, t.Item.Number, work.MarkerWaiting+"\n\n"+verdict.Summary)
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, work.LabelSkip)
		base.Ops = append(base.Ops, RemoveOp(t.Item.Identity))
		base.Status = Completed
	case "ok_to_implement":
		_ = client.CreateComment(ctx, t.Repo.FullName, t.Item.Number, work.MarkerAnalysis+"\n\n"+verdict.Summary)
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, work.LabelAnalyzed)
		base.Ops = append(base.Ops, RemoveOp(t.Item.Identity))
		base.Status = Completed
	default:
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, "")
		base.Ops = append(base.Ops, RemoveOp(t.Item.Identity))
		base.Status = Failed
		base.Reason = "unrecognized verdict: " + verdict.Verdict
	}
	return base
}
