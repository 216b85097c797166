package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/autodevhq/autodev/internal/agentproc"
	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// Merge drives a PR through the merge queue. The first agent call attempts
// the merge locally; if its output carries a conflict signature, a second
// call asks the agent to resolve the conflicts before the forge-side merge
// is performed.
type Merge struct {
	Item   work.MergeItem
	Repo   work.Repo
	Coll   *Collaborators
	RepoID int64

	wsPath     string
	headBranch string
	baseBranch string
	prBody     string
}

func (t *Merge) WorkID() work.ID { return t.Item.Identity }
func (t *Merge) RepoName() string { return t.Repo.FullName }

func (t *Merge) BeforeInvoke(ctx context.Context) (*AgentRequest, *TaskResult) {
	client, err := t.Coll.Forge.ClientFor(t.Repo.CloneURL, t.Repo.Host)
	if err != nil {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, fmt.Sprintf("resolving forge client: %v", err))
	}
	entity, err := client.GetEntity(ctx, t.Repo.FullName, t.Item.Number, true)
	if err != nil || entity.State != "open" {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, "PR no longer open")
	}
	t.headBranch = entity.HeadBranch
	t.baseBranch = entity.BaseBranch
	t.prBody = entity.Body

	ws, err := t.Coll.VCS.Checkout(ctx, t.Repo.FullName, taskID(work.KindMerge, t.Item.Number), t.Repo.CloneURL, client.AuthToken(), entity.HeadBranch)
	if err != nil {
		return nil, skip(t.Coll, t.Item.Identity, t.Repo, t.Item.Number, fmt.Sprintf("checkout failed: %v", err))
	}
	t.wsPath = ws.Path

	prompt := fmt.Sprintf(
		"Merge branch %s into %s in this checkout of PR #%d. Report any merge conflicts verbatim.",
		t.baseBranch, t.headBranch, t.Item.Number,
	)
	return &AgentRequest{
		WorkingDir: ws.Path,
		Prompt:     prompt,
		Session:    SessionOptions{OutputFormat: "text"},
	}, nil
}

func (t *Merge) AfterInvoke(ctx context.Context, resp AgentResponse) TaskResult {
	started := time.Now().Add(-resp.Duration)
	entry := logEntry(t.RepoID, work.KindMerge, t.Item.Identity, "merge", resp, started)
	result := TaskResult{
		WorkID: t.Item.Identity, RepoName: t.Repo.FullName,
		LogEntries: []store.WorkLogEntry{entry},
		Ops:        []Op{RemoveOp(t.Item.Identity)},
	}

	client, err := t.Coll.Forge.ClientFor(t.Repo.CloneURL, t.Repo.Host)
	if err != nil {
		removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
		result.Status = Failed
		result.Reason = fmt.Sprintf("resolving forge client: %v", err)
		return result
	}

	combined := strings.ToLower(resp.Stdout + resp.Stderr)
	if resp.ExitCode != 0 && strings.Contains(combined, "conflict") {
		return t.resolveConflicts(ctx, client, resp, result)
	}
	if resp.ExitCode != 0 {
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, "")
		result.Status = Failed
		result.Reason = "merge attempt failed without a conflict signature"
		return result
	}

	return t.finishMerge(ctx, client, result)
}

// resolveConflicts issues the second agent call with the conflicting paths
// extracted from the first attempt's output.
func (t *Merge) resolveConflicts(ctx context.Context, client forge.Client, first AgentResponse, result TaskResult) TaskResult {
	files := conflictPaths(first.Stdout)
	t.Item.ConflictFiles = files
	// Record the trip through CONFLICT before the final removal.
	result.Ops = []Op{
		TransitMergeOp(t.Item.Identity, work.MergeMerging, work.MergeConflict),
		RemoveOp(t.Item.Identity),
	}

	prompt := fmt.Sprintf(
		"The merge of %s into %s for PR #%d hit conflicts. Resolve every conflict, commit the resolution, and push %s.",
		t.baseBranch, t.headBranch, t.Item.Number, t.headBranch,
	)
	if len(files) > 0 {
		prompt += "\n\nConflicting files:\n" + strings.Join(files, "\n")
	}

	resolveStart := time.Now()
	resp, err := t.Coll.Agent.Invoke(ctx, agentproc.Request{
		WorkID:      string(t.Item.Identity),
		WorkDir:     t.wsPath,
		Instruction: prompt,
	})
	if err != nil {
		removeWIPBestEffort(t.Coll, t.Repo, t.Item.Number)
		result.Status = Failed
		result.Reason = fmt.Sprintf("conflict resolution invocation: %v", err)
		return result
	}

	resolved := AgentResponse{ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr, Duration: resp.Duration}
	result.LogEntries = append(result.LogEntries,
		logEntry(t.RepoID, work.KindMerge, t.Item.Identity, "merge-conflict-resolve", resolved, resolveStart))

	if resp.ExitCode != 0 {
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, "")
		result.Status = Failed
		result.Reason = "conflict resolution failed"
		return result
	}
	return t.finishMerge(ctx, client, result)
}

// finishMerge performs the forge-side merge of the now-clean PR and closes
// out the item.
func (t *Merge) finishMerge(ctx context.Context, client forge.Client, result TaskResult) TaskResult {
	if err := client.Merge(ctx, t.Repo.FullName, t.Item.Number); err != nil {
		swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, "")
		result.Status = Failed
		result.Reason = fmt.Sprintf("forge merge failed: %v", err)
		return result
	}
	swapLabels(ctx, client, t.Repo.FullName, t.Item.Number, work.LabelWIP, work.LabelDone)
	if issue, ok := work.SourceIssueNumber(t.prBody); ok {
		body := fmt.Sprintf("PR #%d merged.", t.Item.Number)
		if err := client.CreateComment(ctx, t.Repo.FullName, issue, body); err != nil {
			slog.Warn("commenting on source issue", "repo", t.Repo.FullName, "issue", issue, "error", err)
		}
	}
	result.Status = Completed
	return result
}

// conflictPaths extracts file paths from git's
// "CONFLICT (...): Merge conflict in <path>" output lines.
func conflictPaths(stdout string) []string {
	var files []string
	for _, line := range strings.Split(stdout, "\n") {
		if !strings.Contains(line, "CONFLICT") {
			continue
		}
		if _, after, ok := strings.Cut(line, "Merge conflict in "); ok {
			files = append(files, strings.TrimSpace(after))
		}
	}
	return files
}
