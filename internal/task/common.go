package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// skip builds the TaskResult for a preflight skip. wip is stripped
// best-effort in every terminal outcome including Skip, so recovery never
// mistakes a skipped entity for one still in flight. The item itself sits
// in a transient phase for the duration of the task, so the result must
// carry the Remove that clears it.
func skip(c *Collaborators, id work.ID, repo work.Repo, number int, reason string) *TaskResult {
	removeWIPBestEffort(c, repo, number)
	return &TaskResult{Status: Skipped, Reason: reason, Ops: []Op{RemoveOp(id)}}
}

// taskID names the per-task workspace directory under the repository's
// workspace root.
func taskID(kind work.Kind, number int) string {
	return fmt.Sprintf("%s-%d", kind, number)
}

func removeWIPBestEffort(c *Collaborators, repo work.Repo, number int) {
	client, err := c.Forge.ClientFor(repo.CloneURL, repo.Host)
	if err != nil {
		slog.Warn("resolving forge client to strip wip", "repo", repo.FullName, "number", number, "error", err)
		return
	}
	if err := client.RemoveLabel(context.Background(), repo.FullName, number, work.LabelWIP); err != nil {
		slog.Warn("removing wip label", "repo", repo.FullName, "number", number, "error", err)
	}
}

func swapLabels(ctx context.Context, client forge.Client, repoFullName string, number int, remove, add string) {
	if remove != "" {
		if err := client.RemoveLabel(ctx, repoFullName, number, remove); err != nil {
			slog.Warn("removing label", "repo", repoFullName, "number", number, "label", remove, "error", err)
		}
	}
	if add != "" {
		if err := client.AddLabel(ctx, repoFullName, number, add); err != nil {
			slog.Warn("adding label", "repo", repoFullName, "number", number, "label", add, "error", err)
		}
	}
}

// logEntry builds a work_log row for one agent invocation.
func logEntry(repoID int64, kind work.Kind, id work.ID, command string, resp AgentResponse, started time.Time) store.WorkLogEntry {
	finished := started.Add(resp.Duration)
	return store.WorkLogEntry{
		RepoID:     repoID,
		Kind:       string(kind),
		WorkID:     string(id),
		WorkerID:   "agent",
		Command:    command,
		Stdout:     resp.Stdout,
		Stderr:     resp.Stderr,
		ExitCode:   resp.ExitCode,
		StartedAt:  started.UTC().Format(time.RFC3339),
		FinishedAt: finished.UTC().Format(time.RFC3339),
		DurationMS: resp.Duration.Milliseconds(),
	}
}
