// Package scan implements the scanner: it polls the forge for open
// issues and pull requests per repository, applies the intake filter
// pipeline, and enqueues surviving entities into the phased queues.
package scan

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/queue"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

// Scanner polls one repository at a time and feeds its phased queues.
type Scanner struct {
	store    *store.Store
	registry forge.Resolver
	queues   *queue.Queues
	cfg      config.DaemonConfig
}

func New(st *store.Store, registry forge.Resolver, queues *queue.Queues, cfg config.DaemonConfig) *Scanner {
	return &Scanner{store: st, registry: registry, queues: queues, cfg: cfg}
}

// Scan fetches open issues and PRs for repo, applies the intake filter
// pipeline in order, and enqueues surviving entities into PENDING.
func (s *Scanner) Scan(ctx context.Context, repo store.Repository) error {
	client, err := s.registry.ClientFor(repo.URL, "")
	if err != nil {
		return err
	}

	if err := s.scanIssues(ctx, client, repo); err != nil {
		slog.Error("scanning issues", "repo", repo.FullName, "error", err)
	}
	if err := s.scanPulls(ctx, client, repo); err != nil {
		slog.Error("scanning pulls", "repo", repo.FullName, "error", err)
	}
	return nil
}

func (s *Scanner) scanIssues(ctx context.Context, client forge.Client, repo store.Repository) error {
	entities, err := client.ListIssues(ctx, repo.FullName, forge.ListOptions{PerPage: 100})
	if err != nil {
		return err
	}

	var maxSeen time.Time
	for _, e := range entities {
		if e.UpdatedAt.After(maxSeen) {
			maxSeen = e.UpdatedAt
		}
		if !s.passesFilters(e, true) {
			continue
		}

		id := work.NewID(work.KindIssue, repo.FullName, e.Number)
		if s.queues.Issues.Contains(id) {
			continue // already in flight; cursor still advances below
		}

		if err := client.AddLabel(ctx, repo.FullName, e.Number, work.LabelWIP); err != nil {
			slog.Warn("adding wip label", "repo", repo.FullName, "number", e.Number, "error", err)
		}

		item := work.IssueItem{
			Identity:   id,
			Repo:       work.Repo{ID: repo.FullName, FullName: repo.FullName, CloneURL: repo.URL},
			Number:     e.Number,
			Title:      e.Title,
			EnqueuedAt: time.Now(),
		}
		s.queues.Issues.Push(work.IssuePending, item)
	}

	if !maxSeen.IsZero() {
		if err := s.store.AdvanceCursor(ctx, repo.ID, store.TargetIssues, maxSeen.UTC().Format(time.RFC3339)); err != nil {
			slog.Error("advancing issue cursor", "repo", repo.FullName, "error", err)
		}
	}
	return nil
}

func (s *Scanner) scanPulls(ctx context.Context, client forge.Client, repo store.Repository) error {
	entities, err := client.ListPulls(ctx, repo.FullName, forge.ListOptions{PerPage: 100})
	if err != nil {
		return err
	}

	var maxSeen time.Time
	for _, e := range entities {
		if e.UpdatedAt.After(maxSeen) {
			maxSeen = e.UpdatedAt
		}
		if !s.passesFilters(e, false) {
			continue
		}

		id := work.NewID(work.KindPR, repo.FullName, e.Number)
		if s.queues.PRs.Contains(id) {
			continue
		}

		if err := client.AddLabel(ctx, repo.FullName, e.Number, work.LabelWIP); err != nil {
			slog.Warn("adding wip label", "repo", repo.FullName, "number", e.Number, "error", err)
		}

		item := work.PRItem{
			Identity:   id,
			Repo:       work.Repo{ID: repo.FullName, FullName: repo.FullName, CloneURL: repo.URL},
			Number:     e.Number,
			Title:      e.Title,
			EnqueuedAt: time.Now(),
		}
		s.queues.PRs.Push(work.PRPending, item)
	}

	if !maxSeen.IsZero() {
		if err := s.store.AdvanceCursor(ctx, repo.ID, store.TargetPulls, maxSeen.UTC().Format(time.RFC3339)); err != nil {
			slog.Error("advancing pull cursor", "repo", repo.FullName, "error", err)
		}
	}
	return nil
}

// passesFilters applies the intake pipeline in order: namespaced-label
// suppression, ignored authors, allow-label gate (issues only). The "already in a queue" check happens at the call site since it
// needs the work identity.
func (s *Scanner) passesFilters(e forge.Entity, isIssue bool) bool {
	if work.HasNamespacedLabel(e.Labels) {
		return false
	}
	for _, author := range s.cfg.IgnoreAuthors {
		if strings.EqualFold(author, e.Author) {
			return false
		}
	}
	if isIssue && len(s.cfg.AllowLabels) > 0 {
		allowed := false
		for _, want := range s.cfg.AllowLabels {
			if work.HasLabel(e.Labels, want) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// ScanApproved finds issues labeled approved-analysis, extracts the latest
// analysis report, swaps the label to implementing, and pushes into READY.
func (s *Scanner) ScanApproved(ctx context.Context, repo store.Repository) error {
	client, err := s.registry.ClientFor(repo.URL, "")
	if err != nil {
		return err
	}

	entities, err := client.ListIssues(ctx, repo.FullName, forge.ListOptions{PerPage: 100, Label: work.LabelApprovedAnalysis})
	if err != nil {
		return err
	}

	for _, e := range entities {
		id := work.NewID(work.KindIssue, repo.FullName, e.Number)
		if s.queues.Issues.Contains(id) {
			continue
		}

		report := s.extractAnalysisReport(ctx, client, repo.FullName, e.Number)

		if err := client.RemoveLabel(ctx, repo.FullName, e.Number, work.LabelApprovedAnalysis); err != nil {
			slog.Warn("removing approved-analysis label", "repo", repo.FullName, "number", e.Number, "error", err)
		}
		if err := client.AddLabel(ctx, repo.FullName, e.Number, work.LabelImplementing); err != nil {
			slog.Warn("adding implementing label", "repo", repo.FullName, "number", e.Number, "error", err)
		}

		item := work.IssueItem{
			Identity:       id,
			Repo:           work.Repo{ID: repo.FullName, FullName: repo.FullName, CloneURL: repo.URL},
			Number:         e.Number,
			Title:          e.Title,
			AnalysisReport: report,
			EnqueuedAt:     time.Now(),
		}
		s.queues.Issues.Push(work.IssueReady, item)
	}
	return nil
}

// extractAnalysisReport scans comments newest-last for the marked body,
// returning the most recent match.
func (s *Scanner) extractAnalysisReport(ctx context.Context, client forge.Client, repoFullName string, number int) string {
	comments, err := client.ListComments(ctx, repoFullName, number)
	if err != nil {
		slog.Warn("listing comments for analysis extraction", "repo", repoFullName, "number", number, "error", err)
		return ""
	}
	report := ""
	for _, c := range comments {
		if strings.Contains(c, work.MarkerAnalysis) {
			report = strings.TrimSpace(strings.Replace(c, work.MarkerAnalysis, "", 1))
		}
	}
	return report
}

// ScanMerges finds merge-ready PRs and pushes them into the merge queue's
// PENDING phase. Only active when auto-merge is enabled.
func (s *Scanner) ScanMerges(ctx context.Context, repo store.Repository) error {
	if !s.cfg.AutoMergeEnabled {
		return nil
	}
	client, err := s.registry.ClientFor(repo.URL, "")
	if err != nil {
		return err
	}

	entities, err := client.ListPulls(ctx, repo.FullName, forge.ListOptions{PerPage: 100, Label: work.LabelDone})
	if err != nil {
		return err
	}

	for _, e := range entities {
		id := work.NewID(work.KindMerge, repo.FullName, e.Number)
		if s.queues.Merges.Contains(id) {
			continue
		}
		item := work.MergeItem{
			Identity:   id,
			Repo:       work.Repo{ID: repo.FullName, FullName: repo.FullName, CloneURL: repo.URL},
			Number:     e.Number,
			Title:      e.Title,
			EnqueuedAt: time.Now(),
		}
		s.queues.Merges.Push(work.MergePending, item)
	}
	return nil
}
