package store

import (
	"context"
	"fmt"
	"time"
)

// Store is the domain-level façade over DB that the rest of the engine
// talks to. It owns the SQL for repo registry, scan cursor, and work log
// operations.
type Store struct {
	DB DB
}

func NewStore(db DB) *Store {
	return &Store{DB: db}
}

// AddRepo registers a new repository. url and full_name are each unique;
// a duplicate insert surfaces the underlying constraint error to the caller.
func (s *Store) AddRepo(ctx context.Context, url, fullName string) (*Repository, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	repo := Repository{URL: url, FullName: fullName, Enabled: true, CreatedAt: now, UpdatedAt: now}
	id, err := s.DB.Insert(ctx, "repositories", repo)
	if err != nil {
		return nil, fmt.Errorf("adding repo %s: %w", fullName, err)
	}
	repo.ID = id
	return &repo, nil
}

// RemoveRepo deletes a repository and cascades to scan_cursors and work_log
// in sequence. The generic DB interface has no transaction primitive;
// three statements under the daemon's single writer have the same net
// effect.
func (s *Store) RemoveRepo(ctx context.Context, fullName string) error {
	var repo Repository
	if err := s.DB.Get(ctx, &repo, `SELECT id, url, full_name, enabled, created_at, updated_at, scan_cron FROM repositories WHERE full_name = ?`, fullName); err != nil {
		return fmt.Errorf("repo %s not found: %w", fullName, err)
	}
	if err := s.DB.Exec(ctx, `DELETE FROM scan_cursors WHERE repo_id = ?`, repo.ID); err != nil {
		return fmt.Errorf("removing cursors for %s: %w", fullName, err)
	}
	if err := s.DB.Exec(ctx, `DELETE FROM work_log WHERE repo_id = ?`, repo.ID); err != nil {
		return fmt.Errorf("removing work log for %s: %w", fullName, err)
	}
	if err := s.DB.Exec(ctx, `DELETE FROM repositories WHERE id = ?`, repo.ID); err != nil {
		return fmt.Errorf("removing repo %s: %w", fullName, err)
	}
	return nil
}

// EnabledRepos returns every repository with enabled = true.
func (s *Store) EnabledRepos(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	err := s.DB.Select(ctx, &repos, `SELECT id, url, full_name, enabled, created_at, updated_at, scan_cron FROM repositories WHERE enabled = 1 ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("listing enabled repos: %w", err)
	}
	return repos, nil
}

// AllRepos returns every registered repository, enabled or not.
func (s *Store) AllRepos(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	err := s.DB.Select(ctx, &repos, `SELECT id, url, full_name, enabled, created_at, updated_at, scan_cron FROM repositories ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	return repos, nil
}

// RepoByFullName looks up a single repository by its fullname.
func (s *Store) RepoByFullName(ctx context.Context, fullName string) (*Repository, error) {
	var repo Repository
	err := s.DB.Get(ctx, &repo, `SELECT id, url, full_name, enabled, created_at, updated_at, scan_cron FROM repositories WHERE full_name = ?`, fullName)
	if err != nil {
		return nil, fmt.Errorf("repo %s not found: %w", fullName, err)
	}
	return &repo, nil
}

// ShouldScan implements should_scan(repo, interval): true iff the recorded
// last_scan for target predates interval (or the repo's cron schedule, when
// set) or is absent.
func (s *Store) ShouldScan(ctx context.Context, repo Repository, target ScanTarget, interval time.Duration) (bool, error) {
	var cur ScanCursor
	err := s.DB.Get(ctx, &cur, `SELECT repo_id, target, last_seen, last_scan FROM scan_cursors WHERE repo_id = ? AND target = ?`, repo.ID, string(target))
	if err != nil {
		// No cursor row yet; absent counts as due.
		return true, nil
	}
	if cur.LastScan == "" {
		return true, nil
	}
	t, err := time.Parse(time.RFC3339, cur.LastScan)
	if err != nil {
		return true, nil
	}

	if repo.ScanCron != "" {
		due, ok := cronDue(repo.ScanCron, t)
		if ok {
			return due, nil
		}
		// Malformed cron expression: fall back to the fixed interval below
		// rather than silently never scanning.
	}
	return time.Since(t) >= interval, nil
}

// SetScanCron sets or clears (empty string) a repository's cron scan
// schedule override.
func (s *Store) SetScanCron(ctx context.Context, fullName, expr string) error {
	if expr != "" {
		if _, ok := cronDue(expr, time.Now()); !ok {
			return fmt.Errorf("invalid cron expression %q", expr)
		}
	}
	return s.DB.Exec(ctx, `UPDATE repositories SET scan_cron = ? WHERE full_name = ?`, expr, fullName)
}

// CursorLastSeen returns the current last_seen watermark for (repoID, target).
func (s *Store) CursorLastSeen(ctx context.Context, repoID int64, target ScanTarget) (string, error) {
	var cur ScanCursor
	err := s.DB.Get(ctx, &cur, `SELECT repo_id, target, last_seen, last_scan FROM scan_cursors WHERE repo_id = ? AND target = ?`, repoID, string(target))
	if err != nil {
		return "", nil
	}
	return cur.LastSeen, nil
}

// AdvanceCursor persists the new watermark and wall-clock scan time.
// Cursor advancement is monotonic in practice because the Scanner only
// calls this with the max updated_at it observed in a successful scan; a
// transient forge error means the caller never reaches this call, leaving
// the cursor unchanged so the next tick re-scans.
func (s *Store) AdvanceCursor(ctx context.Context, repoID int64, target ScanTarget, lastSeen string) error {
	cur := ScanCursor{
		RepoID:   repoID,
		Target:   string(target),
		LastSeen: lastSeen,
		LastScan: time.Now().UTC().Format(time.RFC3339),
	}
	return s.DB.Upsert(ctx, "scan_cursors", cur, []string{"repo_id", "target"})
}

// ResetStuckCursors clears last_scan for any cursor older than threshold so
// the next tick treats it as due.
func (s *Store) ResetStuckCursors(ctx context.Context, threshold time.Duration) error {
	cutoff := time.Now().UTC().Add(-threshold).Format(time.RFC3339)
	return s.DB.Exec(ctx, `UPDATE scan_cursors SET last_scan = '' WHERE last_scan != '' AND last_scan < ?`, cutoff)
}

// AppendWorkLog writes one audit record. A failure here is logged by the
// caller and does not fail the task.
func (s *Store) AppendWorkLog(ctx context.Context, entry WorkLogEntry) error {
	_, err := s.DB.Insert(ctx, "work_log", entry)
	if err != nil {
		return fmt.Errorf("appending work log: %w", err)
	}
	return nil
}

// RecentWorkLog returns the most recent n work_log rows for a repo.
func (s *Store) RecentWorkLog(ctx context.Context, repoID int64, n int) ([]WorkLogEntry, error) {
	var entries []WorkLogEntry
	err := s.DB.Select(ctx, &entries,
		`SELECT id, repo_id, kind, work_id, worker_id, command, stdout, stderr, exit_code, started_at, finished_at, duration_ms
		 FROM work_log WHERE repo_id = ? ORDER BY started_at DESC LIMIT ?`, repoID, n)
	if err != nil {
		return nil, fmt.Errorf("reading work log: %w", err)
	}
	return entries, nil
}
