package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodevhq/autodev/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "autodev.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestAddRepoAndRepoByFullName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repo, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)
	assert.NotZero(t, repo.ID)
	assert.True(t, repo.Enabled)

	got, err := s.RepoByFullName(ctx, "org/repo")
	require.NoError(t, err)
	assert.Equal(t, repo.ID, got.ID)
	assert.Equal(t, "https://github.com/org/repo.git", got.URL)
}

func TestAddRepoDuplicateFullNameRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)

	_, err = s.AddRepo(ctx, "https://github.com/org/other.git", "org/repo")
	assert.Error(t, err)
}

func TestRemoveRepoCascadesCursorsAndWorkLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	repo, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)
	require.NoError(t, s.AdvanceCursor(ctx, repo.ID, TargetIssues, "2026-01-01T00:00:00Z"))
	require.NoError(t, s.AppendWorkLog(ctx, WorkLogEntry{RepoID: repo.ID, Kind: "issue", WorkID: "issue:org/repo:1", WorkerID: "agent"}))

	require.NoError(t, s.RemoveRepo(ctx, "org/repo"))

	_, err = s.RepoByFullName(ctx, "org/repo")
	assert.Error(t, err)

	entries, err := s.RecentWorkLog(ctx, repo.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	lastSeen, err := s.CursorLastSeen(ctx, repo.ID, TargetIssues)
	require.NoError(t, err)
	assert.Empty(t, lastSeen)
}

func TestEnabledReposExcludesDisabled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddRepo(ctx, "https://github.com/org/a.git", "org/a")
	require.NoError(t, err)
	_, err = s.AddRepo(ctx, "https://github.com/org/b.git", "org/b")
	require.NoError(t, err)
	require.NoError(t, s.DB.Exec(ctx, `UPDATE repositories SET enabled = 0 WHERE full_name = ?`, "org/b"))

	repos, err := s.EnabledRepos(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "org/a", repos[0].FullName)

	all, err := s.AllRepos(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestShouldScanAbsentCursorIsDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)

	due, err := s.ShouldScan(ctx, *repo, TargetIssues, time.Minute)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestShouldScanRecentCursorIsNotDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)

	require.NoError(t, s.AdvanceCursor(ctx, repo.ID, TargetIssues, "2026-01-01T00:00:00Z"))

	due, err := s.ShouldScan(ctx, *repo, TargetIssues, time.Hour)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestAdvanceCursorIsMonotonicAcrossCalls(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)

	require.NoError(t, s.AdvanceCursor(ctx, repo.ID, TargetIssues, "2026-01-01T00:00:00Z"))
	seen, err := s.CursorLastSeen(ctx, repo.ID, TargetIssues)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00Z", seen)

	require.NoError(t, s.AdvanceCursor(ctx, repo.ID, TargetIssues, "2026-02-01T00:00:00Z"))
	seen, err = s.CursorLastSeen(ctx, repo.ID, TargetIssues)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T00:00:00Z", seen)
}

func TestResetStuckCursorsClearsOldCursor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)

	require.NoError(t, s.AdvanceCursor(ctx, repo.ID, TargetIssues, "2026-01-01T00:00:00Z"))
	require.NoError(t, s.DB.Exec(ctx, `UPDATE scan_cursors SET last_scan = ? WHERE repo_id = ?`,
		time.Now().Add(-48*time.Hour).UTC().Format(time.RFC3339), repo.ID))

	require.NoError(t, s.ResetStuckCursors(ctx, 24*time.Hour))

	due, err := s.ShouldScan(ctx, *repo, TargetIssues, time.Hour)
	require.NoError(t, err)
	assert.True(t, due, "a reset cursor should be due again regardless of interval")
}

func TestSetScanCronRejectsInvalidExpression(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)

	err = s.SetScanCron(ctx, "org/repo", "not a cron expr")
	assert.Error(t, err)

	require.NoError(t, s.SetScanCron(ctx, "org/repo", "0 */6 * * *"))
	repo, err := s.RepoByFullName(ctx, "org/repo")
	require.NoError(t, err)
	assert.Equal(t, "0 */6 * * *", repo.ScanCron)
}

func TestAppendAndRecentWorkLogOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo, err := s.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)

	require.NoError(t, s.AppendWorkLog(ctx, WorkLogEntry{
		RepoID: repo.ID, Kind: "issue", WorkID: "issue:org/repo:1", WorkerID: "agent",
		StartedAt: "2026-01-01T00:00:00Z", FinishedAt: "2026-01-01T00:01:00Z",
	}))
	require.NoError(t, s.AppendWorkLog(ctx, WorkLogEntry{
		RepoID: repo.ID, Kind: "issue", WorkID: "issue:org/repo:2", WorkerID: "agent",
		StartedAt: "2026-01-02T00:00:00Z", FinishedAt: "2026-01-02T00:01:00Z",
	}))

	entries, err := s.RecentWorkLog(ctx, repo.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "issue:org/repo:2", entries[0].WorkID)
	assert.Equal(t, "issue:org/repo:1", entries[1].WorkID)
}
