package scan

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/queue"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/work"
)

func TestPassesFiltersNamespacedLabelSuppressed(t *testing.T) {
	s := &Scanner{cfg: config.DaemonConfig{}}
	e := forge.Entity{Author: "alice", Labels: []string{work.LabelWIP}}
	assert.False(t, s.passesFilters(e, true))
}

func TestPassesFiltersIgnoredAuthor(t *testing.T) {
	s := &Scanner{cfg: config.DaemonConfig{IgnoreAuthors: []string{"dependabot[bot]"}}}
	e := forge.Entity{Author: "Dependabot[bot]"}
	assert.False(t, s.passesFilters(e, true))
}

func TestPassesFiltersAllowLabelsGateAppliesToIssuesOnly(t *testing.T) {
	s := &Scanner{cfg: config.DaemonConfig{AllowLabels: []string{"autodev-allowed"}}}

	issue := forge.Entity{Author: "bob", Labels: []string{"bug"}}
	assert.False(t, s.passesFilters(issue, true))

	pr := forge.Entity{Author: "bob", Labels: []string{"bug"}}
	assert.True(t, s.passesFilters(pr, false))

	allowedIssue := forge.Entity{Author: "bob", Labels: []string{"autodev-allowed"}}
	assert.True(t, s.passesFilters(allowedIssue, true))
}

func TestPassesFiltersDefaultAllowsEverythingElse(t *testing.T) {
	s := &Scanner{cfg: config.DaemonConfig{}}
	e := forge.Entity{Author: "carol", Labels: []string{"bug"}}
	assert.True(t, s.passesFilters(e, true))
}

// fakeForgeClient serves a fixed set of open issues for dedup/cursor tests.
type fakeForgeClient struct {
	issues []forge.Entity
}

func (f *fakeForgeClient) Name() string      { return "fake" }
func (f *fakeForgeClient) AuthToken() string { return "" }
func (f *fakeForgeClient) ListIssues(ctx context.Context, repo string, opts forge.ListOptions) ([]forge.Entity, error) {
	if opts.Label != "" {
		return nil, nil
	}
	return f.issues, nil
}
func (f *fakeForgeClient) ListPulls(ctx context.Context, repo string, opts forge.ListOptions) ([]forge.Entity, error) {
	return nil, nil
}
func (f *fakeForgeClient) AddLabel(ctx context.Context, repo string, number int, label string) error {
	return nil
}
func (f *fakeForgeClient) RemoveLabel(ctx context.Context, repo string, number int, label string) error {
	return nil
}
func (f *fakeForgeClient) CreateComment(ctx context.Context, repo string, number int, body string) error {
	return nil
}
func (f *fakeForgeClient) ListComments(ctx context.Context, repo string, number int) ([]string, error) {
	return nil, nil
}
func (f *fakeForgeClient) CreateIssue(ctx context.Context, repo, title, body string) error {
	return nil
}
func (f *fakeForgeClient) GetEntity(ctx context.Context, repo string, number int, isPR bool) (*forge.Entity, error) {
	return nil, forge.ErrNotFound
}
func (f *fakeForgeClient) Merge(ctx context.Context, repo string, number int) error { return nil }

var _ forge.Client = (*fakeForgeClient)(nil)

type fakeResolver struct{ client forge.Client }

func (f fakeResolver) ClientFor(cloneURL, hostOverride string) (forge.Client, error) {
	return f.client, nil
}

func newTestScanner(t *testing.T, client forge.Client) (*Scanner, *queue.Queues, *store.Store) {
	t.Helper()
	db, err := store.NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "autodev.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	st := store.NewStore(db)
	queues := queue.NewQueues()
	return New(st, fakeResolver{client}, queues, config.DaemonConfig{}), queues, st
}

func TestScanDedupsAcrossRepeatedScansAndAdvancesCursor(t *testing.T) {
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeForgeClient{issues: []forge.Entity{
		{Number: 100, Title: "newest", Author: "alice", State: "open", UpdatedAt: base.Add(2 * time.Hour)},
		{Number: 99, Title: "middle", Author: "alice", State: "open", UpdatedAt: base.Add(time.Hour)},
		{Number: 98, Title: "oldest", Author: "alice", State: "open", UpdatedAt: base},
	}}
	s, queues, st := newTestScanner(t, client)

	ctx := context.Background()
	repo, err := st.AddRepo(ctx, "https://github.com/org/repo.git", "org/repo")
	require.NoError(t, err)

	require.NoError(t, s.Scan(ctx, *repo))
	assert.Equal(t, 3, queues.Issues.Total())

	require.NoError(t, s.Scan(ctx, *repo))
	assert.Equal(t, 3, queues.Issues.Total(), "a rescan of unchanged data must not duplicate queue entries")

	lastSeen, err := st.CursorLastSeen(ctx, repo.ID, store.TargetIssues)
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Hour).Format(time.RFC3339), lastSeen)
}
