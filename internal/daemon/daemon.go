// Package daemon wires every other component together, runs the
// fixed-interval tick loop, and handles startup/shutdown.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/autodevhq/autodev/internal/agentproc"
	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/forge"
	"github.com/autodevhq/autodev/internal/notify"
	"github.com/autodevhq/autodev/internal/phaseengine"
	"github.com/autodevhq/autodev/internal/queue"
	"github.com/autodevhq/autodev/internal/recovery"
	"github.com/autodevhq/autodev/internal/runner"
	"github.com/autodevhq/autodev/internal/scan"
	"github.com/autodevhq/autodev/internal/snapshot"
	"github.com/autodevhq/autodev/internal/store"
	"github.com/autodevhq/autodev/internal/task"
	"github.com/autodevhq/autodev/internal/vcs"
	"github.com/autodevhq/autodev/internal/work"
)

// Daemon owns every collaborator the tick loop needs and drives the cycle
// recover -> scan -> dispatch -> collect -> snapshot.
type Daemon struct {
	home string
	cfg  *config.Config

	store    *store.Store
	registry forge.Resolver
	queues   *queue.Queues
	runner   *runner.Runner
	engine   *phaseengine.Engine
	scanner  *scan.Scanner
	recon    *recovery.Reconciler
	snap     *snapshot.Writer
	notifier *notify.Dispatcher

	closeLog func()
}

// New builds every collaborator from cfg and wires them into a Daemon. It
// opens the durable store and forge registry but does not start the loop.
func New(home string, cfg *config.Config) (*Daemon, error) {
	if err := config.EnsureDir(); err != nil {
		return nil, err
	}

	closeLog, err := setupLogging(home, "info")
	if err != nil {
		return nil, err
	}

	db, err := store.New(cfg.Database)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("opening durable store: %w", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		closeLog()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	st := store.NewStore(db)

	registry, err := forge.NewRegistry(cfg.Forge)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("configuring forge clients: %w", err)
	}

	queues := queue.NewQueues()

	vcsManager := vcs.NewManager(filepath.Join(home, "workspaces"))
	launcher, err := agentproc.NewLauncher(cfg.Daemon.AgentCommand, 30*time.Minute)
	if err != nil {
		closeLog()
		return nil, err
	}

	coll := &task.Collaborators{Forge: registry, VCS: vcsManager, Agent: launcher, Cfg: cfg.Daemon}
	r := runner.New(launcher, cfg.Daemon)
	engine := phaseengine.New(queues, r, st, coll)
	scanner := scan.New(st, registry, queues, cfg.Daemon)
	recon := recovery.New(registry, queues)
	snap := snapshot.NewWriter(home, time.Now())
	notifier := notify.NewDispatcher(cfg.Notify)
	engine.SetNotifier(notifier)

	return &Daemon{
		home: home, cfg: cfg,
		store: st, registry: registry, queues: queues,
		runner: r, engine: engine, scanner: scanner, recon: recon,
		snap: snap, notifier: notifier, closeLog: closeLog,
	}, nil
}

// Run performs startup, enters the tick loop, and blocks
// until ctx is cancelled or SIGINT/SIGTERM arrives.
func (d *Daemon) Run(ctx context.Context) error {
	if err := AcquirePID(d.home); err != nil {
		return err
	}
	defer RemovePID(d.home)
	defer d.closeLog()

	if err := d.store.ResetStuckCursors(ctx, d.cfg.Daemon.CursorStuckThreshold); err != nil {
		slog.Error("resetting stuck cursors", "error", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(d.cfg.Daemon.PollInterval)
	defer ticker.Stop()

	slog.Info("autodev daemon started", "home", d.home, "poll_interval", d.cfg.Daemon.PollInterval)

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, draining in-flight tasks")
			d.shutdown()
			return nil
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick performs one full cycle: recover -> scan -> dispatch -> collect ->
// snapshot. No per-repo action failing a tick ever aborts the rest of it.
func (d *Daemon) tick(ctx context.Context) {
	repos, err := d.store.EnabledRepos(ctx)
	if err != nil {
		slog.Error("listing enabled repos", "error", err)
		return
	}

	for _, repo := range repos {
		if err := d.recon.Reconcile(ctx, repo); err != nil {
			slog.Error("reconciling labels", "repo", repo.FullName, "error", err)
		}
	}

	for _, repo := range repos {
		d.scanRepoIfDue(ctx, repo)
	}

	d.engine.Drain(ctx)
	d.engine.Dispatch(ctx, repos)

	if err := d.snap.Write(d.engine); err != nil {
		slog.Error("writing status snapshot", "error", err)
	}
}

// applyRepoOverride reads the repository's local .develop-workflow.yaml (if
// any workspace checkout for it exists yet) and persists a scan_cron change
// to the registry row, so a repo-committed override wins over whatever was
// set via `autodev repo config`.
func (d *Daemon) applyRepoOverride(ctx context.Context, repo store.Repository) store.Repository {
	dir := filepath.Join(d.home, "workspaces", config.SanitizeRepoDirName(repo.FullName))
	override, err := config.LoadRepoOverride(dir)
	if err != nil {
		slog.Warn("reading repo override", "repo", repo.FullName, "error", err)
		return repo
	}
	if override.ScanCron != "" && override.ScanCron != repo.ScanCron {
		if err := d.store.SetScanCron(ctx, repo.FullName, override.ScanCron); err != nil {
			slog.Warn("applying repo override scan_cron", "repo", repo.FullName, "error", err)
			return repo
		}
		repo.ScanCron = override.ScanCron
	}
	return repo
}

func (d *Daemon) scanRepoIfDue(ctx context.Context, repo store.Repository) {
	repo = d.applyRepoOverride(ctx, repo)
	due, err := d.store.ShouldScan(ctx, repo, store.TargetIssues, d.cfg.Daemon.ScanInterval)
	if err != nil {
		slog.Error("checking scan cursor", "repo", repo.FullName, "error", err)
		return
	}
	if !due {
		return
	}

	if err := d.scanner.Scan(ctx, repo); err != nil {
		slog.Error("scanning repo", "repo", repo.FullName, "error", err)
		return
	}
	if err := d.scanner.ScanApproved(ctx, repo); err != nil {
		slog.Error("scanning approved issues", "repo", repo.FullName, "error", err)
	}
	if err := d.scanner.ScanMerges(ctx, repo); err != nil {
		slog.Error("scanning merge-ready PRs", "repo", repo.FullName, "error", err)
	}
}

// shutdown drains the runner up to the configured timeout, applies whatever
// results arrive in time, and removes the status file (the pid file is
// removed by Run's deferred cleanup). Abandoned
// in-flight tasks are tolerated: the next daemon start's Recovery pass
// reconciles their eventual forge side effects via labels.
func (d *Daemon) shutdown() {
	results := d.runner.Drain(d.cfg.Daemon.DrainTimeout)
	d.engine.DrainTimeout(results)

	if d.notifier.IsAnyConfigured() {
		d.notifier.Notify(context.Background(), notify.Event{
			Type:  "sweep_completed",
			Title: "autodev daemon stopped",
			Body:  fmt.Sprintf("drained %d task(s) on shutdown", len(results)),
		})
	}

	if err := d.snap.Write(d.engine); err != nil {
		slog.Error("writing final snapshot", "error", err)
	}
	d.snap.Remove()
}

// Close releases the durable store connection without running the loop.
func (d *Daemon) Close() error {
	return d.store.DB.Close()
}
