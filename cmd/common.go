package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/autodevhq/autodev/internal/config"
	"github.com/autodevhq/autodev/internal/store"
)

// loadConfig loads the effective config, honoring the --config flag.
func loadConfig() (*config.Config, string, error) {
	home, err := config.Home()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, home, nil
}

// openStore opens the durable store for a one-shot CLI read/write, separate
// from any running daemon's connection; the store tolerates one writer
// plus any number of readers.
func openStore(cfg *config.Config) (*store.Store, func(), error) {
	db, err := store.New(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening durable store: %w", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return store.NewStore(db), func() { db.Close() }, nil
}

const ctxTimeout = 30 * time.Second
