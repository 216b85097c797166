// Package store implements the durable store: the repository registry,
// per-repo scan cursors, and the append-only work log. It also houses the
// generic reflection-based DB wrapper the rest of the package is built on.
package store

import (
	"context"
	"fmt"

	"github.com/autodevhq/autodev/internal/config"
)

// DB is the generic storage interface backing the durable store. SQLite is
// the default backend; MySQL is the networked alternative.
type DB interface {
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Exec(ctx context.Context, query string, args ...interface{}) error
	Insert(ctx context.Context, table string, record interface{}) (int64, error)
	Update(ctx context.Context, table string, record interface{}, where string, args ...interface{}) error
	Upsert(ctx context.Context, table string, record interface{}, conflictCols []string) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
	Driver() string
}

// New returns a DB implementation matching cfg.Driver. SQLite is the
// default when Driver is empty; an unrecognised driver is an error.
func New(cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Driver {
	case "mysql":
		return NewMySQL(cfg)
	case "sqlite", "sqlite3", "":
		return NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q (supported: sqlite, mysql)", cfg.Driver)
	}
}
