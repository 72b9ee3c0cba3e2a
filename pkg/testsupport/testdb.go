// Package testsupport provides fixture helpers and a throwaway database for
// store tests.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-analysis-store/internal/storeinfra"
)

// NewDB opens a temporary sqlite database with the schema bootstrapped and
// closes it when the test ends. The pool is pinned to a single connection so
// concurrent test writers serialize at the store instead of tripping over
// sqlite's whole-file write lock.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	cfg := storeinfra.DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "analysis.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1

	db, err := storeinfra.Open(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := storeinfra.InitSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to bootstrap schema: %v", err)
	}
	return db
}
