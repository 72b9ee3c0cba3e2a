// Package storeinfra owns the content-store handle: opening the relational
// database behind an explicit *bun.DB that is constructed once and passed by
// reference into every store, the sqlite schema bootstrap, and the mapping
// of driver-level uniqueness violations into something the stores can branch
// on. Nothing in here is lazily global; lifecycle is the caller's.
package storeinfra

import (
	"database/sql"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Open establishes the database handle for the configured driver and applies
// the pool settings. The caller owns the handle and must Close it.
func Open(cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		sqldb *sql.DB
		err   error
	)
	switch cfg.Driver {
	case DriverPostgres:
		sqldb, err = sql.Open("postgres", cfg.DSN)
	default:
		sqldb, err = sql.Open("sqlite3", cfg.DSN)
	}
	if err != nil {
		return nil, err
	}

	configurePool(sqldb, cfg)

	if cfg.Driver == DriverPostgres {
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func configurePool(db *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
