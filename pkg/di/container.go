// Package di wires the analysis stores together behind one explicitly
// constructed container. The database handle is opened once here and passed
// by reference into every component; there is no process-wide singleton and
// no lazy initialization. Dispose with Close.
package di

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-analysis-store/batchpatch"
	"github.com/goliatone/go-analysis-store/cache"
	"github.com/goliatone/go-analysis-store/childwriter"
	"github.com/goliatone/go-analysis-store/internal/storeinfra"
	"github.com/goliatone/go-analysis-store/resultcache"
	"github.com/goliatone/go-analysis-store/storecache"
	"github.com/goliatone/go-analysis-store/tracestore"
)

// Driver names accepted by DBConfig.
const (
	DriverSQLite   = storeinfra.DriverSQLite
	DriverPostgres = storeinfra.DriverPostgres
)

// DBConfig exposes the content-store connection settings.
type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// DefaultDBConfig returns the sqlite defaults used for local development.
func DefaultDBConfig() DBConfig {
	return fromInternal(storeinfra.DefaultConfig())
}

func (c DBConfig) toInternal() storeinfra.Config {
	return storeinfra.Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

func fromInternal(c storeinfra.Config) DBConfig {
	return DBConfig{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// Options configures the container. Zero-value sub-configs fall back to
// their package defaults; a nil Logger disables logging.
type Options struct {
	DB      DBConfig
	Cache   cache.Config
	Results resultcache.Config
	Logger  *zerolog.Logger
}

// Container holds the store handle and the constructed components.
type Container struct {
	db  *bun.DB
	log zerolog.Logger

	results       *resultcache.Cache
	cachedResults *storecache.CachedResultStore
	children      *childwriter.Writer
	traces        *tracestore.Store
	patcher       *batchpatch.Patcher

	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
}

// NewContainer opens the database, bootstraps the sqlite schema when that
// dialect is selected, and wires every store. The caller owns the returned
// container and must Close it.
func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	if opts.DB == (DBConfig{}) {
		opts.DB = DefaultDBConfig()
	}
	if opts.Cache == (cache.Config{}) {
		opts.Cache = cache.DefaultConfig()
	}
	if opts.Results == (resultcache.Config{}) {
		opts.Results = resultcache.DefaultConfig()
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	db, err := storeinfra.Open(opts.DB.toInternal())
	if err != nil {
		return nil, err
	}
	if opts.DB.Driver == DriverSQLite {
		if err := storeinfra.InitSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	cacheService, err := cache.NewCacheService(opts.Cache)
	if err != nil {
		db.Close()
		return nil, err
	}
	keySerializer := cache.NewDefaultKeySerializer()

	results := resultcache.New(db, opts.Results, log.With().Str("component", "resultcache").Logger())

	return &Container{
		db:            db,
		log:           log,
		results:       results,
		cachedResults: storecache.New(results, cacheService, keySerializer),
		children:      childwriter.New(db, log.With().Str("component", "childwriter").Logger()),
		traces:        tracestore.New(db, log.With().Str("component", "tracestore").Logger()),
		patcher:       batchpatch.New(db, log.With().Str("component", "batchpatch").Logger()),
		cacheService:  cacheService,
		keySerializer: keySerializer,
	}, nil
}

// DB returns the shared store handle.
func (c *Container) DB() *bun.DB { return c.db }

// Results returns the uncached result cache.
func (c *Container) Results() *resultcache.Cache { return c.results }

// CachedResults returns the result cache behind the read-through memo layer.
func (c *Container) CachedResults() *storecache.CachedResultStore { return c.cachedResults }

// ChildWriter returns the ordered child writer.
func (c *Container) ChildWriter() *childwriter.Writer { return c.children }

// TraceStore returns the debug snapshot store.
func (c *Container) TraceStore() *tracestore.Store { return c.traces }

// BatchPatcher returns the batch patcher.
func (c *Container) BatchPatcher() *batchpatch.Patcher { return c.patcher }

// CacheService returns the memo layer for advanced use.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the key serializer used by the decorator.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// Close releases the database handle.
func (c *Container) Close() error {
	return c.db.Close()
}
