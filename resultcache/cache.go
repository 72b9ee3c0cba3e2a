package resultcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-analysis-store/internal/storeinfra"
	"github.com/goliatone/go-analysis-store/store"
)

const entityName = "cached_result"

// Config holds the tunables of the result cache.
type Config struct {
	// DefaultTTL is applied to rows created by Save. Zero disables expiry
	// for new rows.
	DefaultTTL time.Duration

	// DefaultListLimit caps List when the caller passes no limit.
	DefaultListLimit int
}

// DefaultConfig returns the production defaults: one hour of freshness per
// cached result, ten rows per unbounded list.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:       time.Hour,
		DefaultListLimit: 10,
	}
}

// Cache is the result cache over the shared store handle. It exclusively
// owns writes to cached_results rows, including the hit counter.
type Cache struct {
	db  *bun.DB
	cfg Config
	log zerolog.Logger

	// now is swappable so tests can steer expiry and the race window.
	now func() time.Time
}

// New constructs a result cache on the given handle.
func New(db *bun.DB, cfg Config, log zerolog.Logger) *Cache {
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = DefaultConfig().DefaultListLimit
	}
	return &Cache{
		db:  db,
		cfg: cfg,
		log: log,
		now: time.Now,
	}
}

// SaveParams carries one result to be cached. Callers own the Results
// payload; the cache treats it as opaque.
type SaveParams struct {
	SessionID      string
	AnalysisType   string
	ContentVersion int
	ContentHash    string
	Results        json.RawMessage

	ProcessingTimeMS int64
	TokensUsed       int
	ModelUsed        string
}

// Validate rejects malformed requests before anything is written.
func (p SaveParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.SessionID, validation.Required),
		validation.Field(&p.AnalysisType, validation.Required),
		validation.Field(&p.ContentHash, validation.Required),
		validation.Field(&p.ContentVersion, validation.Min(0)),
	)
}

// Key returns the business key of the request.
func (p SaveParams) Key() store.AnalysisKey {
	return store.AnalysisKey{SessionID: p.SessionID, AnalysisType: p.AnalysisType, ContentHash: p.ContentHash}
}

// ListQuery selects cached results for a session, newest first.
type ListQuery struct {
	SessionID    string
	AnalysisType string // optional; empty matches all types
	Limit        int    // optional; defaults to Config.DefaultListLimit
}

// insertOutcome tags the result of one insert attempt so conflict handling
// is explicit state, not exception flow.
type insertOutcome int

const (
	outcomeInserted insertOutcome = iota
	outcomeConflict
)

// Lookup returns the live row for the key, or nil on miss. Expired rows are
// never returned even though they remain visible to raw scans.
func (c *Cache) Lookup(ctx context.Context, key store.AnalysisKey) (*store.CachedResult, error) {
	return c.lookupIn(ctx, c.db, key)
}

func (c *Cache) lookupIn(ctx context.Context, idb bun.IDB, key store.AnalysisKey) (*store.CachedResult, error) {
	rec := new(store.CachedResult)
	err := idb.NewSelect().
		Model(rec).
		Where("session_id = ?", key.SessionID).
		Where("analysis_type = ?", key.AnalysisType).
		Where("content_hash = ?", key.ContentHash).
		Where("expires_at IS NULL OR expires_at > ?", c.now().UTC()).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.TxError{Entity: entityName, Op: "lookup", Err: err}
	}
	return rec, nil
}

// Save deduplicates by content fingerprint: an existing live row for the key
// becomes a hit (counter bumped by one), otherwise a new row is committed
// with the default TTL. A single concurrent-insert race is absorbed by one
// fallback read; a second miss after that is a fatal consistency failure.
func (c *Cache) Save(ctx context.Context, p SaveParams) (*store.CachedResult, error) {
	if err := p.Validate(); err != nil {
		return nil, &store.ValidationError{Entity: entityName, Err: err}
	}
	key := p.Key()

	existing, err := c.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return c.recordHit(ctx, existing.ID, key)
	}

	rec := c.newRow(p)
	outcome, err := c.attemptInsert(ctx, rec, key)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case outcomeInserted:
		c.log.Info().
			Stringer("key", key).
			Int64("id", rec.ID).
			Int("content_version", rec.ContentVersion).
			Msg("cached new analysis result")
		return rec, nil

	default: // outcomeConflict
		winner, err := c.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			c.log.Error().Stringer("key", key).Msg("no live row after conflict recovery")
			return nil, &store.ConsistencyError{Key: key}
		}
		c.log.Info().
			Stringer("key", key).
			Int64("id", winner.ID).
			Msg("concurrent insert detected, recovered as cache hit")
		return c.recordHit(ctx, winner.ID, key)
	}
}

func (c *Cache) newRow(p SaveParams) *store.CachedResult {
	now := c.now().UTC()
	rec := &store.CachedResult{
		SessionID:        p.SessionID,
		AnalysisType:     p.AnalysisType,
		ContentVersion:   p.ContentVersion,
		ContentHash:      p.ContentHash,
		Results:          p.Results,
		ProcessingTimeMS: p.ProcessingTimeMS,
		TokensUsed:       p.TokensUsed,
		ModelUsed:        p.ModelUsed,
		CreatedAt:        now,
	}
	if c.cfg.DefaultTTL > 0 {
		expires := now.Add(c.cfg.DefaultTTL)
		rec.ExpiresAt = &expires
	}
	return rec
}

// attemptInsert commits rec in its own transactional unit. Expired occupants
// of the key are retired first so the fresh row can pass the arbiter index
// while the old row stays on disk. A uniqueness violation rolls the unit
// back and is reported as outcomeConflict, not as an error.
func (c *Cache) attemptInsert(ctx context.Context, rec *store.CachedResult, key store.AnalysisKey) (insertOutcome, error) {
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := c.retireExpired(ctx, tx, key); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(rec).Exec(ctx)
		return err
	})
	if err == nil {
		return outcomeInserted, nil
	}
	if storeinfra.IsUniqueViolation(err) {
		return outcomeConflict, nil
	}
	return 0, &store.TxError{Entity: entityName, Op: "insert", Err: err}
}

func (c *Cache) retireExpired(ctx context.Context, idb bun.IDB, key store.AnalysisKey) error {
	_, err := idb.NewUpdate().
		Model((*store.CachedResult)(nil)).
		Set("retired = ?", true).
		Where("session_id = ?", key.SessionID).
		Where("analysis_type = ?", key.AnalysisType).
		Where("content_hash = ?", key.ContentHash).
		Where("retired = ?", false).
		Where("expires_at IS NOT NULL AND expires_at <= ?", c.now().UTC()).
		Exec(ctx)
	return err
}

// recordHit bumps the hit counter by one as a read-then-write inside its own
// transactional unit and returns the refreshed row.
func (c *Cache) recordHit(ctx context.Context, id int64, key store.AnalysisKey) (*store.CachedResult, error) {
	rec := new(store.CachedResult)
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return c.recordHitIn(ctx, tx, id, rec)
	})
	if err != nil {
		return nil, &store.TxError{Entity: entityName, Op: "record hit", Err: err}
	}
	c.log.Debug().
		Stringer("key", key).
		Int64("id", rec.ID).
		Int("cache_hit_count", rec.CacheHitCount).
		Msg("analysis cache hit")
	return rec, nil
}

func (c *Cache) recordHitIn(ctx context.Context, tx bun.Tx, id int64, rec *store.CachedResult) error {
	if err := tx.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx); err != nil {
		return err
	}
	rec.CacheHitCount++
	_, err := tx.NewUpdate().
		Model(rec).
		Column("cache_hit_count").
		WherePK().
		Exec(ctx)
	return err
}

// List returns the session's cached results newest first, optionally
// filtered by analysis type and capped at the query limit.
func (c *Cache) List(ctx context.Context, q ListQuery) ([]*store.CachedResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = c.cfg.DefaultListLimit
	}

	var recs []*store.CachedResult
	sel := c.db.NewSelect().
		Model(&recs).
		Where("session_id = ?", q.SessionID)
	if q.AnalysisType != "" {
		sel = sel.Where("analysis_type = ?", q.AnalysisType)
	}
	err := sel.
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, &store.TxError{Entity: entityName, Op: "list", Err: err}
	}
	return recs, nil
}

// BatchCreate runs the same lookup-or-create decision as Save for every
// entry, all inside one transaction. Dedup here is best effort: there is no
// per-entry race recovery, so a uniqueness violation from a racing writer
// aborts the whole batch with a ConflictError and nothing partially commits.
// Rows created through this path carry no TTL, matching the single-item
// path's batch heritage.
func (c *Cache) BatchCreate(ctx context.Context, entries []SaveParams) ([]*store.CachedResult, error) {
	for _, p := range entries {
		if err := p.Validate(); err != nil {
			return nil, &store.ValidationError{Entity: entityName, Err: err}
		}
	}

	out := make([]*store.CachedResult, len(entries))
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := c.now().UTC()
		for i, p := range entries {
			key := p.Key()

			existing, err := c.lookupIn(ctx, tx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				rec := new(store.CachedResult)
				if err := c.recordHitIn(ctx, tx, existing.ID, rec); err != nil {
					return err
				}
				out[i] = rec
				continue
			}

			if err := c.retireExpired(ctx, tx, key); err != nil {
				return err
			}
			rec := &store.CachedResult{
				SessionID:        p.SessionID,
				AnalysisType:     p.AnalysisType,
				ContentVersion:   p.ContentVersion,
				ContentHash:      p.ContentHash,
				Results:          p.Results,
				ProcessingTimeMS: p.ProcessingTimeMS,
				TokensUsed:       p.TokensUsed,
				ModelUsed:        p.ModelUsed,
				CreatedAt:        now,
			}
			if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
				if storeinfra.IsUniqueViolation(err) {
					return &store.ConflictError{Key: key}
				}
				return err
			}
			out[i] = rec
		}
		return nil
	})
	if err != nil {
		if store.IsConflict(err) {
			c.log.Warn().Err(err).Int("entries", len(entries)).Msg("batch create aborted on conflict")
			return nil, err
		}
		var txErr *store.TxError
		if errors.As(err, &txErr) {
			return nil, err
		}
		return nil, &store.TxError{Entity: entityName, Op: "batch create", Err: err}
	}

	c.log.Info().Int("entries", len(entries)).Msg("batch created analysis results")
	return out, nil
}

// BatchDelete removes the session's rows, restricted to ids when given, and
// returns the exact deleted count.
func (c *Cache) BatchDelete(ctx context.Context, sessionID string, ids []int64) (int64, error) {
	if sessionID == "" {
		return 0, &store.ValidationError{
			Entity: entityName,
			Err:    validation.Errors{"SessionID": validation.ErrRequired},
		}
	}

	del := c.db.NewDelete().
		Model((*store.CachedResult)(nil)).
		Where("session_id = ?", sessionID)
	if len(ids) > 0 {
		del = del.Where("id IN (?)", bun.In(ids))
	}
	res, err := del.Exec(ctx)
	if err != nil {
		return 0, &store.TxError{Entity: entityName, Op: "batch delete", Err: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &store.TxError{Entity: entityName, Op: "batch delete", Err: err}
	}

	c.log.Info().Str("session_id", sessionID).Int64("deleted", deleted).Msg("batch deleted analysis results")
	return deleted, nil
}
