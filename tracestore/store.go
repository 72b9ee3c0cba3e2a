// Package tracestore persists immutable debug snapshots as an append-only
// log per session. There is deliberately no update or delete path.
package tracestore

import (
	"context"
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-analysis-store/store"
)

const defaultRecentLimit = 10

// Store owns the debug_snapshots table.
type Store struct {
	db  *bun.DB
	log zerolog.Logger
	now func() time.Time
}

// New constructs a trace store on the given handle.
func New(db *bun.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log, now: time.Now}
}

// AppendParams carries one snapshot. Trace, state and insight payloads are
// opaque; omitted payloads default to empty JSON collections.
type AppendParams struct {
	SessionID string

	BreakpointStepID     *int64
	BreakpointStepNumber *int

	ExecutionTrace json.RawMessage
	CurrentState   json.RawMessage
	Insights       json.RawMessage
	Warnings       store.StringList
	NextActions    store.StringList
}

// Validate rejects malformed requests before anything is written.
func (p AppendParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.SessionID, validation.Required),
	)
}

// Append creates exactly one immutable snapshot row.
func (s *Store) Append(ctx context.Context, p AppendParams) (*store.DebugSnapshot, error) {
	if err := p.Validate(); err != nil {
		return nil, &store.ValidationError{Entity: "debug_snapshot", Err: err}
	}

	snap := &store.DebugSnapshot{
		SessionID:            p.SessionID,
		BreakpointStepID:     p.BreakpointStepID,
		BreakpointStepNumber: p.BreakpointStepNumber,
		ExecutionTrace:       store.OrEmptyArray(p.ExecutionTrace),
		CurrentState:         store.OrEmptyObject(p.CurrentState),
		Insights:             store.OrEmptyArray(p.Insights),
		Warnings:             p.Warnings,
		NextActions:          p.NextActions,
		CreatedAt:            s.now().UTC(),
	}
	if snap.Warnings == nil {
		snap.Warnings = store.StringList{}
	}
	if snap.NextActions == nil {
		snap.NextActions = store.StringList{}
	}

	if _, err := s.db.NewInsert().Model(snap).Exec(ctx); err != nil {
		return nil, &store.TxError{Entity: "debug_snapshot", Op: "append", Err: err}
	}

	s.log.Info().
		Str("session_id", p.SessionID).
		Int64("id", snap.ID).
		Msg("appended debug snapshot")
	return snap, nil
}

// Recent returns the most recent snapshots for the session, newest first.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]*store.DebugSnapshot, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	var snaps []*store.DebugSnapshot
	err := s.db.NewSelect().
		Model(&snaps).
		Where("session_id = ?", sessionID).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, &store.TxError{Entity: "debug_snapshot", Op: "recent", Err: err}
	}
	return snaps, nil
}
