package tracestore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-analysis-store/pkg/testsupport"
	"github.com/goliatone/go-analysis-store/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(testsupport.NewDB(t), zerolog.Nop())
}

func TestAppendDefaultsEmptyPayloads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	snap, err := s.Append(ctx, AppendParams{SessionID: sessionID})
	require.NoError(t, err)

	assert.NotZero(t, snap.ID)
	assert.JSONEq(t, `[]`, string(snap.ExecutionTrace))
	assert.JSONEq(t, `{}`, string(snap.CurrentState))
	assert.JSONEq(t, `[]`, string(snap.Insights))
	assert.Equal(t, store.StringList{}, snap.Warnings)
	assert.Equal(t, store.StringList{}, snap.NextActions)
	assert.Nil(t, snap.BreakpointStepID)
}

func TestAppendPersistsPayloads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	stepID := int64(42)
	stepNumber := 3
	snap, err := s.Append(ctx, AppendParams{
		SessionID:            sessionID,
		BreakpointStepID:     &stepID,
		BreakpointStepNumber: &stepNumber,
		ExecutionTrace:       json.RawMessage(`[{"op":"substitute"}]`),
		CurrentState:         json.RawMessage(`{"x":3}`),
		Insights:             json.RawMessage(`["x is now bound"]`),
		Warnings:             store.StringList{"division by variable"},
		NextActions:          store.StringList{"verify domain"},
	})
	require.NoError(t, err)

	got, err := s.Recent(ctx, sessionID, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, snap.ID, got[0].ID)
	require.NotNil(t, got[0].BreakpointStepID)
	assert.Equal(t, stepID, *got[0].BreakpointStepID)
	assert.JSONEq(t, `{"x":3}`, string(got[0].CurrentState))
	assert.Equal(t, store.StringList{"division by variable"}, got[0].Warnings)
}

func TestAppendRequiresSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append(context.Background(), AppendParams{})
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "debug_snapshot", verr.Entity)
}

func TestRecentNewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	base := time.Now().UTC().Truncate(time.Second)
	var ids []int64
	for i := 0; i < 3; i++ {
		i := i
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		snap, err := s.Append(ctx, AppendParams{SessionID: sessionID})
		require.NoError(t, err)
		ids = append(ids, snap.ID)
	}

	got, err := s.Recent(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)

	// Zero limit falls back to the default cap.
	all, err := s.Recent(ctx, sessionID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecentScopedToSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mine := testsupport.SessionID()
	_, err := s.Append(ctx, AppendParams{SessionID: mine})
	require.NoError(t, err)
	_, err = s.Append(ctx, AppendParams{SessionID: testsupport.SessionID()})
	require.NoError(t, err)

	got, err := s.Recent(ctx, mine, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine, got[0].SessionID)
}
