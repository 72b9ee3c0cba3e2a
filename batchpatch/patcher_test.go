package batchpatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-analysis-store/childwriter"
	"github.com/goliatone/go-analysis-store/pkg/testsupport"
	"github.com/goliatone/go-analysis-store/store"
)

func newTestPatcher(t *testing.T) (*Patcher, *bun.DB) {
	t.Helper()
	db := testsupport.NewDB(t)
	return New(db, zerolog.Nop()), db
}

func seedSteps(t *testing.T, db *bun.DB, n int) []*store.Step {
	t.Helper()
	w := childwriter.New(db, zerolog.Nop())
	steps := make([]*store.Step, n)
	for i := range steps {
		steps[i] = &store.Step{StepNumber: i + 1, StepOrder: (i + 1) * 10, Content: "original"}
	}
	saved, err := w.SaveSteps(context.Background(), testsupport.SessionID(), 1, steps)
	require.NoError(t, err)
	return saved
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }

func TestPatchStepsAppliesSetFields(t *testing.T) {
	p, db := newTestPatcher(t)
	ctx := context.Background()
	steps := seedSteps(t, db, 1)

	warnings := store.StringList{"check sign"}
	updated, err := p.PatchSteps(ctx, []StepPatch{{
		StepID:            steps[0].ID,
		Content:           strPtr("rewritten"),
		IsValid:           boolPtr(true),
		ValidationDetails: json.RawMessage(`{"rule":"algebra"}`),
		Warnings:          &warnings,
		StartPos:          intPtr(4),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got := new(store.Step)
	require.NoError(t, db.NewSelect().Model(got).Where("id = ?", steps[0].ID).Scan(ctx))
	assert.Equal(t, "rewritten", got.Content)
	require.NotNil(t, got.IsValid)
	assert.True(t, *got.IsValid)
	assert.JSONEq(t, `{"rule":"algebra"}`, string(got.ValidationDetails))
	assert.Equal(t, store.StringList{"check sign"}, got.Warnings)
	assert.Equal(t, 4, got.StartPos)

	// Unset fields stay untouched.
	assert.Equal(t, 1, got.StepNumber)
	assert.Equal(t, 10, got.StepOrder)
	assert.Empty(t, got.Formula)
}

func TestPatchStepsSkipsMissingTargets(t *testing.T) {
	p, db := newTestPatcher(t)
	ctx := context.Background()
	steps := seedSteps(t, db, 1)

	updated, err := p.PatchSteps(ctx, []StepPatch{
		{StepID: steps[0].ID, Content: strPtr("patched")},
		{StepID: steps[0].ID + 1000, Content: strPtr("ghost")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got := new(store.Step)
	require.NoError(t, db.NewSelect().Model(got).Where("id = ?", steps[0].ID).Scan(ctx))
	assert.Equal(t, "patched", got.Content)
}

func TestPatchStepsEmptyPatchStillCountsTarget(t *testing.T) {
	p, db := newTestPatcher(t)
	steps := seedSteps(t, db, 1)

	updated, err := p.PatchSteps(context.Background(), []StepPatch{{StepID: steps[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
}

func TestPatchStepsMultipleTargets(t *testing.T) {
	p, db := newTestPatcher(t)
	ctx := context.Background()
	steps := seedSteps(t, db, 3)

	updated, err := p.PatchSteps(ctx, []StepPatch{
		{StepID: steps[0].ID, Formula: strPtr("x = 1")},
		{StepID: steps[2].ID, Formula: strPtr("x = 3")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	middle := new(store.Step)
	require.NoError(t, db.NewSelect().Model(middle).Where("id = ?", steps[1].ID).Scan(ctx))
	assert.Empty(t, middle.Formula)
}

func TestPatchStepsRequiresTargetIdentity(t *testing.T) {
	p, _ := newTestPatcher(t)

	_, err := p.PatchSteps(context.Background(), []StepPatch{{StepID: 0}})
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "step", verr.Entity)
}

func TestPatchStepsEmptyBatch(t *testing.T) {
	p, _ := newTestPatcher(t)

	updated, err := p.PatchSteps(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, updated)
}
