package childwriter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-analysis-store/pkg/testsupport"
	"github.com/goliatone/go-analysis-store/store"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	return New(testsupport.NewDB(t), zerolog.Nop())
}

func intPtr(v int) *int { return &v }

func TestSaveStepsAssignsScopeAndIdentity(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	steps := []*store.Step{
		{StepNumber: 1, StepOrder: 10, Content: "isolate x", Formula: "2x = 6"},
		{StepNumber: 2, StepOrder: 20, Content: "divide both sides", Formula: "x = 3"},
	}
	saved, err := w.SaveSteps(ctx, sessionID, 3, steps)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	for _, s := range saved {
		assert.NotZero(t, s.ID)
		assert.Equal(t, sessionID, s.SessionID)
		assert.Equal(t, 3, s.ContentVersion)
		assert.False(t, s.CreatedAt.IsZero())
	}
}

func TestStepsOrderedByStepOrder(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	// Insert out of order; reads must come back sorted by the order key.
	steps := []*store.Step{
		{StepNumber: 3, StepOrder: 30, Content: "third"},
		{StepNumber: 1, StepOrder: 10, Content: "first"},
		{StepNumber: 2, StepOrder: 20, Content: "second"},
	}
	_, err := w.SaveSteps(ctx, sessionID, 1, steps)
	require.NoError(t, err)

	got, err := w.Steps(ctx, sessionID, intPtr(1))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].StepOrder, got[i].StepOrder)
	}
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "third", got[2].Content)
}

func TestStepsDuplicateOrderKeysPreserved(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	// Order keys are caller-owned; duplicates are stored as given and the
	// id tie-break keeps reads deterministic.
	steps := []*store.Step{
		{StepNumber: 1, StepOrder: 10, Content: "a"},
		{StepNumber: 2, StepOrder: 10, Content: "b"},
	}
	_, err := w.SaveSteps(ctx, sessionID, 1, steps)
	require.NoError(t, err)

	got, err := w.Steps(ctx, sessionID, intPtr(1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, "b", got[1].Content)
}

func TestStepsVersionScoping(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	_, err := w.SaveSteps(ctx, sessionID, 1, []*store.Step{{StepNumber: 1, StepOrder: 10}})
	require.NoError(t, err)
	_, err = w.SaveSteps(ctx, sessionID, 2, []*store.Step{
		{StepNumber: 1, StepOrder: 10},
		{StepNumber: 2, StepOrder: 20},
	})
	require.NoError(t, err)

	v2, err := w.Steps(ctx, sessionID, intPtr(2))
	require.NoError(t, err)
	assert.Len(t, v2, 2)

	all, err := w.Steps(ctx, sessionID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := w.Steps(ctx, sessionID, intPtr(9))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveStepsEmptyIsNoOp(t *testing.T) {
	w := newTestWriter(t)

	saved, err := w.SaveSteps(context.Background(), testsupport.SessionID(), 1, nil)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestSaveStepsRequiresSession(t *testing.T) {
	w := newTestWriter(t)

	_, err := w.SaveSteps(context.Background(), "", 1, []*store.Step{{StepNumber: 1}})
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "step", verr.Entity)
}

func TestSaveTreeNodesDefaults(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	nodes := []*store.TreeNode{
		{NodeID: "root", NodeType: "premise", Level: 0, Status: "complete"},
		{NodeID: "n1", Level: 1},
	}
	saved, err := w.SaveTreeNodes(ctx, sessionID, 1, nodes)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, "premise", saved[0].NodeType)
	assert.Equal(t, "complete", saved[0].Status)
	assert.Equal(t, "intermediate", saved[1].NodeType)
	assert.Equal(t, "incomplete", saved[1].Status)
}

func TestTreeNodesOrderedByLevel(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	nodes := []*store.TreeNode{
		{NodeID: "leaf", Level: 2},
		{NodeID: "root", Level: 0},
		{NodeID: "mid", Level: 1},
	}
	_, err := w.SaveTreeNodes(ctx, sessionID, 1, nodes)
	require.NoError(t, err)

	got, err := w.TreeNodes(ctx, sessionID, intPtr(1))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "root", got[0].NodeID)
	assert.Equal(t, "mid", got[1].NodeID)
	assert.Equal(t, "leaf", got[2].NodeID)
}

func TestTreeNodesDependencyListsPassThrough(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()
	sessionID := testsupport.SessionID()

	// Dangling and cyclic references are legal; the store does not resolve
	// them.
	nodes := []*store.TreeNode{
		{
			NodeID:     "a",
			Level:      0,
			DependsOn:  store.StringList{"b", "ghost"},
			RequiredBy: store.StringList{"b"},
			Position:   json.RawMessage(`{"x":1,"y":2}`),
		},
		{
			NodeID:    "b",
			Level:     1,
			DependsOn: store.StringList{"a"},
		},
	}
	_, err := w.SaveTreeNodes(ctx, sessionID, 1, nodes)
	require.NoError(t, err)

	got, err := w.TreeNodes(ctx, sessionID, intPtr(1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, store.StringList{"b", "ghost"}, got[0].DependsOn)
	assert.Equal(t, store.StringList{"b"}, got[0].RequiredBy)
	assert.Equal(t, store.StringList{"a"}, got[1].DependsOn)
	assert.JSONEq(t, `{"x":1,"y":2}`, string(got[0].Position))
}
