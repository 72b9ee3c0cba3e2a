// Package childwriter bulk-persists the caller-ordered child records of an
// analysis run: solution steps and logic-tree nodes, both scoped to
// (session_id, content_version). Order keys are stored verbatim; dependency
// lists on tree nodes are passed through without cycle or dangling-reference
// checks.
package childwriter

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-analysis-store/store"
)

// Writer owns the steps and tree_nodes tables.
type Writer struct {
	db  *bun.DB
	log zerolog.Logger
	now func() time.Time
}

// New constructs a child writer on the given handle.
func New(db *bun.DB, log zerolog.Logger) *Writer {
	return &Writer{db: db, log: log, now: time.Now}
}

// SaveSteps creates one row per step in a single transaction, stamping each
// with the scope and a creation time. Step order keys are persisted exactly
// as supplied. The input slice is returned with storage identities assigned.
func (w *Writer) SaveSteps(ctx context.Context, sessionID string, contentVersion int, steps []*store.Step) ([]*store.Step, error) {
	if err := validateScope(sessionID, contentVersion); err != nil {
		return nil, &store.ValidationError{Entity: "step", Err: err}
	}
	if len(steps) == 0 {
		return nil, nil
	}

	now := w.now().UTC()
	for _, s := range steps {
		s.SessionID = sessionID
		s.ContentVersion = contentVersion
		s.CreatedAt = now
	}

	err := w.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&steps).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, &store.TxError{Entity: "step", Op: "save many", Err: err}
	}

	w.log.Info().
		Str("session_id", sessionID).
		Int("content_version", contentVersion).
		Int("steps", len(steps)).
		Msg("saved solution steps")
	return steps, nil
}

// Steps returns the session's steps ordered by step_order ascending.
// Passing a nil contentVersion returns steps across all versions.
func (w *Writer) Steps(ctx context.Context, sessionID string, contentVersion *int) ([]*store.Step, error) {
	var steps []*store.Step
	sel := w.db.NewSelect().
		Model(&steps).
		Where("session_id = ?", sessionID)
	if contentVersion != nil {
		sel = sel.Where("content_version = ?", *contentVersion)
	}
	if err := sel.Order("step_order ASC", "id ASC").Scan(ctx); err != nil {
		return nil, &store.TxError{Entity: "step", Op: "get many", Err: err}
	}
	return steps, nil
}

// SaveTreeNodes creates one row per node in a single transaction. Node ids
// and dependency lists are stored as given; uniqueness of node_id within the
// scope is a caller convention, not enforced here.
func (w *Writer) SaveTreeNodes(ctx context.Context, sessionID string, contentVersion int, nodes []*store.TreeNode) ([]*store.TreeNode, error) {
	if err := validateScope(sessionID, contentVersion); err != nil {
		return nil, &store.ValidationError{Entity: "tree_node", Err: err}
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	now := w.now().UTC()
	for _, n := range nodes {
		n.SessionID = sessionID
		n.ContentVersion = contentVersion
		if n.NodeType == "" {
			n.NodeType = "intermediate"
		}
		if n.Status == "" {
			n.Status = "incomplete"
		}
		n.CreatedAt = now
	}

	err := w.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&nodes).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, &store.TxError{Entity: "tree_node", Op: "save many", Err: err}
	}

	w.log.Info().
		Str("session_id", sessionID).
		Int("content_version", contentVersion).
		Int("nodes", len(nodes)).
		Msg("saved logic tree nodes")
	return nodes, nil
}

// TreeNodes returns the session's nodes ordered by (level, id) ascending.
// The id tie-break is the stable storage identity, not a semantic ordering.
// Passing a nil contentVersion returns nodes across all versions.
func (w *Writer) TreeNodes(ctx context.Context, sessionID string, contentVersion *int) ([]*store.TreeNode, error) {
	var nodes []*store.TreeNode
	sel := w.db.NewSelect().
		Model(&nodes).
		Where("session_id = ?", sessionID)
	if contentVersion != nil {
		sel = sel.Where("content_version = ?", *contentVersion)
	}
	if err := sel.Order("level ASC", "id ASC").Scan(ctx); err != nil {
		return nil, &store.TxError{Entity: "tree_node", Op: "get many", Err: err}
	}
	return nodes, nil
}

func validateScope(sessionID string, contentVersion int) error {
	return validation.Errors{
		"SessionID":      validation.Validate(sessionID, validation.Required),
		"ContentVersion": validation.Validate(contentVersion, validation.Min(0)),
	}.Filter()
}
