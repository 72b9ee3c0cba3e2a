// Package batchpatch applies allow-listed field updates across existing
// step rows in one transaction. The patchable fields are an explicit typed
// schema: a field outside StepPatch cannot be expressed at all, so there is
// no silently-ignored unknown key. Targets that do not exist are skipped and
// excluded from the returned count; they never fail the batch.
package batchpatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-analysis-store/store"
)

// Patcher applies batch field updates to steps.
type Patcher struct {
	db  *bun.DB
	log zerolog.Logger
}

// New constructs a patcher on the given handle.
func New(db *bun.DB, log zerolog.Logger) *Patcher {
	return &Patcher{db: db, log: log}
}

// StepPatch targets one step by storage identity. Nil fields are left
// untouched; non-nil fields overwrite. This is the complete allow-list of
// patchable step columns.
type StepPatch struct {
	StepID int64

	Content      *string
	Formula      *string
	SymbolicForm *string

	VariablesBefore json.RawMessage
	VariablesAfter  json.RawMessage

	IsValid           *bool
	ValidationDetails json.RawMessage
	Errors            *store.StringList
	Warnings          *store.StringList
	NextStepHint      *string

	StartPos *int
	EndPos   *int
}

// Validate rejects patches without a target identity.
func (p StepPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.StepID, validation.Required, validation.Min(int64(1))),
	)
}

// apply copies the set fields onto the loaded row and returns the columns
// that changed.
func (p StepPatch) apply(s *store.Step) []string {
	var cols []string
	if p.Content != nil {
		s.Content = *p.Content
		cols = append(cols, "content")
	}
	if p.Formula != nil {
		s.Formula = *p.Formula
		cols = append(cols, "formula")
	}
	if p.SymbolicForm != nil {
		s.SymbolicForm = *p.SymbolicForm
		cols = append(cols, "symbolic_form")
	}
	if p.VariablesBefore != nil {
		s.VariablesBefore = p.VariablesBefore
		cols = append(cols, "variables_before")
	}
	if p.VariablesAfter != nil {
		s.VariablesAfter = p.VariablesAfter
		cols = append(cols, "variables_after")
	}
	if p.IsValid != nil {
		s.IsValid = p.IsValid
		cols = append(cols, "is_valid")
	}
	if p.ValidationDetails != nil {
		s.ValidationDetails = p.ValidationDetails
		cols = append(cols, "validation_details")
	}
	if p.Errors != nil {
		s.Errors = *p.Errors
		cols = append(cols, "errors")
	}
	if p.Warnings != nil {
		s.Warnings = *p.Warnings
		cols = append(cols, "warnings")
	}
	if p.NextStepHint != nil {
		s.NextStepHint = *p.NextStepHint
		cols = append(cols, "next_step_hint")
	}
	if p.StartPos != nil {
		s.StartPos = *p.StartPos
		cols = append(cols, "start_pos")
	}
	if p.EndPos != nil {
		s.EndPos = *p.EndPos
		cols = append(cols, "end_pos")
	}
	return cols
}

// PatchSteps loads each target, applies the set fields and commits every
// change in one transaction. It returns how many targets were found and
// updated. Partial existence is tolerated; partial transaction failure is
// not.
func (p *Patcher) PatchSteps(ctx context.Context, patches []StepPatch) (int, error) {
	for _, patch := range patches {
		if err := patch.Validate(); err != nil {
			return 0, &store.ValidationError{Entity: "step", Err: err}
		}
	}

	updated := 0
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, patch := range patches {
			step := new(store.Step)
			err := tx.NewSelect().Model(step).Where("id = ?", patch.StepID).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return err
			}

			cols := patch.apply(step)
			if len(cols) > 0 {
				if _, err := tx.NewUpdate().Model(step).Column(cols...).WherePK().Exec(ctx); err != nil {
					return err
				}
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, &store.TxError{Entity: "step", Op: "batch patch", Err: err}
	}

	p.log.Info().Int("requested", len(patches)).Int("updated", updated).Msg("batch patched steps")
	return updated, nil
}
