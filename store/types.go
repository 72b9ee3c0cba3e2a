package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// AnalysisKey is the business key of a cached result. At most one live
// (non-expired) row may exist per key; the store's unique index over these
// three columns is the only arbiter between concurrent writers.
type AnalysisKey struct {
	SessionID    string
	AnalysisType string
	ContentHash  string
}

func (k AnalysisKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.SessionID, k.AnalysisType, k.ContentHash)
}

// CachedResult is one deduplicated analysis result. Rows are created by the
// result cache and mutated only to bump CacheHitCount; nothing deletes them
// except an explicit batch delete. A row whose ExpiresAt lies in the past is
// invisible to lookups but stays physically present for raw scans.
type CachedResult struct {
	bun.BaseModel `bun:"table:cached_results,alias:cr"`

	ID             int64           `bun:"id,pk,autoincrement"`
	SessionID      string          `bun:"session_id,notnull"`
	AnalysisType   string          `bun:"analysis_type,notnull"`
	ContentVersion int             `bun:"content_version,notnull"`
	ContentHash    string          `bun:"content_hash,notnull"`
	Results        json.RawMessage `bun:"results"`

	ProcessingTimeMS int64  `bun:"processing_time_ms"`
	TokensUsed       int    `bun:"tokens_used"`
	ModelUsed        string `bun:"model_used"`

	CacheHitCount int `bun:"cache_hit_count,notnull"`

	// Retired marks rows that were expired and then superseded by a fresh
	// insert for the same key. Only non-retired rows participate in the
	// unique arbiter index; retired rows are kept for raw scans.
	Retired bool `bun:"retired,notnull"`

	CreatedAt time.Time  `bun:"created_at,notnull"`
	ExpiresAt *time.Time `bun:"expires_at"`
}

// Key returns the business key of the row.
func (r *CachedResult) Key() AnalysisKey {
	return AnalysisKey{SessionID: r.SessionID, AnalysisType: r.AnalysisType, ContentHash: r.ContentHash}
}

// Expired reports whether the row is logically invisible at the given time.
func (r *CachedResult) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// Step is one ordered solution step scoped to (session_id, content_version).
// StepOrder is the caller-supplied order key and is persisted verbatim; the
// writer does not validate it for uniqueness, contiguity or monotonicity.
type Step struct {
	bun.BaseModel `bun:"table:steps,alias:st"`

	ID             int64  `bun:"id,pk,autoincrement"`
	SessionID      string `bun:"session_id,notnull"`
	ContentVersion int    `bun:"content_version,notnull"`

	StepNumber int    `bun:"step_number,notnull"`
	StepOrder  int    `bun:"step_order,notnull"`
	Content    string `bun:"content"`

	Formula      string `bun:"formula"`
	SymbolicForm string `bun:"symbolic_form"`

	VariablesBefore     json.RawMessage `bun:"variables_before"`
	VariablesAfter      json.RawMessage `bun:"variables_after"`
	VariablesIntroduced json.RawMessage `bun:"variables_introduced"`

	IsValid           *bool           `bun:"is_valid"`
	ValidationDetails json.RawMessage `bun:"validation_details"`
	Errors            StringList      `bun:"errors"`
	Warnings          StringList      `bun:"warnings"`
	NextStepHint      string          `bun:"next_step_hint"`

	StartPos int `bun:"start_pos"`
	EndPos   int `bun:"end_pos"`

	CreatedAt time.Time `bun:"created_at,notnull"`
}

// TreeNode is one logic-tree node scoped to (session_id, content_version).
// NodeID is caller assigned and unique within the scope by convention only.
// DependsOn and RequiredBy are logical references: plain node-id lists the
// store neither resolves nor checks, so cycles and dangling references are
// possible and any consumer that needs a true DAG must validate them itself.
type TreeNode struct {
	bun.BaseModel `bun:"table:tree_nodes,alias:tn"`

	ID             int64  `bun:"id,pk,autoincrement"`
	SessionID      string `bun:"session_id,notnull"`
	ContentVersion int    `bun:"content_version,notnull"`

	NodeID   string `bun:"node_id,notnull"`
	NodeType string `bun:"node_type,notnull"`

	Content      string `bun:"content"`
	SymbolicForm string `bun:"symbolic_form"`
	Description  string `bun:"description"`

	Level    int             `bun:"level,notnull"`
	Position json.RawMessage `bun:"position"`

	DependsOn  StringList `bun:"depends_on"`
	RequiredBy StringList `bun:"required_by"`

	Status               string   `bun:"status"`
	CompletionPercentage *float64 `bun:"completion_percentage"`
	Reasoning            string   `bun:"reasoning"`
	FormulaUsed          string   `bun:"formula_used"`

	CreatedAt time.Time `bun:"created_at,notnull"`
}

// DebugSnapshot is one immutable debug capture for a session. Snapshots form
// an append-only log: there is no update or delete path for this entity.
type DebugSnapshot struct {
	bun.BaseModel `bun:"table:debug_snapshots,alias:ds"`

	ID        int64  `bun:"id,pk,autoincrement"`
	SessionID string `bun:"session_id,notnull"`

	BreakpointStepID     *int64 `bun:"breakpoint_step_id"`
	BreakpointStepNumber *int   `bun:"breakpoint_step_number"`

	ExecutionTrace json.RawMessage `bun:"execution_trace"`
	CurrentState   json.RawMessage `bun:"current_state"`
	Insights       json.RawMessage `bun:"insights"`

	Warnings    StringList `bun:"warnings"`
	NextActions StringList `bun:"next_actions"`

	CreatedAt time.Time `bun:"created_at,notnull"`
}
