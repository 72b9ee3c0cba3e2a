// Package store defines the persisted data model shared by the analysis
// stores: cached analysis results keyed by a content fingerprint, the ordered
// child records (solution steps and logic-tree nodes) scoped to a session and
// content version, and append-only debug snapshots.
//
// The row structs carry bun column metadata but callers never touch the
// store engine through them; every operation in the sibling packages accepts
// and returns these plain values together with the typed errors declared
// here. Cross-entity linkage is by shared session id and content version
// only; there are no foreign keys between the tables.
package store
