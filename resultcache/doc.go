// Package resultcache implements the content-addressable result cache: a
// lookup-or-create store for expensive analysis results keyed by
// (session_id, analysis_type, content_hash).
//
// Save deliberately races concurrent writers instead of serializing them
// ahead of time. It looks the key up without holding any lock, attempts the
// insert, and reconciles after the fact when the store's unique index
// rejects the row: the losing writer rolls back and re-reads the winner
// exactly once, folding into a cache hit. The insert attempt is modeled as a
// tagged outcome rather than error-driven control flow, and a second miss
// after the one allowed recovery surfaces as a fatal ConsistencyError.
//
// The store's isolation level must be at least read committed; otherwise the
// fallback read is not guaranteed to observe the winner and the recovery
// guarantee does not hold.
package resultcache
