// Package repositories implements the SQLite run journal.
//
// Each sync run is stored in the runs table together with its totals, and every page/target outcome of the run in
// the outcomes table.
//
// Key Implementations:
//   - [RunRepository] : Run persistence implementing models.Repository[*models.Run]
//   - [OutcomeRepository] : Append-only per-target outcomes keyed by run
//   - [Journal] : The sync engine's journal hook backed by both repositories
//
// Sequence numbers give runs a stable, human-readable ordering (run #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
