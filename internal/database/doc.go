// Package database provides SQLite-based storage for linkrank runs.
//
// This package implements the RankDB, which stores:
//   - One row per run with its parameters and the full JSON report
//   - One row per page per run with the sampled and iterated estimates
//
// Stored runs back the history command: listing ranked corpora, showing
// past runs of a corpus, and tracing one page's rank over time.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
