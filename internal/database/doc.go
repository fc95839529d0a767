// Package database provides SQLite-based storage for crawl state.
//
// This package implements the StateDB, which stores:
//   - Resumable crawl snapshots, one per report category
//   - Pass history for progress reporting
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of a
// plain JSON file because:
//  1. A transaction gives the atomic tree-plus-counter write the
//     resume semantics depend on; a half-written JSON file does not
//  2. CGO-free implementation allows easy cross-compilation
//  3. WAL mode keeps the previous snapshot intact if the process is
//     killed mid-write
//  4. Pass history falls out of an ordinary append-only table
package database
