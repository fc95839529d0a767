// Package model defines the core data structures used throughout courtgrid.
//
// This package contains the following main types:
//   - Node: One entry in the harvest hierarchy (state, district, court, judge)
//   - Tree: The rooted collection of state nodes for one report category
//   - Snapshot: The atomic persistence unit (tree plus progress counter)
//   - Fields: An ordered column-name to cell-text mapping
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (fetch, crawl, database, export) need to use
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for snapshot storage and
// to keep column order stable across save/load cycles.
package model
