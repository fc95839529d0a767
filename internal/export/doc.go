// Package export turns a finished crawl tree into its deliverables:
// the flat CSV of judge records and a human-readable run summary.
//
// Flattening is refused while the tree is incomplete. A partial export
// is worse than none because nothing in the CSV marks the missing
// subtrees; the snapshot store already preserves partial progress for
// resumption.
package export
