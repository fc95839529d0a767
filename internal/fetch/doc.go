// Package fetch retrieves one report page and extracts its statistics
// table into child nodes.
//
// A fetch is the unit the crawler composes: given an authenticated
// session and a drill-down URL, it downloads the page, locates the
// report table, and returns one node per data row with the header-named
// cell values and the resolved child link. Failures the portal is known
// to recover from (timeouts, non-2xx statuses, connection error pages)
// are reported as an error-sentinel result so the crawler can record
// them for retry instead of aborting the pass.
package fetch
