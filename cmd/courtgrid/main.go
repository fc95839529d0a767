// Package main provides the entry point for the courtgrid CLI.
//
// courtgrid harvests judge-level case statistics from the National
// Judicial Data Grid portal. It drills down through the state,
// district, and court establishment levels, persists progress so an
// interrupted harvest resumes where it stopped, and flattens the
// finished hierarchy into a CSV.
//
// Usage:
//
//	courtgrid harvest
//	courtgrid harvest totalpending_cases disposed_cases
//	courtgrid export
//	courtgrid status
//
// See --help for all available options.
package main

// main is the entry point for courtgrid.
func main() {
	Execute()
}
