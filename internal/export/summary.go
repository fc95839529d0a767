package export

import (
	"time"

	"github.com/nao1215/courtgrid/internal/model"
)

// Summary is a human-readable digest of a harvest: overall counts plus
// a per-state breakdown. It can be built from an unfinished tree, which
// the status command uses to show mid-harvest progress.
type Summary struct {
	// Category is the harvested report category.
	Category string

	// RootURL is the entry URL the harvest started from.
	RootURL string

	// Complete reports whether the tree is export-ready.
	Complete bool

	// Counts tallies nodes per hierarchy level.
	Counts model.Counts

	// Counter is the persisted judge record counter.
	Counter int

	// GeneratedAt is when the summary was built.
	GeneratedAt time.Time

	// StateRows is the per-state breakdown in table display order.
	StateRows []StateSummary
}

// StateSummary is the per-state slice of the harvest.
type StateSummary struct {
	// Name is the state's display name.
	Name string

	// Failed reports whether the state currently carries an error
	// sentinel.
	Failed bool

	// Districts, Courts, and Judges count the nodes beneath the state.
	Districts int
	Courts    int
	Judges    int
}

// NewSummary digests a tree and its counter into a Summary.
func NewSummary(tree *model.Tree, counter int) *Summary {
	s := &Summary{
		Category:    tree.Category,
		RootURL:     tree.RootURL,
		Complete:    tree.Done(),
		Counts:      tree.Count(),
		Counter:     counter,
		GeneratedAt: time.Now(),
	}

	for _, state := range tree.States {
		row := StateSummary{
			Name:   identity(state, "state"),
			Failed: state.ErrorFlag || state.Status == model.StatusError,
		}
		if row.Name == "" && state.ErrorFlag {
			row.Name = "(entry fetch failed)"
		}
		for _, district := range state.Children {
			row.Districts++
			for _, court := range district.Children {
				row.Courts++
				row.Judges += len(court.Children)
			}
		}
		s.StateRows = append(s.StateRows, row)
	}
	return s
}
