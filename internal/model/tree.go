package model

import "time"

// Tree is the rooted collection of state nodes for one report category.
//
// The root level itself is the result of a single fetch against the
// category's entry URL and is not persisted as a node; its rows become
// the States slice.
type Tree struct {
	// Category is the report category this tree was harvested for,
	// e.g. "totalpending_cases".
	Category string `json:"category"`

	// RootURL is the entry URL the state level was fetched from.
	RootURL string `json:"root_url"`

	// States are the top-level nodes in table display order.
	States []*Node `json:"states,omitempty"`
}

// NewTree creates an empty tree for the given category and entry URL.
func NewTree(category, rootURL string) *Tree {
	return &Tree{
		Category: category,
		RootURL:  rootURL,
	}
}

// Done reports whether the tree is export-ready: the state level has
// been fetched and every state with a drill-down URL is Done.
func (t *Tree) Done() bool {
	if len(t.States) == 0 {
		return false
	}
	for _, s := range t.States {
		if s.ErrorFlag {
			return false
		}
		if s.URL != "" && s.Status != StatusDone {
			return false
		}
	}
	return true
}

// Counts summarizes how many nodes exist at each level of the tree.
type Counts struct {
	// States is the number of top-level nodes.
	States int

	// Districts is the number of second-level nodes.
	Districts int

	// Courts is the number of third-level nodes.
	Courts int

	// Judges is the number of leaf records.
	Judges int
}

// Count walks the tree and tallies nodes per level.
func (t *Tree) Count() Counts {
	var c Counts
	for _, state := range t.States {
		c.States++
		for _, district := range state.Children {
			c.Districts++
			for _, court := range district.Children {
				c.Courts++
				c.Judges += len(court.Children)
			}
		}
	}
	return c
}

// Snapshot is the atomic unit of persistence: a tree and its matching
// progress counter, saved and loaded together so a reader never
// observes one without the other.
type Snapshot struct {
	// Tree is the crawl tree as of the last save.
	Tree *Tree `json:"tree"`

	// Counter is the number of judge records captured so far. It is
	// reporting state only and has no effect on crawl correctness.
	Counter int `json:"counter"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`
}
