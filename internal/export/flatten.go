package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/courtgrid/internal/model"
)

// ErrTreeNotDone is returned when flattening is attempted on a tree
// that still has unfinished or failed subtrees.
var ErrTreeNotDone = errors.New("tree is not complete")

// Flatten converts a finished tree into one record per judge row, in
// preorder. Each record carries the judge row's own fields followed by
// the establishment, district, and state names inherited from its
// ancestors.
func Flatten(tree *model.Tree) ([]model.Fields, error) {
	if !tree.Done() {
		counts := tree.Count()
		return nil, fmt.Errorf("%w: %d states, %d judges so far", ErrTreeNotDone, counts.States, counts.Judges)
	}

	records := make([]model.Fields, 0)
	for _, state := range tree.States {
		stateName := identity(state, "state")
		for _, district := range state.Children {
			districtName := identity(district, "district")
			for _, court := range district.Children {
				courtName := identity(court, "establishment")
				if courtName == "" {
					courtName = identity(court, "court")
				}
				for _, judge := range court.Children {
					record := judge.Fields.Clone()
					record = append(record,
						model.Field{Name: model.ColEstablishment, Value: courtName},
						model.Field{Name: model.ColDistrict, Value: districtName},
						model.Field{Name: model.ColState, Value: stateName},
					)
					records = append(records, record)
				}
			}
		}
	}
	return records, nil
}

// identity returns the node's display name: the first field whose
// column name mentions the level keyword. The synthetic timestamp and
// url columns never qualify.
func identity(node *model.Node, keyword string) string {
	for _, f := range node.Fields {
		if f.Name == model.ColTimestamp || f.Name == model.ColURL {
			continue
		}
		if strings.Contains(f.Name, keyword) {
			return f.Value
		}
	}
	return ""
}

// Columns returns the union of field names across records in
// first-seen order, with the inherited establishment, district, and
// state columns pinned to the tail. Records fetched from different
// establishments can disagree on columns; the union keeps every value
// addressable while the ancestor columns stay at fixed positions.
func Columns(records []model.Fields) []string {
	inherited := map[string]bool{
		model.ColEstablishment: false,
		model.ColDistrict:      false,
		model.ColState:         false,
	}

	seen := make(map[string]bool)
	columns := make([]string, 0)
	for _, record := range records {
		for _, f := range record {
			if _, ok := inherited[f.Name]; ok {
				inherited[f.Name] = true
				continue
			}
			if !seen[f.Name] {
				seen[f.Name] = true
				columns = append(columns, f.Name)
			}
		}
	}

	for _, name := range []string{model.ColEstablishment, model.ColDistrict, model.ColState} {
		if inherited[name] {
			columns = append(columns, name)
		}
	}
	return columns
}
