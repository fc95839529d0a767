package model

// Synthetic and inherited column names.
//
// The table parser prepends ColTimestamp and ColURL to every row.
// The flattener reads ColState, ColDistrict, and ColEstablishment from
// ancestor nodes and appends them to every exported judge record.
const (
	// ColTimestamp is the synthetic capture-time column.
	ColTimestamp = "timestamp"

	// ColURL is the synthetic drill-down target column.
	ColURL = "url"

	// ColState is the state (jurisdiction) identifier column.
	ColState = "state"

	// ColDistrict is the district (sub-jurisdiction) identifier column.
	ColDistrict = "district"

	// ColEstablishment is the court establishment (facility) identifier column.
	ColEstablishment = "establishment"
)

// Field is a single named cell value extracted from a table row.
type Field struct {
	// Name is the lowercased, normalized column header.
	Name string `json:"name"`

	// Value is the cell text.
	Value string `json:"value"`
}

// Fields is an ordered column-name to cell-text mapping.
//
// Design decision: We use an ordered slice rather than a map because:
//  1. CSV export columns must follow the source table's display order
//  2. JSON round-trips through the snapshot store must not reorder columns
//  3. Lookups are rare and the field count per row is small
type Fields []Field

// Get returns the value for the named column, or empty string if absent.
func (f Fields) Get(name string) string {
	for _, field := range f {
		if field.Name == name {
			return field.Value
		}
	}
	return ""
}

// Has reports whether the named column is present.
func (f Fields) Has(name string) bool {
	for _, field := range f {
		if field.Name == name {
			return true
		}
	}
	return false
}

// Names returns the column names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Clone returns a copy that shares no backing storage with the receiver.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	clone := make(Fields, len(f))
	copy(clone, f)
	return clone
}
