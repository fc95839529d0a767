package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/nao1215/courtgrid/internal/model"
)

// CSVWriter writes flattened records as CSV.
//
// Design decision: The header row is the union of every record's
// columns in first-seen order, not just the first record's columns.
// Establishments occasionally render extra columns on their judge
// tables; pinning the header to the first record would silently drop
// those values for every later establishment. The inherited
// establishment, district, and state columns always close the header,
// so downstream consumers can address them by position.
type CSVWriter struct {
	output io.Writer
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{output: output}
}

// Write outputs the records with a header row. Records missing a
// column get an empty cell. Returns the number of data rows written.
func (w *CSVWriter) Write(records []model.Fields) (int, error) {
	columns := Columns(records)

	cw := csv.NewWriter(w.output)
	if err := cw.Write(columns); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(columns))
	for i, record := range records {
		for j, col := range columns {
			row[j] = record.Get(col)
		}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(records), fmt.Errorf("failed to flush CSV: %w", err)
	}
	return len(records), nil
}
