package fetch

import (
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/courtgrid/internal/model"
)

// timestampLayout is the capture-time format stored in the synthetic
// timestamp column.
const timestampLayout = "2006-01-02 15:04:05"

// linkCellIndex is the zero-based position of the cell that carries the
// drill-down link on every report level.
const linkCellIndex = 3

// parseTable extracts the report table from an HTML page into child
// nodes, one per data row.
//
// The portal renders every report page with the same skeleton: a layout
// table first, then the report table. The report table's thead carries
// a title row followed by the real header row, and its body mixes data
// rows with full-width separator rows that span all columns.
func parseTable(r io.Reader, resolve func(string) string, now time.Time) ([]*model.Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	tables := doc.Find("table")
	if tables.Length() < 2 {
		return nil, ErrUnexpectedShape
	}
	table := tables.Eq(1)

	headers := headerNames(table)
	if len(headers) == 0 {
		return nil, ErrUnexpectedShape
	}

	nodes := make([]*model.Node, 0)
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		node := parseRow(row, headers, resolve, now)
		if node != nil {
			nodes = append(nodes, node)
		}
	})

	// Some levels render rows without a tbody wrapper.
	if len(nodes) == 0 {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if row.ParentsFiltered("thead").Length() > 0 {
				return
			}
			if row.Find("th").Length() > 0 {
				return
			}
			node := parseRow(row, headers, resolve, now)
			if node != nil {
				nodes = append(nodes, node)
			}
		})
	}

	return nodes, nil
}

// headerNames reads the column names from the report table header.
// The first thead row is a title banner; the second carries the names.
func headerNames(table *goquery.Selection) []string {
	rows := table.Find("thead tr")
	if rows.Length() < 2 {
		return nil
	}

	var names []string
	rows.Eq(1).Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		names = append(names, normalizeHeader(cell.Text()))
	})
	return names
}

// parseRow turns one table row into a node, or nil if the row is a
// separator or carries no data.
func parseRow(row *goquery.Selection, headers []string, resolve func(string) string, now time.Time) *model.Node {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return nil
	}

	// Separator rows span the full table width with a colspan.
	if _, ok := cells.First().Attr("colspan"); ok {
		return nil
	}

	fields := model.Fields{
		{Name: model.ColTimestamp, Value: now.Format(timestampLayout)},
		{Name: model.ColURL, Value: ""},
	}

	childURL := ""
	empty := true
	cells.Each(func(i int, cell *goquery.Selection) {
		if i >= len(headers) {
			return
		}
		value := cleanText(cell.Text())
		if value != "" {
			empty = false
		}
		fields = append(fields, model.Field{Name: headers[i], Value: value})

		if i == linkCellIndex {
			if href, ok := cell.Find("a").First().Attr("href"); ok {
				childURL = resolve(href)
			}
		}
	})
	if empty {
		return nil
	}

	fields[1].Value = childURL

	status := model.StatusPending
	if childURL == "" {
		// Nothing beneath a linkless row; it is complete on capture.
		status = model.StatusDone
	}

	return &model.Node{
		URL:       childURL,
		Timestamp: now,
		Fields:    fields,
		Status:    status,
	}
}

// normalizeHeader lowercases a column header and folds its Unicode
// presentation forms so the same column always gets the same name.
// The portal mixes non-breaking spaces and full-width characters into
// header cells depending on the level.
func normalizeHeader(s string) string {
	return strings.ToLower(cleanText(norm.NFKC.String(s)))
}

// cleanText trims a cell value and collapses internal whitespace runs,
// including non-breaking spaces, into single spaces.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
