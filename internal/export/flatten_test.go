package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/courtgrid/internal/model"
)

func doneNode(url string, fields model.Fields, children ...*model.Node) *model.Node {
	return &model.Node{
		URL:       url,
		Timestamp: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Fields:    fields,
		Children:  children,
		Status:    model.StatusDone,
	}
}

func judge(name string, extra ...model.Field) *model.Node {
	fields := model.Fields{
		{Name: model.ColTimestamp, Value: "2026-08-24 12:00:00"},
		{Name: model.ColURL, Value: ""},
		{Name: "judge name", Value: name},
		{Name: "pending", Value: "10"},
	}
	fields = append(fields, extra...)
	return doneNode("", fields)
}

// newDoneTree builds a finished two-state tree:
//
//	State X -> District A -> Court C1 -> judges J1, J2
//	State Y -> District B -> Court C2 -> judge J3
func newDoneTree() *model.Tree {
	tree := model.NewTree("totalpending_cases", "http://x/root")
	tree.States = []*model.Node{
		doneNode("http://x/stateX",
			model.Fields{{Name: "state name", Value: "X"}},
			doneNode("http://x/districtA",
				model.Fields{{Name: "district name", Value: "A"}},
				doneNode("http://x/courtC1",
					model.Fields{{Name: "establishment name", Value: "C1"}},
					judge("J1"),
					judge("J2"),
				),
			),
		),
		doneNode("http://x/stateY",
			model.Fields{{Name: "state name", Value: "Y"}},
			doneNode("http://x/districtB",
				model.Fields{{Name: "district name", Value: "B"}},
				doneNode("http://x/courtC2",
					model.Fields{{Name: "establishment name", Value: "C2"}},
					judge("J3", model.Field{Name: "disposed", Value: "4"}),
				),
			),
		),
	}
	return tree
}

// TestFlatten tests record extraction and ancestor inheritance.
func TestFlatten(t *testing.T) {
	t.Parallel()

	t.Run("flattens judges in preorder with inherited ancestors", func(t *testing.T) {
		t.Parallel()

		records, err := Flatten(newDoneTree())
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}

		wantJudges := []string{"J1", "J2", "J3"}
		for i, want := range wantJudges {
			if got := records[i].Get("judge name"); got != want {
				t.Errorf("record %d: expected judge %q, got %q", i, want, got)
			}
		}

		first := records[0]
		if first.Get(model.ColState) != "X" {
			t.Errorf("expected inherited state X, got %q", first.Get(model.ColState))
		}
		if first.Get(model.ColDistrict) != "A" {
			t.Errorf("expected inherited district A, got %q", first.Get(model.ColDistrict))
		}
		if first.Get(model.ColEstablishment) != "C1" {
			t.Errorf("expected inherited establishment C1, got %q", first.Get(model.ColEstablishment))
		}

		last := records[2]
		if last.Get(model.ColState) != "Y" || last.Get(model.ColDistrict) != "B" {
			t.Errorf("expected J3 under Y/B, got %q/%q",
				last.Get(model.ColState), last.Get(model.ColDistrict))
		}

		// Inherited columns come after the judge's own fields.
		names := first.Names()
		if names[len(names)-1] != model.ColState {
			t.Errorf("expected state as last column, got %v", names)
		}
	})

	t.Run("unfinished tree is refused", func(t *testing.T) {
		t.Parallel()

		tree := newDoneTree()
		tree.States[1].Status = model.StatusPending

		if _, err := Flatten(tree); !errors.Is(err, ErrTreeNotDone) {
			t.Errorf("expected ErrTreeNotDone, got %v", err)
		}
	})

	t.Run("tree with sentinel is refused", func(t *testing.T) {
		t.Parallel()

		tree := newDoneTree()
		tree.States = append(tree.States, model.NewSentinelNode("http://x/root"))

		if _, err := Flatten(tree); !errors.Is(err, ErrTreeNotDone) {
			t.Errorf("expected ErrTreeNotDone, got %v", err)
		}
	})

	t.Run("flattening does not mutate judge fields", func(t *testing.T) {
		t.Parallel()

		tree := newDoneTree()
		before := len(tree.States[0].Children[0].Children[0].Children[0].Fields)

		if _, err := Flatten(tree); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		after := len(tree.States[0].Children[0].Children[0].Children[0].Fields)
		if before != after {
			t.Errorf("judge fields mutated: %d -> %d", before, after)
		}
	})
}

// TestCSVWriter tests CSV rendering of flattened records.
func TestCSVWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes union header and empty cells for missing columns", func(t *testing.T) {
		t.Parallel()

		records, err := Flatten(newDoneTree())
		if err != nil {
			t.Fatalf("failed to flatten: %v", err)
		}

		var buf bytes.Buffer
		n, err := NewCSVWriter(&buf).Write(records)
		if err != nil {
			t.Fatalf("failed to write CSV: %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3 data rows, got %d", n)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
		}

		header := strings.Split(lines[0], ",")
		// J3 carries a "disposed" column J1 and J2 lack; the union
		// header must still include it.
		found := false
		for _, col := range header {
			if col == "disposed" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected union header with disposed column, got %v", header)
		}

		// J1 has no disposed value, so its row carries an empty cell
		// at that position.
		disposedIdx := -1
		for i, col := range header {
			if col == "disposed" {
				disposedIdx = i
			}
		}
		j1 := strings.Split(lines[1], ",")
		if j1[disposedIdx] != "" {
			t.Errorf("expected empty cell for missing column, got %q", j1[disposedIdx])
		}
		j3 := strings.Split(lines[3], ",")
		if j3[disposedIdx] != "4" {
			t.Errorf("expected disposed value 4 for J3, got %q", j3[disposedIdx])
		}
	})

	t.Run("inherited columns close the header", func(t *testing.T) {
		t.Parallel()

		records, err := Flatten(newDoneTree())
		if err != nil {
			t.Fatalf("failed to flatten: %v", err)
		}

		// J3 introduces "disposed" after the first record was seen; it
		// must slot in before the inherited columns, not after them.
		columns := Columns(records)
		if len(columns) < 3 {
			t.Fatalf("unexpectedly short header: %v", columns)
		}
		tail := columns[len(columns)-3:]
		want := []string{model.ColEstablishment, model.ColDistrict, model.ColState}
		for i, name := range want {
			if tail[i] != name {
				t.Fatalf("expected header tail %v, got %v", want, tail)
			}
		}
		for _, col := range columns[:len(columns)-3] {
			if col == model.ColState || col == model.ColDistrict || col == model.ColEstablishment {
				t.Errorf("inherited column %q duplicated in body: %v", col, columns)
			}
		}
	})

	t.Run("no records yields header only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewCSVWriter(&buf).Write(nil)
		if err != nil {
			t.Fatalf("failed to write CSV: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 rows, got %d", n)
		}
	})
}

// TestMarkdownWriter tests the run summary rendering.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders counts and per-state table", func(t *testing.T) {
		t.Parallel()

		summary := NewSummary(newDoneTree(), 3)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(summary); err != nil {
			t.Fatalf("failed to write summary: %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"Harvest Summary",
			"totalpending_cases",
			"Per-State Breakdown",
			"| X |",
			"| Y |",
			"Complete",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("incomplete tree renders in-progress note", func(t *testing.T) {
		t.Parallel()

		tree := newDoneTree()
		tree.States[0].Status = model.StatusPending
		summary := NewSummary(tree, 2)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(summary); err != nil {
			t.Fatalf("failed to write summary: %v", err)
		}
		if !strings.Contains(buf.String(), "In Progress") {
			t.Error("expected in-progress status in summary")
		}
	})
}

// TestNewSummary tests summary digestion of a tree.
func TestNewSummary(t *testing.T) {
	t.Parallel()

	summary := NewSummary(newDoneTree(), 3)

	if !summary.Complete {
		t.Error("expected complete summary for done tree")
	}
	if summary.Counts.Judges != 3 {
		t.Errorf("expected 3 judges, got %d", summary.Counts.Judges)
	}
	if len(summary.StateRows) != 2 {
		t.Fatalf("expected 2 state rows, got %d", len(summary.StateRows))
	}
	if summary.StateRows[0].Name != "X" || summary.StateRows[0].Judges != 2 {
		t.Errorf("unexpected first state row: %+v", summary.StateRows[0])
	}
}
