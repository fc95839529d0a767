package export

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
)

// MarkdownWriter outputs a harvest summary in Markdown format.
// This format is designed for sharing run results alongside the CSV.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs the summary. Returns the number of bytes rendered.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeStates(md, summary)
	w.writeAlert(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the overall harvest information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *Summary) {
	md.H1("Harvest Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Category", "`" + summary.Category + "`"},
			{"Entry URL", "`" + summary.RootURL + "`"},
			{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", w.statusText(summary)},
			{"States", strconv.Itoa(summary.Counts.States)},
			{"Districts", strconv.Itoa(summary.Counts.Districts)},
			{"Court Establishments", strconv.Itoa(summary.Counts.Courts)},
			{"Judge Records", strconv.Itoa(summary.Counts.Judges)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell based on summary state.
func (w *MarkdownWriter) statusText(summary *Summary) string {
	if summary.Complete {
		return "✅ Complete"
	}
	return "⏳ In Progress"
}

// writeStates writes the per-state breakdown table.
func (w *MarkdownWriter) writeStates(md *markdown.Markdown, summary *Summary) {
	md.H2("Per-State Breakdown")
	md.PlainText("")

	if len(summary.StateRows) == 0 {
		md.PlainText("No states captured yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.StateRows))
	for i, state := range summary.StateRows {
		name := state.Name
		if state.Failed {
			name += " ⚠️"
		}
		rows[i] = []string{
			name,
			strconv.Itoa(state.Districts),
			strconv.Itoa(state.Courts),
			strconv.Itoa(state.Judges),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"State", "Districts", "Courts", "Judges"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAlert writes an alert reflecting the harvest outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *Summary) {
	switch {
	case summary.Complete:
		md.Tipf("Harvest complete with %d judge records.", summary.Counts.Judges)
	case w.hasFailure(summary):
		md.Warning("Some subtrees failed transiently and will be retried on the next pass.")
	default:
		md.Note("Harvest is still in progress; run again to resume.")
	}
	md.PlainText("")
}

// hasFailure reports whether any state carries a failure marker.
func (w *MarkdownWriter) hasFailure(summary *Summary) bool {
	for _, state := range summary.StateRows {
		if state.Failed {
			return true
		}
	}
	return false
}
