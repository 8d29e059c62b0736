package formatting

import (
	"fmt"
	"io"
	"strings"

	"quadsync/internal/reconciler"
)

// PlainTableWriter writes kubectl-style columns without box-drawing
// characters, so output can be piped to grep, awk or cut.
type PlainTableWriter struct {
	headers      []string
	rows         [][]string
	columnWidths []int
	minPadding   int
	showHeaders  bool
	output       io.Writer
}

// NewPlainTableWriter creates a plain table writer. Headers are shown
// unless SetNoHeaders(true) is called.
func NewPlainTableWriter(output io.Writer) *PlainTableWriter {
	return &PlainTableWriter{
		minPadding:  3,
		showHeaders: true,
		output:      output,
	}
}

// SetHeaders sets the column headers. They are printed in upper case.
func (w *PlainTableWriter) SetHeaders(headers []string) {
	w.headers = make([]string, len(headers))
	w.columnWidths = make([]int, len(headers))
	for i, h := range headers {
		upper := strings.ToUpper(h)
		w.headers[i] = upper
		w.columnWidths[i] = len(upper)
	}
}

// SetNoHeaders controls whether to suppress the header row.
func (w *PlainTableWriter) SetNoHeaders(noHeaders bool) {
	w.showHeaders = !noHeaders
}

// AppendRow adds a row, padding or cutting it to the header count.
func (w *PlainTableWriter) AppendRow(row []string) {
	normalized := make([]string, len(w.headers))
	for i := range w.headers {
		if i < len(row) {
			normalized[i] = row[i]
			if len(row[i]) > w.columnWidths[i] {
				w.columnWidths[i] = len(row[i])
			}
		}
	}
	w.rows = append(w.rows, normalized)
}

// Render writes the table.
func (w *PlainTableWriter) Render() {
	if len(w.headers) == 0 {
		return
	}
	if len(w.rows) == 0 && !w.showHeaders {
		return
	}

	if w.showHeaders {
		w.printRow(w.headers)
	}
	for _, row := range w.rows {
		w.printRow(row)
	}
}

func (w *PlainTableWriter) printRow(row []string) {
	var sb strings.Builder
	for i, cell := range row {
		if i == len(row)-1 {
			sb.WriteString(cell)
			continue
		}
		fmt.Fprintf(&sb, "%-*s", w.columnWidths[i]+w.minPadding, cell)
	}
	fmt.Fprintln(w.output, strings.TrimRight(sb.String(), " "))
}

// plainRenderer prints one line per unit and nothing else.
type plainRenderer struct{}

func (plainRenderer) Render(w io.Writer, report reconciler.StatusReport) error {
	t := NewPlainTableWriter(w)
	t.SetHeaders([]string{"unit", "service", "drift", "state", "image"})
	for _, u := range report.Units {
		t.AppendRow([]string{u.Name, u.Service, string(u.Drift), u.State, dash(u.Image)})
	}
	t.Render()
	return nil
}
