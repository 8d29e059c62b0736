package formatting

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"quadsync/internal/reconciler"
	strutil "quadsync/pkg/strings"
)

// Column limits keep the table within a typical terminal width.
const (
	maxDescriptionLen = 32
	maxImageLen       = 40
	maxPathLen        = 48
)

// TableRenderer prints the report as a rounded go-pretty table followed by
// the ignored and foreign sections.
type TableRenderer struct {
	color bool
}

// NewTableRenderer creates a table renderer. Colour should only be enabled
// for terminals, see ShouldColorize.
func NewTableRenderer(color bool) *TableRenderer {
	return &TableRenderer{color: color}
}

func (r *TableRenderer) Render(w io.Writer, report reconciler.StatusReport) error {
	fmt.Fprintf(w, "Target: %s\n", report.TargetDir)
	for i, root := range report.SourceRoots {
		fmt.Fprintf(w, "Source %d: %s\n", i+1, root)
	}
	fmt.Fprintln(w)

	if len(report.Units) == 0 {
		fmt.Fprintln(w, r.paint(text.FgYellow, "No units found"))
	} else {
		t := r.createTable(w)
		t.AppendHeader(table.Row{"Unit", "Description", "Drift", "State", "Image", "Source"})
		for _, u := range report.Units {
			t.AppendRow(table.Row{
				u.Name,
				dash(strutil.Truncate(u.Description, maxDescriptionLen)),
				r.drift(u),
				u.State,
				dash(strutil.Truncate(u.Image, maxImageLen)),
				dash(strutil.TruncatePath(u.SourcePath, maxPathLen)),
			})
		}
		t.Render()
	}

	if len(report.Ignored) > 0 {
		fmt.Fprintf(w, "\n%s\n", r.paint(text.FgHiBlue, "Ignored definitions (shadowed by an earlier root):"))
		for _, def := range report.Ignored {
			fmt.Fprintf(w, "  %s  %s\n", def.Name, filepath.Dir(def.SourcePath))
		}
	}

	if len(report.Foreign) > 0 {
		fmt.Fprintf(w, "\n%s\n", r.paint(text.FgHiBlue, "Foreign entries (left untouched):"))
		for _, entry := range report.Foreign {
			fmt.Fprintf(w, "  %s  %s\n", entry.Name, entry.Reason)
		}
	}

	drifted := report.Drifted()
	summary := fmt.Sprintf("%d units, %d drifted", len(report.Units), drifted)
	if drifted > 0 {
		summary = r.paint(text.FgYellow, summary)
	} else {
		summary = r.paint(text.FgGreen, summary)
	}
	fmt.Fprintf(w, "\n%s\n", summary)
	return nil
}

// createTable creates a new table with standard styling
func (r *TableRenderer) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (r *TableRenderer) drift(u reconciler.UnitStatus) string {
	label := string(u.Drift)
	switch {
	case u.Conflict != "":
		label = fmt.Sprintf("%s (%s)", label, u.Conflict)
	case u.Broken:
		label += " (broken)"
	}

	switch u.Drift {
	case reconciler.DriftInSync:
		return r.paint(text.FgGreen, label)
	case reconciler.DriftConflict:
		return r.paint(text.FgRed, label)
	default:
		return r.paint(text.FgYellow, label)
	}
}

func (r *TableRenderer) paint(c text.Color, s string) string {
	if !r.color {
		return s
	}
	return c.Sprint(s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
