// Package formatting renders the read-only status report in the formats the
// CLI exposes through --output.
//
// Table output is meant for people and is coloured only when the destination
// is a terminal. Plain output prints borderless columns for grep and awk.
// JSON and YAML carry the full report for scripts. Template output executes
// a text/template with the sprig function library against the report.
package formatting

import (
	"fmt"
	"io"
	"strings"

	"quadsync/internal/reconciler"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable    OutputFormat = "table"    // Rich table output
	FormatPlain    OutputFormat = "plain"    // Borderless columns for scripts
	FormatJSON     OutputFormat = "json"     // JSON output
	FormatYAML     OutputFormat = "yaml"     // YAML output
	FormatTemplate OutputFormat = "template" // User supplied text/template
)

// Formats lists every supported output format in help order.
var Formats = []OutputFormat{FormatTable, FormatPlain, FormatJSON, FormatYAML, FormatTemplate}

// ParseFormat validates a --output value. The empty string selects the table.
func ParseFormat(s string) (OutputFormat, error) {
	if s == "" {
		return FormatTable, nil
	}
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q (supported: %s)", s, formatList())
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Options configures the formatter behavior
type Options struct {
	Format   OutputFormat
	Template string // Template text, required for FormatTemplate
	Color    bool   // Enable colored output
}

// StatusRenderer writes a status report to w.
type StatusRenderer interface {
	Render(w io.Writer, report reconciler.StatusReport) error
}

// NewRenderer creates the renderer for the requested format.
func NewRenderer(options Options) (StatusRenderer, error) {
	switch options.Format {
	case FormatPlain:
		return plainRenderer{}, nil
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatYAML:
		return yamlRenderer{}, nil
	case FormatTemplate:
		return newTemplateRenderer(options.Template)
	case FormatTable, "":
		return &TableRenderer{color: options.Color}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", options.Format)
	}
}

// RenderStatus is a convenience wrapper around NewRenderer and Render.
func RenderStatus(w io.Writer, report reconciler.StatusReport, options Options) error {
	r, err := NewRenderer(options)
	if err != nil {
		return err
	}
	return r.Render(w, report)
}
