package formatting

import (
	"errors"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"quadsync/internal/reconciler"
)

// templateRenderer executes a user template with the report as dot. The
// sprig text functions are available, e.g.
//
//	{{ range .Units }}{{ .Name | upper }} {{ .Drift }}{{ "\n" }}{{ end }}
type templateRenderer struct {
	tmpl *template.Template
}

func newTemplateRenderer(text string) (*templateRenderer, error) {
	if text == "" {
		return nil, errors.New("--output template requires --template")
	}
	tmpl, err := template.New("status").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse status template: %w", err)
	}
	return &templateRenderer{tmpl: tmpl}, nil
}

func (r *templateRenderer) Render(w io.Writer, report reconciler.StatusReport) error {
	if err := r.tmpl.Execute(w, report); err != nil {
		return fmt.Errorf("execute status template: %w", err)
	}
	return nil
}
