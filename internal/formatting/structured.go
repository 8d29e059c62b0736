package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"quadsync/internal/reconciler"
)

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, report reconciler.StatusReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode status as json: %w", err)
	}
	return nil
}

type yamlRenderer struct{}

func (yamlRenderer) Render(w io.Writer, report reconciler.StatusReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode status as yaml: %w", err)
	}
	return enc.Close()
}
