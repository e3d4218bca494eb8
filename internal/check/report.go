// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ldcheck/pkg/types"
)

// Report is the rendered output of an expand run.
type Report struct {
	Documents []types.DocumentReport `json:"documents" yaml:"documents"`
	Summary   BatchSummary           `json:"summary" yaml:"summary"`
}

// WriteReport renders r to w in format. An empty format means JSON.
func WriteReport(w io.Writer, r Report, format types.ReportFormat) error {
	switch format {
	case types.FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case types.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown report format %q (want json or yaml)", format)
	}
}

// WriteEvent writes ev as one line of JSON, the lint output format.
func WriteEvent(w io.Writer, ev types.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// WriteSummary prints one line per document and a totals line.
func WriteSummary(w io.Writer, reports []types.DocumentReport, s BatchSummary) {
	for _, r := range reports {
		switch {
		case r.Error != "":
			fmt.Fprintf(w, "FAIL  %s: %s\n", r.Path, r.Error)
		case len(r.Events) > 0:
			props := make([]string, len(r.Events))
			for i, ev := range r.Events {
				props[i] = ev.Details.Property
			}
			fmt.Fprintf(w, "WARN  %s: dropped %s\n", r.Path, strings.Join(props, ", "))
		default:
			fmt.Fprintf(w, "ok    %s (%d properties)\n", r.Path, len(r.Properties))
		}
	}
	fmt.Fprintf(w, "\n%d documents: %d clean, %d with warnings, %d failed\n",
		s.Total(), s.Clean, s.Warned, s.Failed)
}
