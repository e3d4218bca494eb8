// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// exportLimit bounds the number of runs in an export.
const exportLimit = 100000

// ExportYAML writes the run history matching q to w as YAML.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, q RunQuery) error {
	runs, err := s.exportRuns(ctx, q)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the run history matching q to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, q RunQuery) error {
	runs, err := s.exportRuns(ctx, q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportRuns(ctx context.Context, q RunQuery) ([]RunSummary, error) {
	if q.Limit <= 0 {
		q.Limit = exportLimit
	}
	runs, err := s.Runs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if runs == nil {
		runs = []RunSummary{}
	}
	return runs, nil
}
