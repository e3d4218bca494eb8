// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/piprate/json-gold/ld"
	"github.com/sourcegraph/conc/pool"

	"github.com/pdiddy/ldcheck/internal/loader"
	"github.com/pdiddy/ldcheck/internal/metrics"
	"github.com/pdiddy/ldcheck/pkg/types"
)

// documentGlob selects JSON-LD documents under a directory argument.
const documentGlob = "**/*.{jsonld,json}"

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Clean  int `json:"clean" yaml:"clean"`
	Warned int `json:"warned" yaml:"warned"`
	Failed int `json:"failed" yaml:"failed"`
}

// Total returns the number of documents checked.
func (s BatchSummary) Total() int {
	return s.Clean + s.Warned + s.Failed
}

// HasFailures reports whether the batch should fail the run. Any fatal
// document error fails it; in safe mode a dropped property does too.
func (s BatchSummary) HasFailures(safe bool) bool {
	return s.Failed > 0 || (safe && s.Warned > 0)
}

// Summarize counts the outcome of each report.
func Summarize(reports []types.DocumentReport) BatchSummary {
	var s BatchSummary
	for _, r := range reports {
		switch outcome(r) {
		case metrics.OutcomeFailed:
			s.Failed++
		case metrics.OutcomeWarned:
			s.Warned++
		default:
			s.Clean++
		}
	}
	return s
}

func outcome(r types.DocumentReport) string {
	switch {
	case r.Error != "":
		return metrics.OutcomeFailed
	case len(r.Events) > 0:
		return metrics.OutcomeWarned
	default:
		return metrics.OutcomeClean
	}
}

// ResolveInputs expands file, directory and doublestar glob arguments into
// a sorted list of distinct document paths. Directories contribute every
// .jsonld and .json file beneath them.
func ResolveInputs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[{") {
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expanding %q: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no documents match %q", arg)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading input %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(arg, documentGlob), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding directory %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no documents under %s", arg)
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(out)
	return out, nil
}

// ContextSources turns --context arguments into chain entries. Arguments
// starting with { or [ are inline JSON contexts, URLs are kept as is and
// anything else is a local file, made absolute so it resolves the same way
// for every document.
func ContextSources(args []string) ([]any, error) {
	out := make([]any, 0, len(args))
	for _, arg := range args {
		trimmed := strings.TrimSpace(arg)
		switch {
		case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
			v, err := ld.DocumentFromReader(strings.NewReader(trimmed))
			if err != nil {
				return nil, fmt.Errorf("parsing inline context %q: %w", arg, err)
			}
			out = append(out, v)
		case strings.Contains(trimmed, "://"):
			out = append(out, trimmed)
		default:
			u, err := loader.FileURL(trimmed)
			if err != nil {
				return nil, err
			}
			out = append(out, u)
		}
	}
	return out, nil
}

// CheckFile checks one document and folds the outcome into a report. Fatal
// errors are recorded on the report rather than returned.
func (c *Checker) CheckFile(ctx context.Context, path string, chain ...any) types.DocumentReport {
	start := time.Now()
	report := types.DocumentReport{Path: path}

	res, err := c.ExpandFile(ctx, path, chain...)
	if res != nil {
		report.Properties = res.Properties
		report.Events = res.Events
		report.Expanded = res.Expanded
	}
	var unsafe *UnsafeError
	if err != nil && !errors.As(err, &unsafe) {
		report.Error = err.Error()
	}
	report.Duration = time.Since(start)

	c.opts.Metrics.ObserveDocument(outcome(report), len(report.Events), report.Duration)
	c.logger.Debug("checked document",
		"doc", path,
		"properties", len(report.Properties),
		"warnings", len(report.Events),
		"error", report.Error,
		"elapsed", report.Duration)
	return report
}

// CheckFiles checks paths with at most workers documents in flight and
// returns their reports in input order.
func (c *Checker) CheckFiles(ctx context.Context, paths []string, workers int, chain ...any) ([]types.DocumentReport, BatchSummary) {
	if workers <= 0 {
		workers = 1
	}

	type indexed struct {
		i      int
		report types.DocumentReport
	}

	p := pool.NewWithResults[indexed]().WithContext(ctx).WithMaxGoroutines(workers)
	for i, path := range paths {
		p.Go(func(ctx context.Context) (indexed, error) {
			return indexed{i: i, report: c.CheckFile(ctx, path, chain...)}, nil
		})
	}
	results, _ := p.Wait()

	reports := make([]types.DocumentReport, len(paths))
	for _, r := range results {
		reports[r.i] = r.report
	}
	return reports, Summarize(reports)
}
