// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package check

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ldcheck/internal/metrics"
	"github.com/pdiddy/ldcheck/pkg/types"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jsonld", "sub/b.jsonld", "sub/c.json", "sub/notes.txt")

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"file", []string{"a.jsonld"}, []string{"a.jsonld"}},
		{"directory", []string{"sub"}, []string{"sub/b.jsonld", "sub/c.json"}},
		{"glob", []string{"**/*.jsonld"}, []string{"a.jsonld", "sub/b.jsonld"}},
		{"duplicates removed", []string{"sub/b.jsonld", "sub", "./sub/b.jsonld"}, []string{"sub/b.jsonld", "sub/c.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args []string
			for _, a := range tt.args {
				args = append(args, filepath.Join(dir, a))
			}
			got, err := ResolveInputs(args)
			require.NoError(t, err)

			var rel []string
			for _, g := range got {
				r, err := filepath.Rel(dir, g)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.want, rel)
		})
	}
}

func TestResolveInputsErrors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "notes.txt")

	_, err := ResolveInputs([]string{filepath.Join(dir, "missing.jsonld")})
	assert.Error(t, err)

	_, err = ResolveInputs([]string{filepath.Join(dir, "*.jsonld")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents match")

	_, err = ResolveInputs([]string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents under")
}

func TestContextSources(t *testing.T) {
	got, err := ContextSources([]string{
		`{"residesAt": "http://example.org/residesAt"}`,
		"https://www.w3.org/ns/credentials/v2",
		"extra.jsonld",
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, map[string]any{"residesAt": "http://example.org/residesAt"}, got[0])
	assert.Equal(t, "https://www.w3.org/ns/credentials/v2", got[1])

	abs, err := filepath.Abs("extra.jsonld")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got[2].(string), "file://"))
	assert.True(t, strings.HasSuffix(got[2].(string), filepath.ToSlash(abs)))
}

func TestContextSourcesInvalidInline(t *testing.T) {
	_, err := ContextSources([]string{`{"residesAt": `})
	assert.Error(t, err)
}

func TestCheckFilesKeepsInputOrder(t *testing.T) {
	rec := metrics.New()
	c := New(offlineLoader(), Options{Metrics: rec})

	paths := []string{
		credential("credential-fixed.jsonld"),
		credential("missing.jsonld"),
		credential("credential.jsonld"),
		credential("credential-fixed.jsonld"),
	}
	reports, summary := c.CheckFiles(context.Background(), paths, 3)

	require.Len(t, reports, len(paths))
	for i, r := range reports {
		assert.Equal(t, paths[i], r.Path)
	}
	assert.True(t, reports[0].Clean())
	assert.NotEmpty(t, reports[1].Error)
	require.Len(t, reports[2].Events, 1)
	assert.Equal(t, "residesAt", reports[2].Events[0].Details.Property)
	assert.Empty(t, reports[2].Error)

	assert.Equal(t, BatchSummary{Clean: 2, Warned: 1, Failed: 1}, summary)
	assert.Equal(t, 4, summary.Total())

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.DocumentsChecked(metrics.OutcomeClean)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.DocumentsChecked(metrics.OutcomeWarned)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.DocumentsChecked(metrics.OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.PropertiesDropped()))
}

func TestCheckFileSafeModeIsAWarningNotAFailure(t *testing.T) {
	c := New(offlineLoader(), Options{Safe: true})
	r := c.CheckFile(context.Background(), credential("credential.jsonld"))
	assert.Empty(t, r.Error)
	assert.Len(t, r.Events, 1)
}

func TestCheckFilesWithExtraChain(t *testing.T) {
	chain, err := ContextSources([]string{`{"residesAt": "http://example.org/residesAt"}`})
	require.NoError(t, err)

	c := New(offlineLoader(), Options{})
	reports, summary := c.CheckFiles(context.Background(),
		[]string{credential("credential.jsonld")}, 0, chain...)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Clean())
	assert.Equal(t, 1, summary.Clean)
}

func TestBatchSummaryHasFailures(t *testing.T) {
	tests := []struct {
		name    string
		summary BatchSummary
		safe    bool
		want    bool
	}{
		{"all clean", BatchSummary{Clean: 3}, true, false},
		{"warnings without safe", BatchSummary{Clean: 1, Warned: 2}, false, false},
		{"warnings in safe mode", BatchSummary{Clean: 1, Warned: 2}, true, true},
		{"failure", BatchSummary{Failed: 1}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.summary.HasFailures(tt.safe))
		})
	}
}

func TestSummarize(t *testing.T) {
	reports := []types.DocumentReport{
		{Path: "a"},
		{Path: "b", Events: []types.Event{types.NewInvalidPropertyEvent("x")}},
		{Path: "c", Error: "boom", Events: []types.Event{types.NewInvalidPropertyEvent("x")}},
	}
	assert.Equal(t, BatchSummary{Clean: 1, Warned: 1, Failed: 1}, Summarize(reports))
}
