// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package check

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ldcheck/pkg/types"
)

func sampleReport() Report {
	reports := []types.DocumentReport{
		{
			Path: "credential.jsonld",
			Properties: []types.PropertyResult{
				{Path: "credentialSubject.residesAt", Property: "residesAt", ExpandedProperty: "residesAt", Kind: types.Unresolved},
			},
			Events: []types.Event{types.NewInvalidPropertyEvent("residesAt")},
		},
		{Path: "credential-fixed.jsonld"},
	}
	return Report{Documents: reports, Summary: Summarize(reports)}
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), types.FormatJSON))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, BatchSummary{Clean: 1, Warned: 1}, got.Summary)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, types.NewInvalidPropertyEvent("residesAt"), got.Documents[0].Events[0])
}

func TestWriteReportYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), types.FormatYAML))

	var got Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got.Summary.Warned)
	assert.Equal(t, "residesAt", got.Documents[0].Events[0].Details.ExpandedProperty)
}

func TestWriteReportUnknownFormat(t *testing.T) {
	err := WriteReport(&bytes.Buffer{}, sampleReport(), "xml")
	assert.Error(t, err)
}

func TestWriteEventMatchesLintSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEvent(&buf, types.NewInvalidPropertyEvent("residesAt")))

	want := `{"type":["JsonLdEvent"],"code":"invalid property","level":"warning",` +
		`"message":"Dropping property that did not expand into an absolute IRI or keyword.",` +
		`"details":{"property":"residesAt","expandedProperty":"residesAt"}}` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSummary(t *testing.T) {
	r := sampleReport()
	r.Documents = append(r.Documents, types.DocumentReport{Path: "broken.jsonld", Error: "parsing broken.jsonld: unexpected EOF"})
	r.Summary = Summarize(r.Documents)

	var buf bytes.Buffer
	WriteSummary(&buf, r.Documents, r.Summary)
	out := buf.String()

	assert.Contains(t, out, "WARN  credential.jsonld: dropped residesAt")
	assert.Contains(t, out, "ok    credential-fixed.jsonld (0 properties)")
	assert.Contains(t, out, "FAIL  broken.jsonld: parsing broken.jsonld: unexpected EOF")
	assert.Contains(t, out, "3 documents: 1 clean, 1 with warnings, 1 failed")
}
