// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ResolutionKind records how a key or type value was resolved.
type ResolutionKind string

const (
	ResolvedTerm     ResolutionKind = "term"
	ResolvedCompact  ResolutionKind = "compact"
	ResolvedAbsolute ResolutionKind = "absolute"
	ResolvedBlank    ResolutionKind = "blank"
	ResolvedVocab    ResolutionKind = "vocab"
	ResolvedKeyword  ResolutionKind = "keyword"
	Unresolved       ResolutionKind = "unresolved"
)

// PropertyResult is the outcome of resolving one key (or one @type value)
// of a document.
type PropertyResult struct {
	// Path locates the key in the document, e.g. "residesAt.streetAddress".
	Path string `json:"path" yaml:"path"`

	// Property is the key as written in the document.
	Property string `json:"property" yaml:"property"`

	// ExpandedProperty is the absolute IRI on success, or the attempted
	// expansion (the key itself) on failure.
	ExpandedProperty string `json:"expandedProperty" yaml:"expandedProperty"`

	// Kind records how the key resolved.
	Kind ResolutionKind `json:"kind" yaml:"kind"`

	// IsType is true for @type values rather than keys.
	IsType bool `json:"is_type,omitempty" yaml:"is_type,omitempty"`
}

// Resolved reports whether the key expanded to an absolute IRI or keyword.
func (p PropertyResult) Resolved() bool {
	return p.Kind != Unresolved
}

// DocumentReport is the outcome of checking one document.
type DocumentReport struct {
	// Path is the document location as given on the command line.
	Path string `json:"path" yaml:"path"`

	// Properties lists every key and type value that was resolved or dropped.
	Properties []PropertyResult `json:"properties" yaml:"properties"`

	// Events holds one warning per distinct unresolved key.
	Events []Event `json:"events" yaml:"events"`

	// Expanded is the JSON-LD expanded form produced by the processor.
	Expanded []any `json:"expanded,omitempty" yaml:"expanded,omitempty"`

	// Error records a fatal failure (unreadable file, unloadable context).
	// Empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Duration is how long the check took.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Clean reports whether the document was checked without warnings or errors.
func (r DocumentReport) Clean() bool {
	return r.Error == "" && len(r.Events) == 0
}

// RunRecord is a persisted summary of one expand invocation.
type RunRecord struct {
	ID         string           `json:"id" yaml:"id"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	Safe       bool             `json:"safe" yaml:"safe"`
	Contexts   []string         `json:"contexts,omitempty" yaml:"contexts,omitempty"`
	Documents  []DocumentReport `json:"documents" yaml:"documents"`
}

// Warnings returns the total number of warning events in the run.
func (r RunRecord) Warnings() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Events)
	}
	return n
}

// Failed returns the number of documents that hit a fatal error.
func (r RunRecord) Failed() int {
	n := 0
	for _, d := range r.Documents {
		if d.Error != "" {
			n++
		}
	}
	return n
}
