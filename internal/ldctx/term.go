// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ldctx

// Term is one entry of the term table.
type Term struct {
	// Name is the short term as used in documents.
	Name string `json:"name" yaml:"name"`

	// IRI is the absolute IRI, blank node identifier or keyword the term
	// maps to. Empty when Null is set.
	IRI string `json:"iri" yaml:"iri"`

	// Null is set for terms explicitly defined as null. Such terms never
	// resolve.
	Null bool `json:"null,omitempty" yaml:"null,omitempty"`

	// Reverse marks @reverse properties.
	Reverse bool `json:"reverse,omitempty" yaml:"reverse,omitempty"`

	// Type is the @type coercion, if any.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Container lists @container values.
	Container []string `json:"container,omitempty" yaml:"container,omitempty"`

	// Scoped is the term's scoped @context. HasScoped distinguishes an
	// explicit null scoped context from none.
	Scoped    any  `json:"-" yaml:"-"`
	HasScoped bool `json:"scoped,omitempty" yaml:"scoped,omitempty"`

	// Source names the context source that defined the term.
	Source string `json:"source" yaml:"source"`
}

// newTerm reads a json-gold term definition. def is nil for a null term.
func newTerm(name string, def any, source string) *Term {
	t := &Term{Name: name, Source: source}
	m, ok := def.(map[string]any)
	if !ok || m == nil {
		t.Null = true
		return t
	}

	t.IRI, _ = m["@id"].(string)
	t.Reverse, _ = m["@reverse"].(bool)
	t.Type, _ = m["@type"].(string)
	if containers, ok := m["@container"].([]any); ok {
		for _, c := range containers {
			if s, ok := c.(string); ok {
				t.Container = append(t.Container, s)
			}
		}
	}
	t.Scoped, t.HasScoped = m["@context"]
	return t
}

// target identifies what a definition maps to, for shadow detection.
func target(def any) string {
	m, ok := def.(map[string]any)
	if !ok || m == nil {
		return "null"
	}
	id, _ := m["@id"].(string)
	if rev, _ := m["@reverse"].(bool); rev {
		return "@reverse " + id
	}
	return id
}

// Shadow records a term that a later source redefined with a different IRI.
type Shadow struct {
	Term           string `json:"term" yaml:"term"`
	Previous       string `json:"previous" yaml:"previous"`
	Current        string `json:"current" yaml:"current"`
	PreviousSource string `json:"previous_source" yaml:"previous_source"`
	Source         string `json:"source" yaml:"source"`
}
