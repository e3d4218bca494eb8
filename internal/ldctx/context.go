// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ldctx composes a JSON-LD context chain into a single term table and
// resolves document keys against it. Context processing is json-gold's; this
// package applies the chain one source at a time and records what each
// source changed.
//
// Sources are merged left to right. A later source may add terms or override
// earlier ones; an override with a different IRI wins silently and is kept as
// a Shadow for introspection. @protected is not enforced. Type terms and
// predicate terms live in the same flat table and are looked up
// independently: nothing here associates a type with the predicates that may
// appear next to it.
package ldctx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/piprate/json-gold/ld"

	"github.com/pdiddy/ldcheck/pkg/types"
)

var (
	ErrInvalidContext        = errors.New("invalid local context")
	ErrInvalidRemoteContext  = errors.New("invalid remote context")
	ErrLoadingContext        = errors.New("loading remote context failed")
	ErrContextOverflow       = errors.New("context overflow")
	ErrCyclicIRIMapping      = errors.New("cyclic IRI mapping")
	ErrInvalidIRIMapping     = errors.New("invalid IRI mapping")
	ErrInvalidTermDefinition = errors.New("invalid term definition")
	ErrInvalidVocabMapping   = errors.New("invalid vocab mapping")
)

// codes maps json-gold error codes to the errors above. Anything else is
// reported as ErrInvalidContext.
var codes = map[ld.ErrorCode]error{
	ld.CyclicIRIMapping:           ErrCyclicIRIMapping,
	ld.InvalidIRIMapping:          ErrInvalidIRIMapping,
	ld.InvalidKeywordAlias:        ErrInvalidIRIMapping,
	ld.InvalidReverseProperty:     ErrInvalidIRIMapping,
	ld.InvalidTermDefinition:      ErrInvalidTermDefinition,
	ld.KeywordRedefinition:        ErrInvalidTermDefinition,
	ld.InvalidTypeMapping:         ErrInvalidTermDefinition,
	ld.InvalidContainerMapping:    ErrInvalidTermDefinition,
	ld.InvalidLanguageMapping:     ErrInvalidTermDefinition,
	ld.InvalidVocabMapping:        ErrInvalidVocabMapping,
	ld.InvalidRemoteContext:       ErrInvalidRemoteContext,
	ld.LoadingRemoteContextFailed: ErrLoadingContext,
	ld.RecursiveContextInclusion:  ErrContextOverflow,
}

// Loader fetches a context document by URL.
type Loader interface {
	LoadContext(ctx context.Context, u string) (*ld.RemoteDocument, error)
}

// Context is an immutable term table. Parse returns a new Context and never
// modifies its receiver.
type Context struct {
	ld   *ld.Context
	dl   *DocumentLoader
	base string

	sources []string
	shadows []Shadow

	// origins maps a term to the source that last changed its definition.
	origins map[string]string
}

// New returns an empty context. base is used to resolve relative context
// references (typically the document URL); dl fetches referenced contexts
// and may be nil when only inline contexts are used.
func New(dl ld.DocumentLoader, base string) *Context {
	loader := NewDocumentLoader(dl)
	opts := ld.NewJsonLdOptions(base)
	opts.DocumentLoader = loader
	return &Context{
		ld:      ld.NewContext(nil, opts),
		dl:      loader,
		base:    base,
		origins: make(map[string]string),
	}
}

// Parse applies a local context (null, a reference, an object or an array of
// those) on top of c and returns the result. Array entries are applied one
// at a time so each can be named as a source.
func (c *Context) Parse(ctx context.Context, local any) (*Context, error) {
	var entries []any
	switch v := local.(type) {
	case []any:
		entries = v
	case []string:
		for _, s := range v {
			entries = append(entries, s)
		}
	default:
		entries = []any{local}
	}

	result := c
	for i, entry := range entries {
		name := result.sourceName(entry, i, len(entries))
		next, err := result.apply(ctx, entry, name)
		if err != nil {
			return nil, err
		}
		result = next
	}
	return result, nil
}

// ParseScoped applies the scoped context of t on top of c.
func (c *Context) ParseScoped(ctx context.Context, t *Term) (*Context, error) {
	if t == nil || !t.HasScoped {
		return c, nil
	}
	return c.apply(ctx, t.Scoped, "scoped:"+t.Name)
}

func (c *Context) sourceName(entry any, i, n int) string {
	switch v := entry.(type) {
	case nil:
		return "null"
	case string:
		base, _ := c.ld.AsMap()["values"].(map[string]any)["@base"].(string)
		return ld.Resolve(base, v)
	default:
		if n == 1 {
			return "inline"
		}
		return fmt.Sprintf("inline[%d]", i)
	}
}

// apply runs json-gold context processing for one source and diffs the term
// definitions before and after it.
func (c *Context) apply(ctx context.Context, local any, source string) (*Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.dl.begin()
	parsed, err := parse(c.ld, Unprotect(local))
	loaded, lerr := c.dl.end()
	if err != nil {
		if lerr != nil {
			return nil, loadError(lerr)
		}
		return nil, translate(err)
	}

	result := &Context{
		ld:      parsed,
		dl:      c.dl,
		base:    c.base,
		sources: append([]string(nil), c.sources...),
		shadows: append([]Shadow(nil), c.shadows...),
		origins: make(map[string]string),
	}
	result.sources = append(result.sources, source)
	for _, u := range loaded {
		if u != source {
			result.sources = append(result.sources, u)
		}
	}

	before := c.definitions()
	if local == nil {
		before = nil
	}
	after := result.definitions()
	for _, term := range sortedKeys(after) {
		cur := after[term]
		prev, had := before[term]
		if had && ld.DeepCompare(prev, cur, true) {
			result.origins[term] = c.origins[term]
			continue
		}
		result.origins[term] = source
		if had && target(prev) != target(cur) {
			result.shadows = append(result.shadows, Shadow{
				Term:           term,
				Previous:       target(prev),
				Current:        target(cur),
				PreviousSource: c.origins[term],
				Source:         source,
			})
		}
	}
	return result, nil
}

// parse calls json-gold, which panics on some malformed input instead of
// returning an error.
func parse(active *ld.Context, local any) (out *ld.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrInvalidContext, r)
		}
	}()
	return active.Parse(local)
}

func translate(err error) error {
	var ldErr *ld.JsonLdError
	if errors.As(err, &ldErr) {
		if sentinel, ok := codes[ldErr.Code]; ok {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
	}
	if errors.Is(err, ErrInvalidContext) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidContext, err)
}

// definitions is the live term definition map of the json-gold context.
// Callers must not modify it.
func (c *Context) definitions() map[string]any {
	defs, _ := c.ld.AsMap()["termDefinitions"].(map[string]any)
	return defs
}

// Resolve expands a document key to an absolute IRI or keyword the way the
// expansion algorithm does for property keys. The returned kind is
// types.Unresolved when the key would be dropped; the returned string is
// then the key itself.
func (c *Context) Resolve(key string) (iri string, kind types.ResolutionKind) {
	if ld.IsKeyword(key) {
		return key, types.ResolvedKeyword
	}

	defs := c.definitions()
	if def, ok := defs[key]; ok {
		m, _ := def.(map[string]any)
		id, _ := m["@id"].(string)
		switch {
		case ld.IsKeyword(id):
			return id, types.ResolvedKeyword
		case dropped(id):
			return key, types.Unresolved
		}
		return id, types.ResolvedTerm
	}

	defer func() {
		if r := recover(); r != nil {
			iri, kind = key, types.Unresolved
		}
	}()
	expanded, err := c.ld.ExpandIri(key, false, true, nil, nil)
	if err != nil || dropped(expanded) {
		return key, types.Unresolved
	}

	switch {
	case ld.IsKeyword(expanded):
		return expanded, types.ResolvedKeyword
	case strings.HasPrefix(key, "_:"):
		return expanded, types.ResolvedBlank
	case expanded == key:
		return expanded, types.ResolvedAbsolute
	case c.hasPrefix(key):
		return expanded, types.ResolvedCompact
	default:
		return expanded, types.ResolvedVocab
	}
}

// dropped is the rule json-gold applies to expanded property keys: anything
// that is neither a keyword nor contains a colon is left out.
func dropped(iri string) bool {
	return iri == "" || (!strings.Contains(iri, ":") && !ld.IsKeyword(iri))
}

func (c *Context) hasPrefix(key string) bool {
	i := strings.Index(key, ":")
	if i <= 0 {
		return false
	}
	def, ok := c.definitions()[key[:i]].(map[string]any)
	return ok && def != nil
}

// Term returns the definition of name, if any.
func (c *Context) Term(name string) (*Term, bool) {
	def, ok := c.definitions()[name]
	if !ok {
		return nil, false
	}
	return newTerm(name, def, c.origins[name]), true
}

// Terms returns every defined term sorted by name.
func (c *Context) Terms() []Term {
	defs := c.definitions()
	out := make([]Term, 0, len(defs))
	for _, name := range sortedKeys(defs) {
		if strings.HasPrefix(name, "@") {
			continue
		}
		out = append(out, *newTerm(name, defs[name], c.origins[name]))
	}
	return out
}

// Shadows returns the overrides recorded while composing the context, in
// the order they happened.
func (c *Context) Shadows() []Shadow {
	return append([]Shadow(nil), c.shadows...)
}

// Sources lists the context sources applied, in order. A referenced context
// is followed by the contexts it pulled in.
func (c *Context) Sources() []string {
	return append([]string(nil), c.sources...)
}

// Vocab returns the active @vocab mapping.
func (c *Context) Vocab() (string, bool) {
	values, _ := c.ld.AsMap()["values"].(map[string]any)
	v, ok := values["@vocab"].(string)
	return v, ok
}

// Base returns the IRI relative context references resolve against.
func (c *Context) Base() string {
	return c.base
}

// Propagates reports whether a scoped context sets "@propagate": true.
// Type-scoped contexts do not reach nested nodes unless it does. For an
// array only the first entry counts.
func Propagates(scoped any) bool {
	if arr, ok := scoped.([]any); ok {
		if len(arr) == 0 {
			return false
		}
		scoped = arr[0]
	}
	m, _ := scoped.(map[string]any)
	p, _ := m["@propagate"].(bool)
	return p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
