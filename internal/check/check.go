// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package check verifies that every key of a JSON-LD document expands to an
// absolute IRI or keyword under its composed context chain.
//
// The effective chain of a document is its own @context followed by any
// extra sources passed to Expand. Keys and @type values are resolved against
// the merged term table; those that do not resolve are reported as warning
// events and left out, exactly as a JSON-LD processor drops them. A type term
// and the predicates used next to it are independent lookups: the checker
// never asks whether a predicate is "declared for" a type.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/piprate/json-gold/ld"

	"github.com/pdiddy/ldcheck/internal/ldctx"
	"github.com/pdiddy/ldcheck/internal/loader"
	"github.com/pdiddy/ldcheck/internal/metrics"
	"github.com/pdiddy/ldcheck/pkg/types"
)

var (
	// ErrDroppedProperty is returned in safe mode when any key or type value
	// did not expand. Use errors.As with *UnsafeError to get the events.
	ErrDroppedProperty = errors.New("dropped property")

	// ErrExpansion wraps a failure of the JSON-LD processor.
	ErrExpansion = errors.New("JSON-LD expansion failed")

	// ErrInvalidDocument is returned for a document that is not a JSON
	// object or array of objects.
	ErrInvalidDocument = errors.New("invalid JSON-LD document")
)

// UnsafeError reports the properties dropped from a document in safe mode.
type UnsafeError struct {
	Events []types.Event
}

func (e *UnsafeError) Error() string {
	props := make([]string, len(e.Events))
	for i, ev := range e.Events {
		props[i] = ev.Details.Property
	}
	noun := "properties"
	if len(props) == 1 {
		noun = "property"
	}
	return fmt.Sprintf("%d %s dropped: %s", len(props), noun, strings.Join(props, ", "))
}

func (e *UnsafeError) Unwrap() error {
	return ErrDroppedProperty
}

// Options controls a Checker.
type Options struct {
	// Safe turns any dropped property into an *UnsafeError.
	Safe bool

	// Lint delivers each warning event to OnEvent as soon as it is found.
	Lint bool

	// OnEvent receives warning events in lint mode. doc is the document path
	// for ExpandFile and empty for Expand. It may be called from several
	// goroutines during a batch.
	OnEvent func(doc string, ev types.Event)

	// Metrics records one observation per checked file. May be nil.
	Metrics *metrics.Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Checker checks documents. It holds no per-document state and is safe for
// concurrent use.
type Checker struct {
	loader ldctx.Loader
	opts   Options
	logger *slog.Logger
}

// New returns a Checker that loads referenced contexts through l.
func New(l ldctx.Loader, opts Options) *Checker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{loader: l, opts: opts, logger: logger}
}

// Result is the outcome of checking one document.
type Result struct {
	// Properties lists every key and @type value in document order of
	// traversal, resolved or not.
	Properties []types.PropertyResult

	// Events holds one warning per distinct key that did not expand, in the
	// order found.
	Events []types.Event

	// Expanded is the processor's expanded form of the document.
	Expanded []any

	// Shadows lists terms of the top-level chain that a later source
	// redefined with a different IRI.
	Shadows []ldctx.Shadow

	// Context is the composed top-level context.
	Context *ldctx.Context
}

// Dropped returns the distinct keys that did not expand.
func (r *Result) Dropped() []string {
	out := make([]string, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.Details.Property
	}
	return out
}

// Expand checks doc, a decoded JSON value, under its own @context followed
// by chain. The document is not modified. In safe mode a non-empty event
// list is returned together with an *UnsafeError; the result is still valid.
func (c *Checker) Expand(ctx context.Context, doc any, chain ...any) (*Result, error) {
	return c.expand(ctx, doc, "", "", chain)
}

// ExpandFile reads and checks the document at path. Relative context
// references in the document resolve against the file's location.
func (c *Checker) ExpandFile(ctx context.Context, path string, chain ...any) (*Result, error) {
	doc, base, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return c.expand(ctx, doc, path, base, chain)
}

// Compose returns the context a document's top-level node is checked under.
func (c *Checker) Compose(ctx context.Context, doc any, base string, chain ...any) (*ldctx.Context, error) {
	roots, err := rootNodes(doc)
	if err != nil {
		return nil, err
	}
	dl := c.documentLoader(ctx)
	if len(roots) == 0 {
		return ldctx.New(dl, base).Parse(ctx, chain)
	}
	return c.compose(ctx, dl, roots[0], base, chain)
}

// ComposeFile is Compose for the document at path.
func (c *Checker) ComposeFile(ctx context.Context, path string, chain ...any) (*ldctx.Context, error) {
	doc, base, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return c.Compose(ctx, doc, base, chain...)
}

func (c *Checker) expand(ctx context.Context, doc any, name, base string, chain []any) (*Result, error) {
	roots, err := rootNodes(doc)
	if err != nil {
		return nil, err
	}

	dl := c.documentLoader(ctx)
	res := &Result{}
	w := &walker{
		ctx:    ctx,
		doc:    name,
		opts:   &c.opts,
		result: res,
		seen:   make(map[string]bool),
	}

	for i, root := range roots {
		active, err := c.compose(ctx, dl, root, base, chain)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			res.Context = active
			res.Shadows = active.Shadows()
			for _, s := range res.Shadows {
				c.logger.Debug("term redefined",
					"doc", name, "term", s.Term,
					"previous", s.Previous, "current", s.Current,
					"previous_source", s.PreviousSource, "source", s.Source)
			}
		}
		path := ""
		if _, isArray := doc.([]any); isArray {
			path = fmt.Sprintf("[%d]", i)
		}
		if err := w.body(active, root, path); err != nil {
			return nil, err
		}
	}

	expanded, err := ldctx.Expand(dl, effectiveDocument(doc, chain), base)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrExpansion, err)
	}
	res.Expanded = expanded

	if c.opts.Safe && len(res.Events) > 0 {
		return res, &UnsafeError{Events: res.Events}
	}
	return res, nil
}

func (c *Checker) compose(ctx context.Context, dl *ldctx.DocumentLoader, root map[string]any, base string, chain []any) (*ldctx.Context, error) {
	active, err := ldctx.New(dl, base).Parse(ctx, effectiveChain(root, chain))
	if err != nil {
		return nil, fmt.Errorf("composing context: %w", err)
	}
	return active, nil
}

// documentLoader returns the loader shared by composition and expansion of
// one document, so both see the same contexts.
func (c *Checker) documentLoader(ctx context.Context) *ldctx.DocumentLoader {
	return ldctx.NewDocumentLoader(loader.Bind(ctx, c.loader))
}

func readDocument(path string) (any, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	doc, err := ld.DocumentFromReader(f)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", path, err)
	}
	base, err := loader.FileURL(path)
	if err != nil {
		return nil, "", err
	}
	return doc, base, nil
}

func rootNodes(doc any) ([]map[string]any, error) {
	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		roots := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is a %T, not an object", ErrInvalidDocument, i, item)
			}
			roots = append(roots, m)
		}
		return roots, nil
	default:
		return nil, fmt.Errorf("%w: expected an object or array, got %T", ErrInvalidDocument, doc)
	}
}

// effectiveChain is the root's own @context entries followed by chain.
func effectiveChain(root map[string]any, chain []any) []any {
	var out []any
	if local, ok := root["@context"]; ok {
		if arr, isArray := local.([]any); isArray {
			out = append(out, arr...)
		} else {
			out = append(out, local)
		}
	}
	return append(out, chain...)
}

// effectiveDocument is a deep copy of doc whose root nodes carry the
// effective chain as their @context.
func effectiveDocument(doc any, chain []any) any {
	withChain := func(root map[string]any) map[string]any {
		cp := deepCopy(root).(map[string]any)
		ctxs := effectiveChain(root, chain)
		if len(ctxs) == 0 {
			delete(cp, "@context")
		} else {
			cp["@context"] = deepCopy(ctxs)
		}
		return cp
	}

	switch v := doc.(type) {
	case map[string]any:
		return withChain(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = withChain(item.(map[string]any))
		}
		return out
	}
	return doc
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, item := range x {
			m[k] = deepCopy(item)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, item := range x {
			s[i] = deepCopy(item)
		}
		return s
	default:
		return v
	}
}
