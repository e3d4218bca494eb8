// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package check

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/pdiddy/ldcheck/internal/ldctx"
	"github.com/pdiddy/ldcheck/pkg/types"
)

// walker resolves the keys of one document. Two contexts travel down the
// tree: active resolves the keys of the current node, inherited is what its
// children start from. They differ when a type-scoped context applies, since
// those do not reach nested nodes unless they set @propagate.
type walker struct {
	ctx    context.Context
	doc    string
	opts   *Options
	result *Result

	// seen holds keys already reported so each is reported once.
	seen map[string]bool
}

// node checks a nested node object, applying its embedded @context first.
func (w *walker) node(inherited *ldctx.Context, node map[string]any, path string) error {
	if local, ok := node["@context"]; ok {
		next, err := inherited.Parse(w.ctx, local)
		if err != nil {
			return fmt.Errorf("%s: composing embedded context: %w", join(path, "@context"), err)
		}
		inherited = next
	}
	return w.body(inherited, node, path)
}

// body checks the keys of a node whose embedded context, if any, is already
// part of inherited.
func (w *walker) body(inherited *ldctx.Context, node map[string]any, path string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	keys := sortedKeys(node)
	if hasKeyword(inherited, keys, "@value") {
		return nil
	}

	// Type values resolve against the context before type-scoped contexts
	// are applied. Scoped contexts apply in lexicographic order of type.
	active := inherited
	typeValues := w.types(inherited, node, keys, path)
	for _, tv := range typeValues {
		t, ok := inherited.Term(tv)
		if !ok || !t.HasScoped {
			continue
		}
		next, err := active.ParseScoped(w.ctx, t)
		if err != nil {
			return fmt.Errorf("%s: applying scoped context of type %q: %w", join(path, "@type"), tv, err)
		}
		active = next
		if ldctx.Propagates(t.Scoped) {
			if inherited, err = inherited.ParseScoped(w.ctx, t); err != nil {
				return fmt.Errorf("%s: applying scoped context of type %q: %w", join(path, "@type"), tv, err)
			}
		}
	}

	return w.entries(active, inherited, node, keys, path)
}

// types resolves every @type value of node and returns them sorted.
func (w *walker) types(c *ldctx.Context, node map[string]any, keys []string, path string) []string {
	var values []string
	for _, key := range keys {
		if iri, _ := c.Resolve(key); iri != "@type" {
			continue
		}
		switch v := node[key].(type) {
		case string:
			values = append(values, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					values = append(values, s)
				}
			}
		}
	}

	typePath := join(path, "@type")
	for _, tv := range values {
		iri, kind := c.Resolve(tv)
		w.record(types.PropertyResult{
			Path:             typePath,
			Property:         tv,
			ExpandedProperty: iri,
			Kind:             kind,
			IsType:           true,
		})
	}

	sort.Strings(values)
	return slices.Compact(values)
}

// entries checks the keys of node other than @context and @type.
func (w *walker) entries(active, inherited *ldctx.Context, node map[string]any, keys []string, path string) error {
	for _, key := range keys {
		if key == "@context" {
			continue
		}
		value := node[key]
		iri, kind := active.Resolve(key)
		keyPath := join(path, key)

		if kind == types.ResolvedKeyword {
			if err := w.keyword(active, inherited, iri, value, keyPath); err != nil {
				return err
			}
			continue
		}
		if len(key) > 0 && key[0] == '@' {
			// Keyword-like keys that are not keywords are ignored.
			continue
		}
		if err := w.property(active, inherited, key, iri, kind, value, keyPath); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) property(active, inherited *ldctx.Context, key, iri string, kind types.ResolutionKind, value any, path string) error {
	w.record(types.PropertyResult{
		Path:             path,
		Property:         key,
		ExpandedProperty: iri,
		Kind:             kind,
	})
	if kind == types.Unresolved {
		// A dropped property's value is dropped with it.
		return nil
	}

	valueCtx := inherited
	term, _ := active.Term(key)
	if term != nil && term.HasScoped {
		next, err := inherited.ParseScoped(w.ctx, term)
		if err != nil {
			return fmt.Errorf("%s: applying scoped context of %q: %w", path, key, err)
		}
		valueCtx = next
	}
	return w.value(valueCtx, term, value, path)
}

func (w *walker) keyword(active, inherited *ldctx.Context, keyword string, value any, path string) error {
	switch keyword {
	case "@graph", "@list", "@set", "@included":
		return w.value(inherited, nil, value, path)
	case "@reverse":
		m, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		for _, key := range sortedKeys(m) {
			iri, kind := active.Resolve(key)
			if kind == types.ResolvedKeyword {
				continue
			}
			if err := w.property(active, inherited, key, iri, kind, m[key], join(path, key)); err != nil {
				return err
			}
		}
	case "@nest":
		// Nested entries are properties of the enclosing node.
		for _, nested := range asSlice(value) {
			m, ok := nested.(map[string]any)
			if !ok {
				continue
			}
			if err := w.entries(active, inherited, m, sortedKeys(m), path); err != nil {
				return err
			}
		}
	}
	return nil
}

// value descends into a property value.
func (w *walker) value(c *ldctx.Context, term *ldctx.Term, value any, path string) error {
	if term != nil && term.Type == "@json" {
		return nil
	}

	switch v := value.(type) {
	case []any:
		for i, item := range v {
			if err := w.value(c, term, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case map[string]any:
		if term != nil && isMapContainer(term.Container) {
			if slices.Contains(term.Container, "@language") {
				return nil
			}
			for _, k := range sortedKeys(v) {
				if err := w.value(c, nil, v[k], join(path, k)); err != nil {
					return err
				}
			}
			return nil
		}
		return w.node(c, v, path)
	}
	return nil
}

// record appends a result and, for an unresolved key seen for the first
// time, a warning event.
func (w *walker) record(p types.PropertyResult) {
	w.result.Properties = append(w.result.Properties, p)
	if p.Resolved() || w.seen[p.Property] {
		return
	}
	w.seen[p.Property] = true

	ev := types.NewInvalidPropertyEvent(p.Property)
	w.result.Events = append(w.result.Events, ev)
	if w.opts.Lint && w.opts.OnEvent != nil {
		w.opts.OnEvent(w.doc, ev)
	}
}

// hasKeyword reports whether any of keys expands to keyword.
func hasKeyword(c *ldctx.Context, keys []string, keyword string) bool {
	for _, key := range keys {
		if iri, kind := c.Resolve(key); kind == types.ResolvedKeyword && iri == keyword {
			return true
		}
	}
	return false
}

func isMapContainer(container []string) bool {
	for _, c := range container {
		switch c {
		case "@language", "@index", "@id", "@type":
			return true
		}
	}
	return false
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{v}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
