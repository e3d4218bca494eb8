// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ldctx

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/piprate/json-gold/ld"
)

// maxContextLoads bounds the context documents fetched while processing one
// local context. json-gold does not detect a context that references itself
// through another remote context, so a reference loop ends here.
const maxContextLoads = 10000

var errTooManyLoads = errors.New("too many context loads")

// DocumentLoader wraps the ld.DocumentLoader used for one document. Every
// context it returns has @protected removed, so that later sources may
// redefine protected terms. It remembers the URLs it served and the cause of
// the last failure, which json-gold replaces with a generic message.
//
// A DocumentLoader serves one document at a time.
type DocumentLoader struct {
	next ld.DocumentLoader

	mu     sync.Mutex
	loads  int
	loaded []string
	err    error
}

// NewDocumentLoader wraps next. A nil next fails every load.
func NewDocumentLoader(next ld.DocumentLoader) *DocumentLoader {
	if dl, ok := next.(*DocumentLoader); ok {
		return dl
	}
	return &DocumentLoader{next: next}
}

// LoadDocument implements ld.DocumentLoader.
func (d *DocumentLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	d.mu.Lock()
	d.loads++
	over := d.loads > maxContextLoads
	d.mu.Unlock()

	if over {
		return nil, d.fail(fmt.Errorf("%w: more than %d while loading %s", errTooManyLoads, maxContextLoads, u))
	}
	if d.next == nil {
		return nil, d.fail(fmt.Errorf("%s: no loader configured", u))
	}

	rd, err := d.next.LoadDocument(u)
	if err != nil {
		return nil, d.fail(fmt.Errorf("%s: %w", u, cause(err)))
	}

	d.mu.Lock()
	if !slices.Contains(d.loaded, u) {
		d.loaded = append(d.loaded, u)
	}
	d.mu.Unlock()

	doc, ok := rd.Document.(map[string]any)
	if !ok {
		return rd, nil
	}
	out := *rd
	cp := make(map[string]any, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	if local, ok := cp["@context"]; ok {
		cp["@context"] = Unprotect(local)
	}
	out.Document = cp
	return &out, nil
}

func (d *DocumentLoader) fail(err error) error {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
	return ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
}

// begin starts a processing step: the load budget, the served URLs and the
// remembered failure are reset.
func (d *DocumentLoader) begin() {
	d.mu.Lock()
	d.loads, d.loaded, d.err = 0, nil, nil
	d.mu.Unlock()
}

// end returns the URLs served and the load failure of the step.
func (d *DocumentLoader) end() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded, d.err
}

// cause unwraps the error a json-gold loader hides in JsonLdError.Details.
func cause(err error) error {
	var ldErr *ld.JsonLdError
	if errors.As(err, &ldErr) {
		if inner, ok := ldErr.Details.(error); ok {
			return inner
		}
	}
	return err
}

// Unprotect returns a copy of a local context with every @protected entry
// removed, including those of scoped contexts.
func Unprotect(local any) any {
	switch v := local.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			if k == "@protected" {
				continue
			}
			m[k] = Unprotect(item)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, item := range v {
			s[i] = Unprotect(item)
		}
		return s
	default:
		return local
	}
}

// UnprotectDocument returns a copy of doc in which every @context value,
// at any depth, has been passed through Unprotect.
func UnprotectDocument(doc any) any {
	switch v := doc.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			if k == "@context" {
				m[k] = Unprotect(item)
				continue
			}
			m[k] = UnprotectDocument(item)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, item := range v {
			s[i] = UnprotectDocument(item)
		}
		return s
	default:
		return doc
	}
}

// Expand runs the json-gold expansion algorithm over doc with the same
// loader and protection policy used to compose term tables, so both agree
// on which terms a context defines.
func Expand(dl *DocumentLoader, doc any, base string) (out []any, err error) {
	dl.begin()
	opts := ld.NewJsonLdOptions(base)
	opts.DocumentLoader = dl

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("json-ld processor: %v", r)
		}
	}()
	out, err = ld.NewJsonLdProcessor().Expand(UnprotectDocument(doc), opts)
	if err != nil {
		if _, lerr := dl.end(); lerr != nil {
			return nil, loadError(lerr)
		}
		return nil, err
	}
	return out, nil
}

func loadError(err error) error {
	if errors.Is(err, errTooManyLoads) {
		return fmt.Errorf("%w: %w", ErrContextOverflow, err)
	}
	return fmt.Errorf("%w: %w", ErrLoadingContext, err)
}
