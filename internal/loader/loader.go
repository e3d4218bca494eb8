// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package loader resolves context references: bundled copies of the common
// credential contexts, local files, cached bodies and remote HTTP fetches.
// Loader serves both the term-table composer (LoadContext) and the JSON-LD
// processor (LoadDocument).
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/piprate/json-gold/ld"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/ldcheck/internal/cache"
	"github.com/pdiddy/ldcheck/internal/httputil"
	"github.com/pdiddy/ldcheck/internal/ldctx"
	"github.com/pdiddy/ldcheck/internal/metrics"
	"github.com/pdiddy/ldcheck/internal/secrets"
	"github.com/pdiddy/ldcheck/pkg/types"
)

var (
	// ErrOffline is returned when a remote context is needed in offline mode
	// and no cached copy exists.
	ErrOffline = errors.New("remote context unavailable offline")

	// ErrNotFound is returned for a missing local file or an HTTP 404.
	ErrNotFound = errors.New("context not found")

	// ErrNoLoader is returned by a bound loader built without a Loader.
	ErrNoLoader = errors.New("no context loader configured")
)

// Sources reported to metrics and logs.
const (
	SourceBundled = "bundled"
	SourceFile    = "file"
	SourceCache   = "cache"
	SourceRemote  = "remote"
)

const acceptHeader = "application/ld+json, application/json;q=0.9"

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient replaces the HTTP client built from the configured timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithCache replaces the default in-memory cache, typically with a layered
// cache backed by the store.
func WithCache(c cache.Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithTokens sets bearer tokens for protected hosts.
func WithTokens(t secrets.Tokens) Option {
	return func(l *Loader) { l.tokens = t }
}

// WithMetrics records every served context.
func WithMetrics(m *metrics.Recorder) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// Loader loads context documents. It is safe for concurrent use; concurrent
// requests for the same remote URL share one fetch.
type Loader struct {
	cfg     types.LoaderConfig
	client  *http.Client
	cache   cache.Cache
	tokens  secrets.Tokens
	limiter *Limiter
	metrics *metrics.Recorder
	logger  *slog.Logger
	group   singleflight.Group
}

// New returns a Loader for cfg. Zero values in cfg fall back to the defaults
// of types.DefaultConfig.
func New(cfg types.LoaderConfig, opts ...Option) *Loader {
	def := types.DefaultConfig().Loader
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}

	l := &Loader{
		cfg:     cfg,
		limiter: NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: cfg.Timeout}
	}
	if l.cache == nil {
		l.cache = cache.NewMemoryCache(cfg.CacheTTL, 10*time.Minute)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// LoadContext returns the document at u. Bundled contexts are checked first,
// then local files (file:// URLs and plain paths), then the cache, and
// finally the network.
func (l *Loader) LoadContext(ctx context.Context, u string) (*ld.RemoteDocument, error) {
	if body, ok := bundled(u); ok {
		return l.parse(u, body, SourceBundled)
	}

	if path, ok := localPath(u); ok {
		body, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return nil, fmt.Errorf("reading context file %s: %w", path, err)
		}
		return l.parse(fileURL(path), body, SourceFile)
	}

	if body, ok := l.cache.Get(u); ok {
		return l.parse(u, body, SourceCache)
	}

	if l.cfg.Offline {
		return nil, fmt.Errorf("%w: %s", ErrOffline, u)
	}

	v, err, _ := l.group.Do(u, func() (any, error) {
		return l.fetch(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	res := v.(fetchResult)
	return l.parse(res.finalURL, res.body, SourceRemote)
}

// LoadDocument implements ld.DocumentLoader. Failures are reported with the
// processor's "loading document failed" code.
func (l *Loader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return Bind(context.Background(), l).LoadDocument(u)
}

// Warm fetches each URL and stores it in the cache, ignoring cached copies.
// It returns the number of bytes stored per URL.
func (l *Loader) Warm(ctx context.Context, urls ...string) (map[string]int, error) {
	sizes := make(map[string]int, len(urls))
	for _, u := range urls {
		if l.cfg.Offline {
			return sizes, fmt.Errorf("%w: %s", ErrOffline, u)
		}
		res, err := l.fetch(ctx, u)
		if err != nil {
			return sizes, err
		}
		sizes[u] = len(res.body)
	}
	return sizes, nil
}

type fetchResult struct {
	finalURL string
	body     []byte
}

func (l *Loader) fetch(ctx context.Context, u string) (fetchResult, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return fetchResult{}, fmt.Errorf("parsing context URL %q: %w", u, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fetchResult{}, fmt.Errorf("unsupported context URL scheme %q: %s", parsed.Scheme, u)
	}

	if err := l.limiter.Wait(ctx, u); err != nil {
		return fetchResult{}, fmt.Errorf("waiting for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fetchResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", l.cfg.UserAgent)
	if token, ok := l.tokens.For(parsed.Host); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, l.client, req, l.cfg.MaxRetries)
	if err != nil {
		return fetchResult{}, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fetchResult{}, fmt.Errorf("%w: %s (HTTP 404)", ErrNotFound, u)
	case resp.StatusCode != http.StatusOK:
		return fetchResult{}, fmt.Errorf("fetching %s: HTTP %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.cfg.MaxBytes+1))
	if err != nil {
		return fetchResult{}, fmt.Errorf("reading %s: %w", u, err)
	}
	if int64(len(body)) > l.cfg.MaxBytes {
		return fetchResult{}, fmt.Errorf("context %s exceeds %d bytes", u, l.cfg.MaxBytes)
	}

	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if err := l.cache.Set(u, body, l.cfg.CacheTTL); err != nil {
		l.logger.Warn("caching context failed", "url", u, "error", err)
	}
	l.logger.Debug("fetched context", "url", u, "final_url", finalURL,
		"bytes", len(body), "elapsed", time.Since(start))

	return fetchResult{finalURL: finalURL, body: body}, nil
}

func (l *Loader) parse(docURL string, body []byte, source string) (*ld.RemoteDocument, error) {
	doc, err := ld.DocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing context %s: %w", docURL, err)
	}
	l.metrics.ContextLoaded(source)
	l.logger.Debug("loaded context", "url", docURL, "source", source)
	return &ld.RemoteDocument{DocumentURL: docURL, Document: doc}, nil
}

// localPath reports whether u names a local file and returns its path.
// file:// URLs and strings without a scheme are local.
func localPath(u string) (string, bool) {
	if strings.HasPrefix(u, "file://") {
		parsed, err := url.Parse(u)
		if err != nil {
			return "", false
		}
		return filepath.FromSlash(parsed.Path), true
	}
	if strings.Contains(u, "://") {
		return "", false
	}
	if i := strings.Index(u, ":"); i > 1 && !strings.ContainsAny(u[:i], `/\.`) {
		// scheme:opaque such as urn:, did:
		return "", false
	}
	return u, true
}

// FileURL returns the file:// URL of path, made absolute.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return fileURL(abs), nil
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// Bind returns an ld.DocumentLoader that loads through l with ctx, so a
// cancelled run also stops fetches made by the JSON-LD processor. A nil l
// yields a loader on which every load fails with ld.LoadingDocumentFailed.
func Bind(ctx context.Context, l ldctx.Loader) ld.DocumentLoader {
	if l == nil {
		return boundLoader{ctx: ctx, load: noLoader}
	}
	return boundLoader{ctx: ctx, load: l.LoadContext}
}

func noLoader(_ context.Context, u string) (*ld.RemoteDocument, error) {
	return nil, fmt.Errorf("%w: %s", ErrNoLoader, u)
}

type boundLoader struct {
	ctx  context.Context
	load func(context.Context, string) (*ld.RemoteDocument, error)
}

func (b boundLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	rd, err := b.load(b.ctx, u)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	return rd, nil
}
