// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/piprate/json-gold/ld"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ldcheck/internal/httputil"
	"github.com/pdiddy/ldcheck/internal/metrics"
	"github.com/pdiddy/ldcheck/internal/secrets"
	"github.com/pdiddy/ldcheck/pkg/types"
)

const remoteBody = `{"@context": {"residesAt": "http://example.org/residesAt"}}`

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func testConfig() types.LoaderConfig {
	cfg := types.DefaultConfig().Loader
	cfg.RequestsPerSecond = 0
	return cfg
}

// contextServer serves remoteBody and counts requests.
func contextServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if handler != nil {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/ld+json")
		w.Write([]byte(remoteBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func contextTerms(t *testing.T, rd *ld.RemoteDocument) map[string]any {
	t.Helper()
	doc, ok := rd.Document.(map[string]any)
	require.True(t, ok)
	inner, ok := doc["@context"].(map[string]any)
	require.True(t, ok)
	return inner
}

func TestLoadBundled(t *testing.T) {
	rec := metrics.New()
	l := New(testConfig(), WithMetrics(rec))

	for _, u := range Bundled() {
		rd, err := l.LoadContext(context.Background(), u)
		require.NoError(t, err, u)
		assert.Equal(t, u, rd.DocumentURL)
		terms := contextTerms(t, rd)
		assert.Contains(t, terms, "VerifiableCredential")
		assert.Equal(t, "@type", terms["type"])
	}
	assert.Equal(t, float64(len(Bundled())), testutil.ToFloat64(rec.ContextsLoaded(SourceBundled)))
}

func TestBundledV2HasNoVocab(t *testing.T) {
	l := New(testConfig())
	rd, err := l.LoadContext(context.Background(), "https://www.w3.org/ns/credentials/v2")
	require.NoError(t, err)
	assert.NotContains(t, contextTerms(t, rd), "@vocab")
}

func TestLoadLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.jsonld")
	require.NoError(t, os.WriteFile(path, []byte(remoteBody), 0o644))

	l := New(testConfig())
	u, err := FileURL(path)
	require.NoError(t, err)

	for _, ref := range []string{path, u} {
		rd, err := l.LoadContext(context.Background(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, u, rd.DocumentURL)
		assert.Equal(t, "http://example.org/residesAt", contextTerms(t, rd)["residesAt"])
	}
}

func TestLoadLocalFileMissing(t *testing.T) {
	l := New(testConfig())
	_, err := l.LoadContext(context.Background(), filepath.Join(t.TempDir(), "missing.jsonld"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadLocalFileInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonld")
	require.NoError(t, os.WriteFile(path, []byte(`{"@context": `), 0o644))

	l := New(testConfig())
	_, err := l.LoadContext(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing context")
}

func TestLoadRemoteSendsHeaders(t *testing.T) {
	var got http.Header
	srv, _ := contextServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(remoteBody))
	})

	cfg := testConfig()
	cfg.UserAgent = "ldcheck-test/1.0"
	l := New(cfg, WithTokens(secrets.Tokens{"127.0.0.1": "s3cret"}))

	_, err := l.LoadContext(context.Background(), srv.URL+"/ctx.jsonld")
	require.NoError(t, err)
	assert.Equal(t, acceptHeader, got.Get("Accept"))
	assert.Equal(t, "ldcheck-test/1.0", got.Get("User-Agent"))
	assert.Equal(t, "Bearer s3cret", got.Get("Authorization"))
}

func TestLoadRemoteCachesBody(t *testing.T) {
	srv, hits := contextServer(t, nil)
	rec := metrics.New()
	l := New(testConfig(), WithMetrics(rec))

	for i := 0; i < 3; i++ {
		rd, err := l.LoadContext(context.Background(), srv.URL+"/ctx.jsonld")
		require.NoError(t, err)
		assert.Equal(t, "http://example.org/residesAt", contextTerms(t, rd)["residesAt"])
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.ContextsLoaded(SourceRemote)))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.ContextsLoaded(SourceCache)))
}

func TestLoadRemoteRetriesOnTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv, _ := contextServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(remoteBody))
	})

	l := New(testConfig())
	_, err := l.LoadContext(context.Background(), srv.URL+"/ctx.jsonld")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoadRemoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantMsg: "HTTP 500"},
		{name: "not json", status: http.StatusOK, body: "<html>", wantMsg: "parsing context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := contextServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			l := New(testConfig())
			_, err := l.LoadContext(context.Background(), srv.URL+"/ctx.jsonld")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoadRemoteTooLarge(t *testing.T) {
	srv, _ := contextServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat(" ", 64) + remoteBody))
	})

	cfg := testConfig()
	cfg.MaxBytes = 32
	l := New(cfg)
	_, err := l.LoadContext(context.Background(), srv.URL+"/ctx.jsonld")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 32 bytes")
}

func TestOffline(t *testing.T) {
	srv, hits := contextServer(t, nil)
	u := srv.URL + "/ctx.jsonld"

	cfg := testConfig()
	cfg.Offline = true
	l := New(cfg)

	_, err := l.LoadContext(context.Background(), u)
	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, int32(0), hits.Load())

	// Cached copies and bundled contexts still resolve.
	require.NoError(t, l.cache.Set(u, []byte(remoteBody), time.Minute))
	_, err = l.LoadContext(context.Background(), u)
	assert.NoError(t, err)
	_, err = l.LoadContext(context.Background(), "https://www.w3.org/ns/credentials/v2")
	assert.NoError(t, err)
}

func TestUnsupportedScheme(t *testing.T) {
	l := New(testConfig())
	_, err := l.LoadContext(context.Background(), "ftp://example.org/ctx.jsonld")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported context URL scheme")
}

func TestLoadDocumentWrapsErrors(t *testing.T) {
	l := New(testConfig())
	_, err := l.LoadDocument(filepath.Join(t.TempDir(), "missing.jsonld"))
	require.Error(t, err)

	var ldErr *ld.JsonLdError
	require.True(t, errors.As(err, &ldErr))
	assert.Equal(t, ld.LoadingDocumentFailed, ldErr.Code)
}

func TestBindHonorsCancellation(t *testing.T) {
	srv, hits := contextServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Bind(ctx, New(testConfig())).LoadDocument(srv.URL + "/ctx.jsonld")
	require.Error(t, err)
	assert.Equal(t, int32(0), hits.Load())
}

func TestBindWithoutLoader(t *testing.T) {
	dl := Bind(context.Background(), nil)
	require.NotNil(t, dl)

	_, err := dl.LoadDocument("https://example.org/ctx.jsonld")
	require.Error(t, err)

	var ldErr *ld.JsonLdError
	require.True(t, errors.As(err, &ldErr))
	assert.Equal(t, ld.LoadingDocumentFailed, ldErr.Code)
	assert.Contains(t, err.Error(), "https://example.org/ctx.jsonld")
}

func TestWarm(t *testing.T) {
	srv, hits := contextServer(t, nil)
	l := New(testConfig())

	sizes, err := l.Warm(context.Background(), srv.URL+"/a.jsonld", srv.URL+"/b.jsonld")
	require.NoError(t, err)
	assert.Equal(t, len(remoteBody), sizes[srv.URL+"/a.jsonld"])
	assert.Equal(t, int32(2), hits.Load())

	_, err = l.LoadContext(context.Background(), srv.URL+"/a.jsonld")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		local bool
	}{
		{"types-context.jsonld", "types-context.jsonld", true},
		{"./contexts/a.jsonld", "./contexts/a.jsonld", true},
		{"file:///tmp/a.jsonld", filepath.FromSlash("/tmp/a.jsonld"), true},
		{"https://example.org/ctx", "", false},
		{"urn:example:ctx", "", false},
		{"did:web:example.org", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, local := localPath(tt.in)
			assert.Equal(t, tt.local, local)
			if tt.local {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
