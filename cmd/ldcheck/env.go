// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/ldcheck/internal/cache"
	"github.com/pdiddy/ldcheck/internal/loader"
	"github.com/pdiddy/ldcheck/internal/metrics"
	"github.com/pdiddy/ldcheck/internal/secrets"
	"github.com/pdiddy/ldcheck/internal/store"
	"github.com/pdiddy/ldcheck/pkg/types"
)

// memoryCleanup is how often expired in-memory contexts are evicted.
const memoryCleanup = 10 * time.Minute

// env holds the shared resources of one command invocation.
type env struct {
	cfg     types.Config
	store   *store.Store
	loader  *loader.Loader
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// openEnv opens the store and builds a loader that caches remote contexts in
// memory over the store's contexts table.
func openEnv(cfg types.Config) (*env, error) {
	logger := slog.Default()

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}

	tokens, err := secrets.Load(cfg.Loader.SecretsDir)
	if err != nil {
		st.Close()
		return nil, err
	}
	if hosts := tokens.Hosts(); len(hosts) > 0 {
		logger.Debug("loaded bearer tokens", "hosts", hosts)
	}

	rec := metrics.New()
	layered := cache.NewLayered(
		cache.NewMemoryCache(cfg.Loader.CacheTTL, memoryCleanup),
		st.ContextCache(),
	)
	l := loader.New(cfg.Loader,
		loader.WithHTTPClient(&http.Client{Timeout: cfg.Loader.Timeout}),
		loader.WithCache(layered),
		loader.WithTokens(tokens),
		loader.WithMetrics(rec),
		loader.WithLogger(logger),
	)

	return &env{
		cfg:     cfg,
		store:   st,
		loader:  l,
		metrics: rec,
		logger:  logger,
	}, nil
}

// writeMetrics writes the metrics textfile when one is configured.
func (e *env) writeMetrics() error {
	if e.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := e.metrics.WriteTextfile(e.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

func (e *env) Close() error {
	return e.store.Close()
}
