// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/ldcheck/internal/cache"
)

// defaultContextTTL applies when a context is stored with a zero TTL.
const defaultContextTTL = 24 * time.Hour

// CachedContext describes one stored remote context.
type CachedContext struct {
	URL       string    `json:"url" yaml:"url"`
	Size      int       `json:"size" yaml:"size"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (c CachedContext) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// GetContext returns the stored body for url. Expired entries are treated
// as missing.
func (s *Store) GetContext(ctx context.Context, url string) ([]byte, bool, error) {
	var (
		body      []byte
		expiresAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, expires_at FROM contexts WHERE url = ?`, url,
	).Scan(&body, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading context %s: %w", url, err)
	}
	if s.now().After(parseTime(expiresAt)) {
		return nil, false, nil
	}
	return body, true, nil
}

// PutContext stores body for url, replacing any previous entry.
func (s *Store) PutContext(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultContextTTL
	}
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contexts (url, body, fetched_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			body=excluded.body, fetched_at=excluded.fetched_at, expires_at=excluded.expires_at`,
		url, body, formatTime(now), formatTime(now.Add(ttl)),
	)
	if err != nil {
		return fmt.Errorf("storing context %s: %w", url, err)
	}
	return nil
}

// DeleteContext removes the entry for url.
func (s *Store) DeleteContext(ctx context.Context, url string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM contexts WHERE url = ?`, url); err != nil {
		return fmt.Errorf("deleting context %s: %w", url, err)
	}
	return nil
}

// ClearContexts removes every stored context and returns how many were removed.
func (s *Store) ClearContexts(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contexts`)
	if err != nil {
		return 0, fmt.Errorf("clearing contexts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListContexts returns every stored context, expired ones included, sorted
// by URL.
func (s *Store) ListContexts(ctx context.Context) ([]CachedContext, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, length(body), fetched_at, expires_at FROM contexts ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("listing contexts: %w", err)
	}
	defer rows.Close()

	var out []CachedContext
	for rows.Next() {
		var (
			c                    CachedContext
			fetchedAt, expiresAt string
		)
		if err := rows.Scan(&c.URL, &c.Size, &fetchedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning context row: %w", err)
		}
		c.FetchedAt = parseTime(fetchedAt)
		c.ExpiresAt = parseTime(expiresAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContextCache adapts the contexts table to cache.Cache so it can sit under
// an in-memory layer.
func (s *Store) ContextCache() cache.Cache {
	return contextCache{s: s}
}

type contextCache struct {
	s *Store
}

func (c contextCache) Get(key string) ([]byte, bool) {
	body, ok, err := c.s.GetContext(context.Background(), key)
	if err != nil {
		return nil, false
	}
	return body, ok
}

func (c contextCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.s.PutContext(context.Background(), key, value, ttl)
}

func (c contextCache) Delete(key string) error {
	return c.s.DeleteContext(context.Background(), key)
}

func (c contextCache) Clear() error {
	_, err := c.s.ClearContexts(context.Background())
	return err
}
