// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache holds fetched context documents keyed by URL.
package cache

import "time"

// Cache stores raw context bodies. Implementations are safe for concurrent
// use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}
