// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"errors"
	"time"
)

// LayeredCache checks a memory cache before a persistent one and promotes
// persistent hits into memory.
type LayeredCache struct {
	memory     Cache
	persistent Cache
}

// NewLayered layers memory over persistent. A nil persistent cache leaves a
// memory-only cache.
func NewLayered(memory, persistent Cache) *LayeredCache {
	return &LayeredCache{memory: memory, persistent: persistent}
}

// Get checks memory first, then the persistent layer.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, found := c.memory.Get(key); found {
		return v, true
	}
	if c.persistent == nil {
		return nil, false
	}
	v, found := c.persistent.Get(key)
	if !found {
		return nil, false
	}
	_ = c.memory.Set(key, v, 0)
	return v, true
}

// Set writes both layers.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	if c.persistent == nil {
		return nil
	}
	return c.persistent.Set(key, value, ttl)
}

// Delete removes key from both layers.
func (c *LayeredCache) Delete(key string) error {
	err := c.memory.Delete(key)
	if c.persistent != nil {
		err = errors.Join(err, c.persistent.Delete(key))
	}
	return err
}

// Clear empties both layers.
func (c *LayeredCache) Clear() error {
	err := c.memory.Clear()
	if c.persistent != nil {
		err = errors.Join(err, c.persistent.Clear())
	}
	return err
}
