package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Cell mirrors one value into a Storage entry. It loads on creation, writes
// back on every update, and never returns storage errors: failures are logged
// and the in-memory value stays authoritative.
type Cell[T any] struct {
	mu      sync.Mutex
	store   Storage
	scope   string
	key     string
	initial []byte
	value   T
	logger  *zap.Logger
}

// NewCell loads scope/key from store, falling back to initial when the entry
// is absent or unreadable.
func NewCell[T any](ctx context.Context, store Storage, scope, key string, initial T, logger *zap.Logger) *Cell[T] {
	encoded, err := json.Marshal(initial)
	if err != nil {
		// A default that cannot be encoded is a programming error.
		panic("storage: default value for " + key + " is not JSON encodable: " + err.Error())
	}

	c := &Cell[T]{
		store:   store,
		scope:   scope,
		key:     key,
		initial: encoded,
		logger:  logger.With(zap.String("scope", scope), zap.String("key", key)),
	}
	c.value = c.fresh()

	raw, err := store.Get(ctx, scope, key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		c.logger.Warn("Failed to read stored value, using default", zap.Error(err))
		return c
	default:
		var loaded T
		if err := json.Unmarshal(raw, &loaded); err != nil {
			c.logger.Warn("Failed to decode stored value, using default", zap.Error(err))
		} else {
			c.value = loaded
		}
	}

	c.save(c.value)
	return c
}

// fresh decodes a new copy of the default so callers never share its memory.
func (c *Cell[T]) fresh() T {
	var v T
	_ = json.Unmarshal(c.initial, &v)
	return v
}

// Get returns the current value. Treat it as read-only; use Set or Update to change it.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.save(value)
}

// Update replaces the value with fn applied to the current one.
func (c *Cell[T]) Update(fn func(T) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = fn(c.value)
	c.save(c.value)
	return c.value
}

// Clear resets to the default and removes the stored entry.
func (c *Cell[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = c.fresh()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.store.Delete(ctx, c.scope, c.key); err != nil {
		c.logger.Warn("Failed to delete stored value", zap.Error(err))
	}
}

func (c *Cell[T]) save(value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode value", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.store.Put(ctx, c.scope, c.key, raw); err != nil {
		c.logger.Warn("Failed to write value", zap.Error(err))
	}
}
