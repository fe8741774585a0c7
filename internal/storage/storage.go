package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: not found")

// Storage persists JSON-encoded values per session scope. A scope plays the
// role of a browser origin: one chat, one scope.
type Storage interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Put(ctx context.Context, scope, key string, value []byte) error
	Delete(ctx context.Context, scope, key string) error
	Close() error
}
