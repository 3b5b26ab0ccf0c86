// Package kv is the key-value persistence contract the attendance core is
// built on, with badger, sqlite and redis implementations.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is a string key-value store. Get returns ErrNotFound for absent keys,
// Delete of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
