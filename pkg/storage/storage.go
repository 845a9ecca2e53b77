package storage

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Load when no value exists for the key.
var ErrKeyNotFound = errors.New("key not found in storage")

// KeyValueStore is the persistence capability the managers depend on.
// Keys are opaque strings chosen by the caller (e.g. "projects/{id}");
// values are marshalled to JSON by the adapter. The managers use one key
// per entity and impose no further key schema.
type KeyValueStore interface {
	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value any) error
	// Load reads the value stored under key into dest (a pointer).
	// Returns ErrKeyNotFound if the key is absent.
	Load(ctx context.Context, key string, dest any) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
	// List returns all stored keys starting with prefix, sorted.
	// An empty prefix lists every key.
	List(ctx context.Context, prefix string) ([]string, error)
	// Clear removes every key owned by this store.
	Clear(ctx context.Context) error
}
