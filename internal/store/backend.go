package store

import (
	"context"
	"iter"
)

// Item is one key/value pair of a Backend.
type Item struct {
	Key   string
	Value []byte
}

// Backend is an ordered key-value store owned exclusively by the sync engine.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Scan yields every item whose key starts with prefix, ordered by key.
	Scan(ctx context.Context, prefix string) iter.Seq2[Item, error]
	// Replace atomically drops every key under prefix and writes items.
	Replace(ctx context.Context, prefix string, items []Item) error
	// Close releases the underlying resources.
	Close() error
}
