package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Bucket is a kind-scoped view over a Backend holding JSON entries of type T.
type Bucket[T any] struct {
	backend Backend
	prefix  string
	logger  *slog.Logger
	idOf    func(*T) string
	timeOf  func(*T) time.Time
}

// NewBucket creates a bucket under prefix. idOf names an entry's key; timeOf orders Load.
func NewBucket[T any](backend Backend, prefix string, logger *slog.Logger, idOf func(*T) string, timeOf func(*T) time.Time) *Bucket[T] {
	return &Bucket[T]{
		backend: backend,
		prefix:  prefix,
		logger:  logger,
		idOf:    idOf,
		timeOf:  timeOf,
	}
}

// Prefix returns the bucket's key prefix.
func (b *Bucket[T]) Prefix() string {
	return b.prefix
}

// Load returns every entry ordered oldest first, ties broken by id.
// Entries that fail to decode are skipped and logged.
func (b *Bucket[T]) Load(ctx context.Context) ([]T, error) {
	var entries []T
	for item, err := range b.backend.Scan(ctx, b.prefix) {
		if err != nil {
			return nil, err
		}

		var entry T
		if err := json.Unmarshal(item.Value, &entry); err != nil {
			if b.logger != nil {
				b.logger.Warn("skipping undecodable entry", "key", item.Key, "error", err)
			}
			continue
		}
		entries = append(entries, entry)
	}

	slices.SortStableFunc(entries, func(x, y T) int {
		if c := b.timeOf(&x).Compare(b.timeOf(&y)); c != 0 {
			return c
		}
		return cmp.Compare(b.idOf(&x), b.idOf(&y))
	})
	return entries, nil
}

// IDs returns the ids stored in the bucket in key order.
func (b *Bucket[T]) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	for item, err := range b.backend.Scan(ctx, b.prefix) {
		if err != nil {
			return nil, err
		}
		ids = append(ids, idFromKey(b.prefix, item.Key))
	}
	return ids, nil
}

// Undecodable returns the stored ids, in key order, that Load skips.
func (b *Bucket[T]) Undecodable(ctx context.Context) ([]string, error) {
	ids, err := b.IDs(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}

	loaded := make(map[string]struct{}, len(entries))
	for i := range entries {
		loaded[b.idOf(&entries[i])] = struct{}{}
	}
	var out []string
	for _, id := range ids {
		if _, ok := loaded[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Save replaces the whole bucket with entries.
func (b *Bucket[T]) Save(ctx context.Context, entries []T) error {
	items := make([]Item, 0, len(entries))
	for i := range entries {
		data, err := json.Marshal(&entries[i])
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		items = append(items, Item{Key: entryKey(b.prefix, b.idOf(&entries[i])), Value: data})
	}
	return b.backend.Replace(ctx, b.prefix, items)
}

// Append writes one entry, replacing any entry with the same id.
func (b *Bucket[T]) Append(ctx context.Context, entry *T) error {
	id := b.idOf(entry)
	if id == "" {
		return fmt.Errorf("append to %s: entry has no id", b.prefix)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	return b.backend.Set(ctx, entryKey(b.prefix, id), data)
}

// Remove deletes the entry with id. Removing a missing entry succeeds.
func (b *Bucket[T]) Remove(ctx context.Context, id string) error {
	return b.backend.Delete(ctx, entryKey(b.prefix, id))
}

// Get returns the entry with id, or ErrNotFound.
func (b *Bucket[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := b.backend.Get(ctx, entryKey(b.prefix, id))
	if err != nil {
		return nil, err
	}

	var entry T
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}
