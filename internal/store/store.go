// Package store persists bookmark and hidden-post entries in a local key-value backend.
package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/critiqapp/critiq-sync/internal/domain"
)

// Store groups the persisted buckets of the sync engine.
type Store struct {
	backend Backend
	logger  *slog.Logger

	Bookmarks *Bucket[domain.BookmarkEntry]
	Hidden    *Bucket[domain.HiddenPostEntry]
}

// New creates a Store over backend. The store owns the backend and closes it.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
		Bookmarks: NewBucket(backend, PrefixBookmark, logger,
			(*domain.BookmarkEntry).ID, (*domain.BookmarkEntry).Timestamp),
		Hidden: NewBucket(backend, PrefixHidden, logger,
			(*domain.HiddenPostEntry).ID, (*domain.HiddenPostEntry).Timestamp),
	}
}

// SaveBookmark writes a bookmark snapshot.
func (s *Store) SaveBookmark(ctx context.Context, entry domain.BookmarkEntry) error {
	return s.Bookmarks.Append(ctx, &entry)
}

// RemoveBookmark deletes the bookmark for postID.
func (s *Store) RemoveBookmark(ctx context.Context, postID string) error {
	return s.Bookmarks.Remove(ctx, postID)
}

// SaveHidden writes a hidden-post entry.
func (s *Store) SaveHidden(ctx context.Context, entry domain.HiddenPostEntry) error {
	return s.Hidden.Append(ctx, &entry)
}

// LoadBookmarks returns all bookmarks, oldest first.
func (s *Store) LoadBookmarks(ctx context.Context) ([]domain.BookmarkEntry, error) {
	return s.Bookmarks.Load(ctx)
}

// LoadHidden returns all hidden-post entries, oldest first.
func (s *Store) LoadHidden(ctx context.Context) ([]domain.HiddenPostEntry, error) {
	return s.Hidden.Load(ctx)
}

// Ping reads a sentinel key to check that the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.backend.Get(ctx, "health:ping")
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Close closes the backend.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing interaction store")
	}
	return s.backend.Close()
}
