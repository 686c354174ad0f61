package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/store"
)

func setupTestBackend(t *testing.T) (*store.BadgerBackend, string, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "bucket-test-*")
	require.NoError(t, err)

	path := filepath.Join(tmpDir, "badger")
	b, err := store.OpenBadger(path, nil)
	require.NoError(t, err)

	cleanup := func() {
		_ = b.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return b, path, cleanup
}

func hiddenEntry(id string, at time.Time) domain.HiddenPostEntry {
	return domain.HiddenPostEntry{PostID: id, Reason: domain.HiddenReasonUserHidden, HiddenAt: at}
}

func TestBucket_LoadOrdersByTimestampThenID(t *testing.T) {
	b, _, cleanup := setupTestBackend(t)
	defer cleanup()
	s := store.New(b, nil)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, e := range []domain.HiddenPostEntry{
		hiddenEntry("c", base.Add(2*time.Minute)),
		hiddenEntry("b", base),
		hiddenEntry("a", base),
	} {
		require.NoError(t, s.SaveHidden(ctx, e))
	}

	entries, err := s.LoadHidden(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].PostID)
	assert.Equal(t, "b", entries[1].PostID)
	assert.Equal(t, "c", entries[2].PostID)

	// Restartable: a second load yields the same sequence.
	again, err := s.LoadHidden(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestBucket_AppendReplacesOnWrite(t *testing.T) {
	b, _, cleanup := setupTestBackend(t)
	defer cleanup()
	s := store.New(b, nil)
	ctx := context.Background()

	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	first := domain.BookmarkEntry{PostID: "p1", Title: "Old title", BookmarkedAt: at}
	second := domain.BookmarkEntry{PostID: "p1", Title: "New title", BookmarkedAt: at.Add(time.Hour)}

	require.NoError(t, s.SaveBookmark(ctx, first))
	require.NoError(t, s.SaveBookmark(ctx, second))

	entries, err := s.LoadBookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New title", entries[0].Title)
}

func TestBucket_RemoveIsIdempotent(t *testing.T) {
	b, _, cleanup := setupTestBackend(t)
	defer cleanup()
	s := store.New(b, nil)
	ctx := context.Background()

	require.NoError(t, s.SaveBookmark(ctx, domain.BookmarkEntry{PostID: "p1", BookmarkedAt: time.Now()}))
	require.NoError(t, s.RemoveBookmark(ctx, "p1"))
	require.NoError(t, s.RemoveBookmark(ctx, "p1"))

	_, err := s.Bookmarks.Get(ctx, "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestBucket_SaveReplacesWholeBucket(t *testing.T) {
	b, _, cleanup := setupTestBackend(t)
	defer cleanup()
	s := store.New(b, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveHidden(ctx, hiddenEntry("stale", now)))
	require.NoError(t, s.SaveBookmark(ctx, domain.BookmarkEntry{PostID: "keep", BookmarkedAt: now}))

	require.NoError(t, s.Hidden.Save(ctx, []domain.HiddenPostEntry{
		hiddenEntry("x", now),
		hiddenEntry("y", now.Add(time.Second)),
	}))

	ids, err := s.Hidden.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ids)

	// Other buckets are untouched.
	bookmarks, err := s.LoadBookmarks(ctx)
	require.NoError(t, err)
	assert.Len(t, bookmarks, 1)
}

func TestBucket_SkipsUndecodableEntries(t *testing.T) {
	b, _, cleanup := setupTestBackend(t)
	defer cleanup()
	s := store.New(b, nil)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, store.PrefixHidden+"broken", []byte("{not json")))
	require.NoError(t, s.SaveHidden(ctx, hiddenEntry("ok", time.Now())))

	entries, err := s.LoadHidden(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].PostID)
}

func TestBucket_UndecodableListsSkippedIDs(t *testing.T) {
	b, _, cleanup := setupTestBackend(t)
	defer cleanup()
	s := store.New(b, nil)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, store.PrefixHidden+"broken", []byte("{not json")))
	require.NoError(t, s.SaveHidden(ctx, hiddenEntry("ok", time.Now())))

	ids, err := s.Hidden.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "ok"}, ids)

	bad, err := s.Hidden.Undecodable(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken"}, bad)

	bad, err = s.Bookmarks.Undecodable(ctx)
	require.NoError(t, err)
	assert.Empty(t, bad)
}

func TestBucket_CancelledContext(t *testing.T) {
	b, _, cleanup := setupTestBackend(t)
	defer cleanup()
	s := store.New(b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.SaveBookmark(ctx, domain.BookmarkEntry{PostID: "p1"}))
}

func TestStore_RestartRestoresBookmarkSnapshot(t *testing.T) {
	b, path, cleanup := setupTestBackend(t)
	defer cleanup()
	ctx := context.Background()

	post := domain.Post{
		ID:         "post-42",
		Title:      "Dune, reconsidered",
		CoverImage: "covers/dune.jpg",
		Author:     domain.Author{ID: "u1", DisplayName: "Ana", AvatarURL: "avatars/ana.png"},
	}
	want := post.BookmarkSnapshot(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, store.New(b, nil).SaveBookmark(ctx, want))
	require.NoError(t, b.Close())

	reopened, err := store.OpenBadger(path, nil)
	require.NoError(t, err)
	s := store.New(reopened, nil)
	defer s.Close()

	entries, err := s.LoadBookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, want, entries[0])
}
