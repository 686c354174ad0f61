package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/store"
)

func newTestBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	b, err := Open(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b, dbPath
}

func TestOpen(t *testing.T) {
	b, _ := newTestBackend(t)

	var journalMode string
	require.NoError(t, b.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var name string
	err := b.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='entries'").Scan(&name)
	require.NoError(t, err)
}

func TestBackend_GetSetDelete(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := b.Get(ctx, "bookmark:p1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, b.Set(ctx, "bookmark:p1", []byte(`{"post_id":"p1"}`)))
	require.NoError(t, b.Set(ctx, "bookmark:p1", []byte(`{"post_id":"p1","title":"x"}`)))

	got, err := b.Get(ctx, "bookmark:p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"post_id":"p1","title":"x"}`, string(got))

	require.NoError(t, b.Delete(ctx, "bookmark:p1"))
	require.NoError(t, b.Delete(ctx, "bookmark:p1"))
	_, err = b.Get(ctx, "bookmark:p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBackend_ScanIsPrefixScopedAndOrdered(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	for _, key := range []string{"hidden:b", "bookmark:z", "hidden:a", "hiddenx", "hidden:c"} {
		require.NoError(t, b.Set(ctx, key, []byte("{}")))
	}

	var keys []string
	for item, err := range b.Scan(ctx, "hidden:") {
		require.NoError(t, err)
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []string{"hidden:a", "hidden:b", "hidden:c"}, keys)
}

func TestBackend_ScanStopsEarly(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	for _, key := range []string{"hidden:a", "hidden:b", "hidden:c"} {
		require.NoError(t, b.Set(ctx, key, []byte("{}")))
	}

	count := 0
	for range b.Scan(ctx, "hidden:") {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestBackend_Replace(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "hidden:old", []byte("{}")))
	require.NoError(t, b.Set(ctx, "bookmark:keep", []byte("{}")))

	require.NoError(t, b.Replace(ctx, "hidden:", []store.Item{
		{Key: "hidden:n1", Value: []byte("{}")},
		{Key: "hidden:n2", Value: []byte("{}")},
	}))

	_, err := b.Get(ctx, "hidden:old")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = b.Get(ctx, "hidden:n2")
	assert.NoError(t, err)
	_, err = b.Get(ctx, "bookmark:keep")
	assert.NoError(t, err)
}

func TestPrefixRange(t *testing.T) {
	lo, hi := prefixRange("hidden:")
	assert.Equal(t, "hidden:", lo)
	assert.Equal(t, "hidden;", hi)

	_, hi = prefixRange("\xff\xff")
	assert.Empty(t, hi)
}

func TestStore_RestartRestoresEntries(t *testing.T) {
	b, path := newTestBackend(t)
	ctx := context.Background()

	at := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)
	bookmark := domain.BookmarkEntry{
		PostID:       "post-7",
		Title:        "Past Lives",
		CoverImage:   "covers/pl.jpg",
		AuthorName:   "Sam",
		AuthorAvatar: "avatars/sam.png",
		BookmarkedAt: at,
	}
	hidden := domain.HiddenPostEntry{PostID: "post-9", Reason: domain.HiddenReasonSpam, Details: "link farm", HiddenAt: at}

	s := store.New(b, nil)
	require.NoError(t, s.SaveBookmark(ctx, bookmark))
	require.NoError(t, s.SaveHidden(ctx, hidden))
	require.NoError(t, s.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	s = store.New(reopened, nil)
	defer s.Close()

	bookmarks, err := s.LoadBookmarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.BookmarkEntry{bookmark}, bookmarks)

	hiddenEntries, err := s.LoadHidden(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.HiddenPostEntry{hidden}, hiddenEntries)
}
