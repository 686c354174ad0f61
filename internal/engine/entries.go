package engine

import (
	"cmp"
	"context"
	"slices"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/validation"
)

// Hydrate loads the persisted buckets into the cache.
// A failing bucket is logged and skipped; the engine then starts with that kind empty.
func (e *Engine) Hydrate(ctx context.Context) error {
	bookmarks, err := e.persister.LoadBookmarks(ctx)
	if err != nil {
		e.logger.Warn("loading bookmarks failed, starting without them", "error", err)
	}
	hidden, err := e.persister.LoadHidden(ctx)
	if err != nil {
		e.logger.Warn("loading hidden posts failed, starting without them", "error", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, b := range bookmarks {
		if e.busyLocked(domain.Key{EntityID: b.PostID, Kind: domain.KindBookmark}) {
			continue
		}
		e.bookmarks[b.PostID] = b
		synced := b.BookmarkedAt
		e.cache.Replace(domain.InteractionRecord{
			EntityID: b.PostID, Kind: domain.KindBookmark, State: true, LastSyncedAt: &synced,
		})
	}
	for _, h := range hidden {
		if e.busyLocked(domain.Key{EntityID: h.PostID, Kind: domain.KindHidden}) {
			continue
		}
		e.hidden[h.PostID] = h
		synced := h.HiddenAt
		e.cache.Replace(domain.InteractionRecord{
			EntityID: h.PostID, Kind: domain.KindHidden, State: true, LastSyncedAt: &synced,
		})
	}

	e.logger.Info("engine hydrated", "bookmarks", len(bookmarks), "hidden", len(hidden))
	return nil
}

// Seed adopts the viewer's like, favorite and bookmark state from a feed fetch.
// Keys with a pending intent keep their optimistic value.
func (e *Engine) Seed(ctx context.Context, posts []domain.Post) {
	now := e.opts.Now().UTC()

	var (
		saves   []domain.BookmarkEntry
		removes []string
	)

	e.mu.Lock()
	for i := range posts {
		p := &posts[i]
		if !validation.ValidEntityID(p.ID) {
			e.logger.Warn("skipping feed post with malformed id", "post_id", p.ID)
			continue
		}

		if !e.busyLocked(domain.Key{EntityID: p.ID, Kind: domain.KindLike}) {
			count := p.LikeCount
			e.cache.Replace(domain.InteractionRecord{
				EntityID: p.ID, Kind: domain.KindLike, State: p.Liked, ServerCount: &count, LastSyncedAt: &now,
			})
		}
		if !e.busyLocked(domain.Key{EntityID: p.ID, Kind: domain.KindFavorite}) {
			e.cache.Replace(domain.InteractionRecord{
				EntityID: p.ID, Kind: domain.KindFavorite, State: p.Favorited, LastSyncedAt: &now,
			})
		}
		if !e.busyLocked(domain.Key{EntityID: p.ID, Kind: domain.KindBookmark}) {
			e.cache.Replace(domain.InteractionRecord{
				EntityID: p.ID, Kind: domain.KindBookmark, State: p.Bookmarked, LastSyncedAt: &now,
			})
			_, known := e.bookmarks[p.ID]
			switch {
			case p.Bookmarked && !known:
				entry := p.BookmarkSnapshot(now)
				e.bookmarks[p.ID] = entry
				saves = append(saves, entry)
			case !p.Bookmarked && known:
				delete(e.bookmarks, p.ID)
				removes = append(removes, p.ID)
			}
		}
	}
	e.mu.Unlock()

	for _, entry := range saves {
		if err := e.persister.SaveBookmark(ctx, entry); err != nil {
			e.logger.Warn("persisting seeded bookmark failed", "post_id", entry.PostID, "error", err)
		}
	}
	for _, postID := range removes {
		if err := e.persister.RemoveBookmark(ctx, postID); err != nil {
			e.logger.Warn("removing seeded bookmark failed", "post_id", postID, "error", err)
		}
	}
}

// Bookmarks returns the confirmed bookmarks, newest first.
func (e *Engine) Bookmarks() []domain.BookmarkEntry {
	e.mu.Lock()
	out := make([]domain.BookmarkEntry, 0, len(e.bookmarks))
	for _, b := range e.bookmarks {
		out = append(out, b)
	}
	e.mu.Unlock()

	slices.SortFunc(out, func(a, b domain.BookmarkEntry) int {
		if c := b.BookmarkedAt.Compare(a.BookmarkedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.PostID, b.PostID)
	})
	return out
}

// HiddenEntries returns the confirmed hidden posts, oldest first.
func (e *Engine) HiddenEntries() []domain.HiddenPostEntry {
	e.mu.Lock()
	out := make([]domain.HiddenPostEntry, 0, len(e.hidden))
	for _, h := range e.hidden {
		out = append(out, h)
	}
	e.mu.Unlock()

	slices.SortFunc(out, func(a, b domain.HiddenPostEntry) int {
		if c := a.HiddenAt.Compare(b.HiddenAt); c != 0 {
			return c
		}
		return cmp.Compare(a.PostID, b.PostID)
	})
	return out
}

func (e *Engine) busyLocked(key domain.Key) bool {
	ks := e.keys[key]
	return ks != nil && ks.busy()
}
