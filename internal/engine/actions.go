package engine

import (
	"context"

	"github.com/critiqapp/critiq-sync/internal/domain"
)

// Like toggles the viewer's like on a post.
func (e *Engine) Like(ctx context.Context, postID string) (*Handle, error) {
	return e.Toggle(ctx, Intent{EntityID: postID, Kind: domain.KindLike})
}

// Favorite toggles the viewer's favorite on a post.
func (e *Engine) Favorite(ctx context.Context, postID string) (*Handle, error) {
	return e.Toggle(ctx, Intent{EntityID: postID, Kind: domain.KindFavorite})
}

// Bookmark adds a bookmark holding a snapshot of post.
func (e *Engine) Bookmark(ctx context.Context, post domain.Post) (*Handle, error) {
	return e.Toggle(ctx, Intent{EntityID: post.ID, Kind: domain.KindBookmark, Post: &post, Want: ptr(true)})
}

// Unbookmark removes a bookmark.
func (e *Engine) Unbookmark(ctx context.Context, postID string) (*Handle, error) {
	return e.Toggle(ctx, Intent{EntityID: postID, Kind: domain.KindBookmark, Want: ptr(false)})
}

// Hide removes a post from the viewer's feed. Hiding is permanent.
func (e *Engine) Hide(ctx context.Context, postID string) (*Handle, error) {
	return e.Toggle(ctx, Intent{EntityID: postID, Kind: domain.KindHidden, Reason: domain.HiddenReasonUserHidden})
}

// Report reports a post for moderation and hides it.
func (e *Engine) Report(ctx context.Context, postID string, reason domain.HiddenReason, details string) (*Handle, error) {
	return e.Toggle(ctx, Intent{EntityID: postID, Kind: domain.KindHidden, Reason: reason, Details: details})
}
