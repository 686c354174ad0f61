// Package remote talks to the hosted backend: one single-attempt call per interaction kind.
package remote

import (
	"context"

	"github.com/critiqapp/critiq-sync/internal/domain"
)

// Operation names, used as rate limit keys and in errors.
const (
	OpSetLike        = "like.set"
	OpSetFavorite    = "favorite.set"
	OpAddBookmark    = "bookmark.add"
	OpRemoveBookmark = "bookmark.remove"
	OpHidePost       = "post.hide"
	OpReportPost     = "post.report"
	OpCreateComment  = "comment.create"
	OpListComments   = "comment.list"
)

// Result is a successful backend answer. Count is the authoritative aggregate when the backend sends one.
type Result struct {
	Count *int64
}

// Gateway is the backend contract consumed by the engine and the comment ledger.
// Every method is a single round trip: no retry, no local mutation.
// Failures are domain errors carrying UNAUTHORIZED, NETWORK, REMOTE or TIMEOUT.
type Gateway interface {
	SetLike(ctx context.Context, postID string, liked bool) (Result, error)
	SetFavorite(ctx context.Context, postID string, favorited bool) (Result, error)
	AddBookmark(ctx context.Context, postID string) (Result, error)
	RemoveBookmark(ctx context.Context, postID string) (Result, error)
	HidePost(ctx context.Context, postID string) (Result, error)
	ReportPost(ctx context.Context, postID string, reason domain.HiddenReason, details string) (Result, error)
	CreateComment(ctx context.Context, postID, content string, parentID *string) (*domain.CommentRecord, error)
	ListComments(ctx context.Context, postID, cursor string, limit int) (*domain.CommentPage, error)
}
