package domain

import "time"

// BookmarkEntry is a denormalized snapshot of a bookmarked post.
// It must render offline, so it never references live data.
type BookmarkEntry struct {
	PostID       string    `json:"post_id"`
	Title        string    `json:"title"`
	CoverImage   string    `json:"cover_image,omitempty"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	BookmarkedAt time.Time `json:"bookmarked_at"`
}

// ID returns the post the entry refers to.
func (b *BookmarkEntry) ID() string { return b.PostID }

// Timestamp returns the ordering time of the entry.
func (b *BookmarkEntry) Timestamp() time.Time { return b.BookmarkedAt }

// Equal reports whether two entries hold the same snapshot.
func (b *BookmarkEntry) Equal(o BookmarkEntry) bool {
	return b.PostID == o.PostID &&
		b.Title == o.Title &&
		b.CoverImage == o.CoverImage &&
		b.AuthorName == o.AuthorName &&
		b.AuthorAvatar == o.AuthorAvatar &&
		b.BookmarkedAt.Equal(o.BookmarkedAt)
}
