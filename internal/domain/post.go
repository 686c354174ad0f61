package domain

import "time"

// Author is the display information of a post's author.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Post is a feed item as returned by the backend.
// The interaction flags are the viewer's state at fetch time.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CoverImage   string    `json:"cover_image,omitempty"`
	Author       Author    `json:"author"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	Liked        bool      `json:"liked"`
	Favorited    bool      `json:"favorited"`
	Bookmarked   bool      `json:"bookmarked"`
	CreatedAt    time.Time `json:"created_at"`
}

// BookmarkSnapshot builds the offline bookmark entry for the post.
func (p *Post) BookmarkSnapshot(at time.Time) BookmarkEntry {
	return BookmarkEntry{
		PostID:       p.ID,
		Title:        p.Title,
		CoverImage:   p.CoverImage,
		AuthorName:   p.Author.DisplayName,
		AuthorAvatar: p.Author.AvatarURL,
		BookmarkedAt: at,
	}
}
