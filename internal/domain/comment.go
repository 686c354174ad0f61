package domain

import "time"

// CommentRecord is a single comment on a post.
// ParentID is set for replies.
type CommentRecord struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	LikeCount  int64     `json:"like_count"`
	ParentID   *string   `json:"parent_id,omitempty"`
}

// CommentPage is one page of a post's comments.
type CommentPage struct {
	Items      []CommentRecord `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"` // Empty if no more pages
	HasMore    bool            `json:"has_more"`
	Total      *int64          `json:"total,omitempty"`
}
