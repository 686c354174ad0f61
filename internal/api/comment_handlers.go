package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/critiqapp/critiq-sync/internal/domain"
)

func (s *Server) registerCommentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{postID}/comments",
		Summary:     "List comments",
		Description: "Loads one page of comments. An empty cursor starts over from page 1.",
		Tags:        []string{"Comments"},
	}, s.handleListComments)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts/{postID}/comments",
		Summary:       "Create comment",
		Description:   "Posts a comment and invalidates the post's loaded comments",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateComment)

	huma.Register(s.api, huma.Operation{
		OperationID:   "invalidateComments",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts/{postID}/comments/invalidate",
		Summary:       "Invalidate comments",
		Description:   "Drops the loaded comments so views refetch from page 1",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleInvalidateComments)
}

// === DTOs ===

// ListCommentsInput contains parameters for listing comments.
type ListCommentsInput struct {
	PostID string `path:"postID" maxLength:"128" doc:"Post ID"`
	Cursor string `query:"cursor" doc:"Cursor from a previous page"`
}

// CommentsResponse is one page plus the post's known count.
type CommentsResponse struct {
	Comments   []domain.CommentRecord `json:"comments" doc:"Comments on this page"`
	NextCursor string                 `json:"next_cursor,omitempty" doc:"Cursor of the next page"`
	HasMore    bool                   `json:"has_more" doc:"Whether another page exists"`
	Count      *int64                 `json:"count,omitempty" doc:"Known comment count of the post"`
}

// CommentsOutput wraps the comments response for Huma.
type CommentsOutput struct {
	Body CommentsResponse
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content  string  `json:"content" doc:"Comment text"`
	ParentID *string `json:"parent_id,omitempty" doc:"Parent comment for replies"`
}

// CreateCommentInput wraps the create comment request for Huma.
type CreateCommentInput struct {
	PostID string `path:"postID" maxLength:"128" doc:"Post ID"`
	Body   CreateCommentRequest
}

// CreateCommentResponse is the created comment plus the updated count.
type CreateCommentResponse struct {
	Comment domain.CommentRecord `json:"comment" doc:"Created comment"`
	Count   *int64               `json:"count,omitempty" doc:"Known comment count after the create"`
}

// CreateCommentOutput wraps the create comment response for Huma.
type CreateCommentOutput struct {
	Body CreateCommentResponse
}

// InvalidateCommentsInput identifies the post to invalidate.
type InvalidateCommentsInput struct {
	PostID string `path:"postID" maxLength:"128" doc:"Post ID"`
}

// === Handlers ===

func (s *Server) count(postID string) *int64 {
	if n, ok := s.services.Ledger.Count(postID); ok {
		return &n
	}
	return nil
}

func (s *Server) handleListComments(ctx context.Context, input *ListCommentsInput) (*CommentsOutput, error) {
	page, err := s.services.Ledger.LoadPage(ctx, input.PostID, input.Cursor)
	if err != nil {
		return nil, err
	}

	items := page.Items
	if items == nil {
		items = []domain.CommentRecord{}
	}
	return &CommentsOutput{
		Body: CommentsResponse{
			Comments:   items,
			NextCursor: page.NextCursor,
			HasMore:    page.HasMore,
			Count:      s.count(input.PostID),
		},
	}, nil
}

func (s *Server) handleCreateComment(ctx context.Context, input *CreateCommentInput) (*CreateCommentOutput, error) {
	rec, err := s.services.Ledger.Create(ctx, input.PostID, input.Body.Content, input.Body.ParentID)
	if err != nil {
		return nil, err
	}
	return &CreateCommentOutput{
		Body: CreateCommentResponse{
			Comment: *rec,
			Count:   s.count(input.PostID),
		},
	}, nil
}

func (s *Server) handleInvalidateComments(_ context.Context, input *InvalidateCommentsInput) (*struct{}, error) {
	s.services.Ledger.Invalidate(input.PostID)
	return nil, nil
}
