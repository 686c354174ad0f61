package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/validation"
)

func (s *Server) registerFeedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "filterVisible",
		Method:      http.MethodPost,
		Path:        "/api/v1/feed/visible",
		Summary:     "Filter feed",
		Description: "Returns the posts that are not hidden, in their original order",
		Tags:        []string{"Feed"},
	}, s.handleFilterVisible)

	huma.Register(s.api, huma.Operation{
		OperationID: "seedFeed",
		Method:      http.MethodPost,
		Path:        "/api/v1/feed/seed",
		Summary:     "Seed from feed",
		Description: "Adopts the viewer's interaction flags and comment counts from a feed fetch, then returns the visible posts",
		Tags:        []string{"Feed"},
	}, s.handleSeedFeed)
}

// FeedRequest carries one page of feed posts.
type FeedRequest struct {
	Posts []domain.Post `json:"posts" maxItems:"500" doc:"Feed posts"`
}

// FeedInput wraps the feed request for Huma.
type FeedInput struct {
	Body FeedRequest
}

// FeedResponse carries the visible posts.
type FeedResponse struct {
	Posts []domain.Post `json:"posts" doc:"Visible posts"`
}

// FeedOutput wraps the visible posts for Huma.
type FeedOutput struct {
	Body FeedResponse
}

func (s *Server) handleFilterVisible(_ context.Context, input *FeedInput) (*FeedOutput, error) {
	return &FeedOutput{Body: FeedResponse{Posts: s.services.Feed.FilterVisible(input.Body.Posts)}}, nil
}

func (s *Server) handleSeedFeed(ctx context.Context, input *FeedInput) (*FeedOutput, error) {
	s.services.Engine.Seed(ctx, input.Body.Posts)
	for _, p := range input.Body.Posts {
		if !validation.ValidEntityID(p.ID) {
			continue
		}
		s.services.Ledger.SeedCount(p.ID, p.CommentCount)
	}

	return &FeedOutput{Body: FeedResponse{Posts: s.services.Feed.FilterVisible(input.Body.Posts)}}, nil
}
