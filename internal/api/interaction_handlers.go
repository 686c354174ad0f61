package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/engine"
)

func (s *Server) registerInteractionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getInteractionSnapshot",
		Method:      http.MethodGet,
		Path:        "/api/v1/interactions/{kind}",
		Summary:     "Interaction snapshot",
		Description: "Returns entity id to state for every known record of a kind",
		Tags:        []string{"Interactions"},
	}, s.handleGetSnapshot)

	huma.Register(s.api, huma.Operation{
		OperationID: "getInteraction",
		Method:      http.MethodGet,
		Path:        "/api/v1/interactions/{kind}/{entityID}",
		Summary:     "Get interaction",
		Description: "Returns the current record, or the default record when the entity was never touched",
		Tags:        []string{"Interactions"},
	}, s.handleGetInteraction)

	huma.Register(s.api, huma.Operation{
		OperationID:   "toggleInteraction",
		Method:        http.MethodPost,
		Path:          "/api/v1/interactions/{kind}/{entityID}/toggle",
		Summary:       "Toggle interaction",
		Description:   "Applies the toggle optimistically. With wait=true the call blocks until the backend confirms or the intent rolls back.",
		Tags:          []string{"Interactions"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleToggle)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookmarks",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookmarks",
		Summary:     "List bookmarks",
		Description: "Returns confirmed bookmark snapshots, newest first",
		Tags:        []string{"Interactions"},
	}, s.handleListBookmarks)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHidden",
		Method:      http.MethodGet,
		Path:        "/api/v1/hidden",
		Summary:     "List hidden posts",
		Description: "Returns confirmed hidden and reported posts, oldest first",
		Tags:        []string{"Interactions"},
	}, s.handleListHidden)
}

// === DTOs ===

// SnapshotInput contains parameters for a snapshot.
type SnapshotInput struct {
	Kind string `path:"kind" enum:"like,favorite,bookmark,hidden" doc:"Interaction kind"`
}

// SnapshotResponse maps entity ids to state.
type SnapshotResponse struct {
	Kind    domain.Kind     `json:"kind" doc:"Interaction kind"`
	States  map[string]bool `json:"states" doc:"Entity id to state"`
	Pending []string        `json:"pending,omitempty" doc:"Sorted entity ids still awaiting the backend"`
}

// SnapshotOutput wraps the snapshot response for Huma.
type SnapshotOutput struct {
	Body SnapshotResponse
}

// InteractionInput identifies one record.
type InteractionInput struct {
	Kind     string `path:"kind" enum:"like,favorite,bookmark,hidden" doc:"Interaction kind"`
	EntityID string `path:"entityID" maxLength:"128" doc:"Entity ID"`
}

// RecordOutput wraps a record for Huma.
type RecordOutput struct {
	Body domain.InteractionRecord
}

// ToggleRequest is the optional toggle body.
type ToggleRequest struct {
	Post    *domain.Post `json:"post,omitempty" doc:"Post snapshot, required when adding a bookmark"`
	Reason  string       `json:"reason,omitempty" enum:"user_hidden,spam,harassment,inappropriate,misinformation,other" doc:"Hide or report reason"`
	Details string       `json:"details,omitempty" maxLength:"1000" doc:"Free-form report details"`
	Want    *bool        `json:"want,omitempty" doc:"Reject the toggle unless it moves the state to this value"`
}

// ToggleInput wraps the toggle request for Huma.
type ToggleInput struct {
	Kind     string         `path:"kind" enum:"like,favorite,bookmark,hidden" doc:"Interaction kind"`
	EntityID string         `path:"entityID" maxLength:"128" doc:"Entity ID"`
	Wait     bool           `query:"wait" doc:"Block until the intent resolves"`
	Body     *ToggleRequest `required:"false"`
}

// ToggleResponse describes an accepted or resolved intent.
type ToggleResponse struct {
	Key    domain.Key               `json:"key" doc:"Record key"`
	Seq    uint64                   `json:"seq" doc:"Per-key intent sequence number"`
	Status string                   `json:"status" doc:"pending, committed, rolled_back or superseded"`
	Record domain.InteractionRecord `json:"record" doc:"Optimistic record, or the settled record when waiting"`
}

// ToggleOutput wraps the toggle response for Huma.
type ToggleOutput struct {
	Status int
	Body   ToggleResponse
}

// BookmarksResponse lists bookmark snapshots.
type BookmarksResponse struct {
	Bookmarks []domain.BookmarkEntry `json:"bookmarks" doc:"Bookmarks, newest first"`
}

// BookmarksOutput wraps the bookmark list for Huma.
type BookmarksOutput struct {
	Body BookmarksResponse
}

// HiddenResponse lists hidden posts.
type HiddenResponse struct {
	Hidden []domain.HiddenPostEntry `json:"hidden" doc:"Hidden posts, oldest first"`
}

// HiddenOutput wraps the hidden list for Huma.
type HiddenOutput struct {
	Body HiddenResponse
}

// === Handlers ===

func (s *Server) handleGetSnapshot(_ context.Context, input *SnapshotInput) (*SnapshotOutput, error) {
	kind, err := domain.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}
	return &SnapshotOutput{
		Body: SnapshotResponse{
			Kind:    kind,
			States:  s.services.Engine.Snapshot(kind),
			Pending: s.services.Engine.Pending(kind),
		},
	}, nil
}

func (s *Server) handleGetInteraction(_ context.Context, input *InteractionInput) (*RecordOutput, error) {
	kind, err := domain.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}
	return &RecordOutput{Body: s.services.Engine.Get(input.EntityID, kind)}, nil
}

func (s *Server) handleToggle(ctx context.Context, input *ToggleInput) (*ToggleOutput, error) {
	kind, err := domain.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}

	intent := engine.Intent{EntityID: input.EntityID, Kind: kind}
	if input.Body != nil {
		intent.Post = input.Body.Post
		intent.Reason = domain.HiddenReason(input.Body.Reason)
		intent.Details = input.Body.Details
		intent.Want = input.Body.Want
	}

	h, err := s.services.Engine.Toggle(ctx, intent)
	if err != nil {
		return nil, err
	}

	if !input.Wait {
		return &ToggleOutput{
			Status: http.StatusAccepted,
			Body: ToggleResponse{
				Key:    h.Key(),
				Seq:    h.Seq(),
				Status: "pending",
				Record: h.Optimistic(),
			},
		}, nil
	}

	outcome, err := h.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return &ToggleOutput{
		Status: http.StatusOK,
		Body: ToggleResponse{
			Key:    outcome.Key,
			Seq:    outcome.Seq,
			Status: string(outcome.Status),
			Record: outcome.Record,
		},
	}, nil
}

func (s *Server) handleListBookmarks(_ context.Context, _ *struct{}) (*BookmarksOutput, error) {
	return &BookmarksOutput{Body: BookmarksResponse{Bookmarks: s.services.Engine.Bookmarks()}}, nil
}

func (s *Server) handleListHidden(_ context.Context, _ *struct{}) (*HiddenOutput, error) {
	return &HiddenOutput{Body: HiddenResponse{Hidden: s.services.Engine.HiddenEntries()}}, nil
}
