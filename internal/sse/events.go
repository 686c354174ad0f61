// Package sse streams interaction, comment and heartbeat events to UI clients.
package sse

import (
	"time"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/errors"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventInteractionChanged is sent after every cache write, optimistic or settled.
	EventInteractionChanged EventType = "interaction.changed"
	// EventInteractionFailed is sent when an intent rolls back.
	EventInteractionFailed EventType = "interaction.failed"
	// EventCommentsInvalidated tells views to refetch a post's comments from page 1.
	EventCommentsInvalidated EventType = "comments.invalidated"
	// EventCommentCreated carries a newly created comment.
	EventCommentCreated EventType = "comment.created"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// EntityID restricts delivery to clients subscribed to the entity.
	// Empty means every client.
	EntityID string `json:"-"`
}

// InteractionChangedEventData is the data payload for interaction.changed.
type InteractionChangedEventData struct {
	Previous domain.InteractionRecord `json:"previous"`
	Current  domain.InteractionRecord `json:"current"`
}

// InteractionFailedEventData is the data payload for interaction.failed.
// Record is the state the key was rolled back to.
type InteractionFailedEventData struct {
	Key       domain.Key               `json:"key"`
	Seq       uint64                   `json:"seq"`
	Code      errors.Code              `json:"code"`
	Message   string                   `json:"message"`
	Retryable bool                     `json:"retryable"`
	Record    domain.InteractionRecord `json:"record"`
}

// CommentsInvalidatedEventData is the data payload for comments.invalidated.
type CommentsInvalidatedEventData struct {
	PostID string `json:"post_id"`
}

// CommentCreatedEventData is the data payload for comment.created.
type CommentCreatedEventData struct {
	Comment domain.CommentRecord `json:"comment"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewInteractionChangedEvent creates an interaction.changed event.
func NewInteractionChangedEvent(change domain.InteractionChange) Event {
	return Event{
		Type:      EventInteractionChanged,
		Timestamp: time.Now(),
		EntityID:  change.Current.EntityID,
		Data: InteractionChangedEventData{
			Previous: change.Previous,
			Current:  change.Current,
		},
	}
}

// NewInteractionFailedEvent creates an interaction.failed event.
func NewInteractionFailedEvent(key domain.Key, seq uint64, record domain.InteractionRecord, err error) Event {
	code := errors.CodeOf(err)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Event{
		Type:      EventInteractionFailed,
		Timestamp: time.Now(),
		EntityID:  key.EntityID,
		Data: InteractionFailedEventData{
			Key:       key,
			Seq:       seq,
			Code:      code,
			Message:   msg,
			Retryable: code.Retryable(),
			Record:    record,
		},
	}
}

// NewCommentsInvalidatedEvent creates a comments.invalidated event.
func NewCommentsInvalidatedEvent(postID string) Event {
	return Event{
		Type:      EventCommentsInvalidated,
		Timestamp: time.Now(),
		EntityID:  postID,
		Data:      CommentsInvalidatedEventData{PostID: postID},
	}
}

// NewCommentCreatedEvent creates a comment.created event.
func NewCommentCreatedEvent(c domain.CommentRecord) Event {
	return Event{
		Type:      EventCommentCreated,
		Timestamp: time.Now(),
		EntityID:  c.PostID,
		Data:      CommentCreatedEventData{Comment: c},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
