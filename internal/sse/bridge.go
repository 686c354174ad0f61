package sse

import (
	"github.com/critiqapp/critiq-sync/internal/cache"
	"github.com/critiqapp/critiq-sync/internal/comments"
	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/engine"
)

// BridgeCache emits interaction.changed for every cache write.
// The returned func detaches the bridge.
func BridgeCache(m *Manager, c *cache.Cache) func() {
	return c.SubscribeAll(func(change domain.InteractionChange) {
		m.Emit(NewInteractionChangedEvent(change))
	})
}

// OutcomeHook returns an engine outcome hook that emits interaction.failed on rollback.
func OutcomeHook(m *Manager) func(engine.Outcome) {
	return func(o engine.Outcome) {
		if o.Status != engine.StatusRolledBack {
			return
		}
		m.Emit(NewInteractionFailedEvent(o.Key, o.Seq, o.Record, o.Err))
	}
}

// BridgeLedger emits comments.invalidated and comment.created for ledger activity.
func BridgeLedger(m *Manager, l *comments.Ledger) func() {
	offInvalidate := l.OnInvalidate(func(postID string) {
		m.Emit(NewCommentsInvalidatedEvent(postID))
	})
	offCreate := l.OnCreate(func(c domain.CommentRecord) {
		m.Emit(NewCommentCreatedEvent(c))
	})
	return func() {
		offInvalidate()
		offCreate()
	}
}
