// Package domain contains the interaction state, persisted entries and feed types shared by the sync engine.
package domain

import (
	"time"

	"github.com/critiqapp/critiq-sync/internal/errors"
)

// Kind is the category of a user interaction.
// The set is closed: every switch over Kind lists all five values.
type Kind string

const (
	KindLike     Kind = "like"
	KindFavorite Kind = "favorite"
	KindBookmark Kind = "bookmark"
	KindHidden   Kind = "hidden"
	KindComment  Kind = "comment"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{KindLike, KindFavorite, KindBookmark, KindHidden, KindComment}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindLike, KindFavorite, KindBookmark, KindHidden, KindComment:
		return true
	default:
		return false
	}
}

// Toggleable reports whether the kind is driven by toggle intents.
// Comments are created, never toggled.
func (k Kind) Toggleable() bool {
	switch k {
	case KindLike, KindFavorite, KindBookmark, KindHidden:
		return true
	case KindComment:
		return false
	default:
		return false
	}
}

// Persisted reports whether committed state is written to the local store.
func (k Kind) Persisted() bool {
	switch k {
	case KindBookmark, KindHidden:
		return true
	case KindLike, KindFavorite, KindComment:
		return false
	default:
		return false
	}
}

// Counted reports whether the record carries an aggregate server count.
func (k Kind) Counted() bool {
	return k == KindLike
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", errors.Validationf("unknown interaction kind %q", s)
	}
	return k, nil
}

// Key identifies one interaction record.
type Key struct {
	EntityID string `json:"entity_id"`
	Kind     Kind   `json:"kind"`
}

// String renders the key as kind:entity.
func (k Key) String() string {
	return string(k.Kind) + ":" + k.EntityID
}

// InteractionRecord is the UI-facing state of one (entity, kind) pair.
type InteractionRecord struct {
	EntityID     string     `json:"entity_id"`
	Kind         Kind       `json:"kind"`
	State        bool       `json:"state"`
	Pending      bool       `json:"pending"`
	ServerCount  *int64     `json:"server_count,omitempty"` // like only
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// DefaultRecord returns the record for an entity that was never interacted with.
func DefaultRecord(key Key) InteractionRecord {
	return InteractionRecord{EntityID: key.EntityID, Kind: key.Kind}
}

// Key returns the record's key.
func (r InteractionRecord) Key() Key {
	return Key{EntityID: r.EntityID, Kind: r.Kind}
}

// Count returns the server count, or zero when unknown.
func (r InteractionRecord) Count() int64 {
	if r.ServerCount == nil {
		return 0
	}
	return *r.ServerCount
}

// Clone returns a copy that shares no pointers with r.
func (r InteractionRecord) Clone() InteractionRecord {
	out := r
	if r.ServerCount != nil {
		c := *r.ServerCount
		out.ServerCount = &c
	}
	if r.LastSyncedAt != nil {
		t := *r.LastSyncedAt
		out.LastSyncedAt = &t
	}
	return out
}

// RecordPatch is a partial update; nil fields are left untouched.
type RecordPatch struct {
	State        *bool
	Pending      *bool
	ServerCount  *int64
	LastSyncedAt *time.Time
}

// Apply copies the non-nil fields of p into r.
func (p RecordPatch) Apply(r *InteractionRecord) {
	if p.State != nil {
		r.State = *p.State
	}
	if p.Pending != nil {
		r.Pending = *p.Pending
	}
	if p.ServerCount != nil {
		c := *p.ServerCount
		r.ServerCount = &c
	}
	if p.LastSyncedAt != nil {
		t := *p.LastSyncedAt
		r.LastSyncedAt = &t
	}
}

// InteractionChange is delivered to cache observers after every write.
type InteractionChange struct {
	Previous InteractionRecord `json:"previous"`
	Current  InteractionRecord `json:"current"`
}
