package domain

import "time"

// HiddenReason explains why a post was removed from the feed.
type HiddenReason string

const (
	HiddenReasonUserHidden     HiddenReason = "user_hidden"
	HiddenReasonSpam           HiddenReason = "spam"
	HiddenReasonHarassment     HiddenReason = "harassment"
	HiddenReasonInappropriate  HiddenReason = "inappropriate"
	HiddenReasonMisinformation HiddenReason = "misinformation"
	HiddenReasonOther          HiddenReason = "other"
)

// Valid checks if the reason is one of the known codes.
func (r HiddenReason) Valid() bool {
	switch r {
	case HiddenReasonUserHidden, HiddenReasonSpam, HiddenReasonHarassment,
		HiddenReasonInappropriate, HiddenReasonMisinformation, HiddenReasonOther:
		return true
	default:
		return false
	}
}

// IsReport reports whether the reason is a moderation report rather than a plain hide.
func (r HiddenReason) IsReport() bool {
	return r != HiddenReasonUserHidden
}

// HiddenPostEntry records a hidden or reported post. Entries are append-only.
type HiddenPostEntry struct {
	PostID   string       `json:"post_id"`
	Reason   HiddenReason `json:"reason"`
	Details  string       `json:"details,omitempty"`
	HiddenAt time.Time    `json:"hidden_at"`
}

// ID returns the hidden post's id.
func (h *HiddenPostEntry) ID() string { return h.PostID }

// Timestamp returns the ordering time of the entry.
func (h *HiddenPostEntry) Timestamp() time.Time { return h.HiddenAt }
