// Package feed derives the visible feed from the interaction cache.
package feed

import (
	"github.com/critiqapp/critiq-sync/internal/domain"
)

// HiddenSource exposes per-kind state snapshots. *cache.Cache and *engine.Engine satisfy it.
type HiddenSource interface {
	Snapshot(kind domain.Kind) map[string]bool
}

// Filter removes hidden posts from feed pages.
type Filter struct {
	source HiddenSource
}

// NewFilter creates a filter reading hidden state from source.
func NewFilter(source HiddenSource) *Filter {
	return &Filter{source: source}
}

// FilterVisible returns the posts that are not hidden, including posts hidden
// optimistically and not yet confirmed. The hidden set is read on every call.
func (f *Filter) FilterVisible(posts []domain.Post) []domain.Post {
	return FilterVisible(posts, f.source.Snapshot(domain.KindHidden))
}

// FilterVisible drops every post whose id is true in hidden, keeping order.
// The input slice is never modified.
func FilterVisible(posts []domain.Post, hidden map[string]bool) []domain.Post {
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if hidden[p.ID] {
			continue
		}
		out = append(out, p)
	}
	return out
}
