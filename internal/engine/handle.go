package engine

import (
	"context"
	"sync"

	"github.com/critiqapp/critiq-sync/internal/domain"
)

// Status is the terminal state of one toggle intent.
type Status string

const (
	// StatusCommitted means the backend confirmed the intent.
	StatusCommitted Status = "committed"
	// StatusRolledBack means the backend refused or never answered; the confirmed state was restored.
	StatusRolledBack Status = "rolled_back"
	// StatusSuperseded means a newer intent on the same key took over before this one resolved.
	StatusSuperseded Status = "superseded"
)

// Outcome is delivered exactly once per intent.
type Outcome struct {
	Key    domain.Key               `json:"key"`
	Seq    uint64                   `json:"seq"`
	Status Status                   `json:"status"`
	Record domain.InteractionRecord `json:"record"`
	Err    error                    `json:"-"`
}

// Handle tracks one accepted toggle intent.
type Handle struct {
	key        domain.Key
	seq        uint64
	optimistic domain.InteractionRecord

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newHandle(key domain.Key, seq uint64, optimistic domain.InteractionRecord) *Handle {
	return &Handle{
		key:        key,
		seq:        seq,
		optimistic: optimistic,
		done:       make(chan struct{}),
	}
}

// Key returns the interaction key.
func (h *Handle) Key() domain.Key { return h.key }

// Seq returns the per-key intent sequence number.
func (h *Handle) Seq() uint64 { return h.seq }

// Optimistic returns the record written to the cache when the intent was accepted.
func (h *Handle) Optimistic() domain.InteractionRecord { return h.optimistic.Clone() }

// Done is closed once the intent reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the intent resolves or ctx is done.
// A rolled back intent returns its error alongside the outcome.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
		return h.outcome, h.outcome.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// resolve records the outcome. Only the first call has an effect.
func (h *Handle) resolve(o Outcome) bool {
	resolved := false
	h.once.Do(func() {
		h.outcome = o
		close(h.done)
		resolved = true
	})
	return resolved
}
