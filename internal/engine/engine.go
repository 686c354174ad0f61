// Package engine reconciles optimistic interaction toggles with the backend.
//
// A toggle writes its optimistic value into the cache before any network call,
// then a per-key worker confirms it with the gateway. Each key moves through
// Idle -> Pending -> {Committed | RolledBack} -> Idle. A newer toggle on the
// same key supersedes the pending one; results of superseded calls only update
// the engine's view of the confirmed server state.
package engine

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/critiqapp/critiq-sync/internal/cache"
	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/remote"
	"github.com/critiqapp/critiq-sync/internal/validation"
)

// DefaultRemoteTimeout bounds how long an intent may stay pending.
const DefaultRemoteTimeout = 20 * time.Second

// Persister writes committed bookmark and hidden state to local storage.
type Persister interface {
	SaveBookmark(ctx context.Context, entry domain.BookmarkEntry) error
	RemoveBookmark(ctx context.Context, postID string) error
	SaveHidden(ctx context.Context, entry domain.HiddenPostEntry) error
	LoadBookmarks(ctx context.Context) ([]domain.BookmarkEntry, error)
	LoadHidden(ctx context.Context) ([]domain.HiddenPostEntry, error)
}

// Options configures an Engine.
type Options struct {
	// RemoteTimeout bounds each gateway call; expiry rolls the intent back with TIMEOUT.
	RemoteTimeout time.Duration
	// OnOutcome is called once per intent after it resolves. It runs on an engine goroutine.
	OnOutcome func(Outcome)
	// Now overrides the clock.
	Now func() time.Time
}

// Intent describes one user action on an entity.
type Intent struct {
	EntityID string
	Kind     domain.Kind
	// Post is the snapshot stored when a bookmark is added.
	Post *domain.Post
	// Reason and Details apply to hidden; an empty reason is a plain hide.
	Reason  domain.HiddenReason
	Details string
	// Want, when set, rejects the toggle unless it moves the state to *Want.
	Want *bool
}

// keyState is the engine's bookkeeping for one key.
type keyState struct {
	seq          uint64
	pending      *Handle // newest unresolved intent
	intent       Intent
	desired      bool
	desiredCount *int64
	bookmark     domain.BookmarkEntry
	hidden       domain.HiddenPostEntry

	// confirmed is the last state the backend acknowledged.
	confirmed domain.InteractionRecord
	inFlight  bool // a worker goroutine owns the key
}

func (ks *keyState) busy() bool {
	return ks.inFlight || ks.pending != nil
}

// Engine owns the interaction cache and is its only writer.
type Engine struct {
	cache     *cache.Cache
	gateway   remote.Gateway
	persister Persister
	validator *validation.Validator
	logger    *slog.Logger
	opts      Options

	mu        sync.Mutex
	keys      map[domain.Key]*keyState
	bookmarks map[string]domain.BookmarkEntry
	hidden    map[string]domain.HiddenPostEntry
	closed    bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an engine. A nil persister keeps state in memory only.
func New(c *cache.Cache, gateway remote.Gateway, persister Persister, v *validation.Validator, logger *slog.Logger, opts Options) *Engine {
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = DefaultRemoteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if persister == nil {
		persister = memoryOnly{}
	}
	if v == nil {
		v = validation.New()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cache:     c,
		gateway:   gateway,
		persister: persister,
		validator: v,
		logger:    logger,
		opts:      opts,
		keys:      make(map[domain.Key]*keyState),
		bookmarks: make(map[string]domain.BookmarkEntry),
		hidden:    make(map[string]domain.HiddenPostEntry),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Cache returns the cache the engine writes to.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Toggle applies an intent optimistically and schedules its reconciliation.
// Validation failures return a VALIDATION error and change nothing.
func (e *Engine) Toggle(ctx context.Context, in Intent) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.validator.Var(in.EntityID, "required,entityid", "entity_id"); err != nil {
		return nil, err
	}
	if err := checkKind(in.Kind); err != nil {
		return nil, err
	}

	key := domain.Key{EntityID: in.EntityID, Kind: in.Kind}
	now := e.opts.Now().UTC()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errors.Internal("engine is closed")
	}

	ks := e.keys[key]
	if ks == nil {
		ks = &keyState{}
		e.keys[key] = ks
	}

	current := e.cache.Get(key.EntityID, key.Kind)
	if !ks.busy() {
		ks.confirmed = current.Clone()
		ks.confirmed.Pending = false
	}

	next := !current.State
	if err := checkIntent(in, current.State, next); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	patch := domain.RecordPatch{State: &next, Pending: ptr(true)}
	// An unknown count stays unknown until the backend reports one.
	if key.Kind.Counted() && current.ServerCount != nil {
		count := *current.ServerCount
		if next {
			count++
		} else if count > 0 {
			count--
		}
		patch.ServerCount = &count
	}

	ks.seq++
	superseded := ks.pending
	ks.intent = in
	ks.desired = next
	ks.desiredCount = patch.ServerCount
	switch key.Kind {
	case domain.KindBookmark:
		if next {
			ks.bookmark = in.Post.BookmarkSnapshot(now)
		}
	case domain.KindHidden:
		reason := in.Reason
		if reason == "" {
			reason = domain.HiddenReasonUserHidden
		}
		ks.hidden = domain.HiddenPostEntry{PostID: in.EntityID, Reason: reason, Details: in.Details, HiddenAt: now}
	case domain.KindLike, domain.KindFavorite, domain.KindComment:
	}

	optimistic := e.cache.Set(key.EntityID, key.Kind, patch)
	h := newHandle(key, ks.seq, optimistic)
	ks.pending = h

	var supersededOutcome Outcome
	if superseded != nil {
		supersededOutcome = Outcome{Key: key, Seq: superseded.seq, Status: StatusSuperseded, Record: optimistic}
		superseded.resolve(supersededOutcome)
	}

	if !ks.inFlight {
		ks.inFlight = true
		e.wg.Add(1)
		go e.reconcile(key, ks)
	}
	e.mu.Unlock()

	if superseded != nil {
		e.logger.Debug("intent superseded", "key", key.String(), "seq", superseded.seq, "by", h.seq)
		e.emit(supersededOutcome)
	}
	return h, nil
}

// reconcile is the key's worker. It issues at most one gateway call at a time
// and exits once no intent is pending.
func (e *Engine) reconcile(key domain.Key, ks *keyState) {
	defer e.wg.Done()

	for {
		e.mu.Lock()
		h := ks.pending
		if h == nil {
			ks.inFlight = false
			e.mu.Unlock()
			return
		}

		if e.closed {
			outcome := e.rollbackLocked(key, ks, h, errors.Internal("engine is closed"))
			e.mu.Unlock()
			e.finish(h, outcome)
			continue
		}

		// Nothing to send: the backend already holds the desired state.
		if ks.desired == ks.confirmed.State {
			rec := ks.confirmed.Clone()
			rec.Pending = false
			e.cache.Replace(rec)
			ks.pending = nil
			refresh, stale := e.staleBookmarkLocked(key, ks)
			if stale {
				e.applyEntriesLocked(key, refresh)
			}
			outcome := Outcome{Key: key, Seq: h.seq, Status: StatusCommitted, Record: rec}
			e.mu.Unlock()
			e.logger.Debug("intent matches confirmed state, no call issued", "key", key.String(), "seq", h.seq)
			if stale {
				e.persist(key, refresh)
			}
			e.finish(h, outcome)
			continue
		}

		seq := ks.seq
		call := callState{
			intent:   ks.intent,
			target:   ks.desired,
			count:    ks.desiredCount,
			bookmark: ks.bookmark,
			hidden:   ks.hidden,
		}
		e.mu.Unlock()

		res, err := e.callGateway(key, call)
		now := e.opts.Now().UTC()

		e.mu.Lock()
		if err == nil {
			ks.confirmed.State = call.target
			switch {
			case res.Count != nil:
				ks.confirmed.ServerCount = ptr(*res.Count)
			case key.Kind.Counted() && call.count != nil:
				ks.confirmed.ServerCount = ptr(*call.count)
			}
			ks.confirmed.LastSyncedAt = &now
			e.applyEntriesLocked(key, call)
		}

		var (
			outcome Outcome
			final   bool
		)
		switch {
		case seq != ks.seq:
			// A newer intent owns the key; its handle is already resolved as superseded.
			e.logger.Debug("discarding superseded result", "key", key.String(), "seq", seq, "latest", ks.seq, "ok", err == nil)
		case err == nil:
			rec := ks.confirmed.Clone()
			rec.Pending = false
			e.cache.Replace(rec)
			ks.pending = nil
			outcome = Outcome{Key: key, Seq: seq, Status: StatusCommitted, Record: rec}
			final = true
			e.logger.Debug("intent committed", "key", key.String(), "seq", seq, "state", rec.State)
		default:
			outcome = e.rollbackLocked(key, ks, h, err)
			final = true
		}
		e.mu.Unlock()

		if err == nil {
			e.persist(key, call)
		}
		if final {
			e.finish(h, outcome)
		}
	}
}

// staleBookmarkLocked reports whether a bookmark key settling without a call
// holds an older snapshot than its newest intent. Callers hold e.mu.
func (e *Engine) staleBookmarkLocked(key domain.Key, ks *keyState) (callState, bool) {
	if key.Kind != domain.KindBookmark || !ks.desired {
		return callState{}, false
	}
	if held, ok := e.bookmarks[key.EntityID]; ok && held.Equal(ks.bookmark) {
		return callState{}, false
	}
	return callState{intent: ks.intent, target: true, bookmark: ks.bookmark}, true
}

// rollbackLocked restores the last confirmed record. Callers hold e.mu.
func (e *Engine) rollbackLocked(key domain.Key, ks *keyState, h *Handle, err error) Outcome {
	rec := ks.confirmed.Clone()
	rec.Pending = false
	e.cache.Replace(rec)
	ks.pending = nil

	e.logger.Info("intent rolled back",
		"key", key.String(),
		"seq", h.seq,
		"code", errors.CodeOf(err),
		"error", err,
	)
	return Outcome{Key: key, Seq: h.seq, Status: StatusRolledBack, Record: rec, Err: err}
}

// finish resolves the handle and notifies the outcome hook once.
func (e *Engine) finish(h *Handle, o Outcome) {
	if h.resolve(o) {
		e.emit(o)
	}
}

func (e *Engine) emit(o Outcome) {
	if e.opts.OnOutcome != nil {
		e.opts.OnOutcome(o)
	}
}

// Get returns the current record for a key.
func (e *Engine) Get(entityID string, kind domain.Kind) domain.InteractionRecord {
	return e.cache.Get(entityID, kind)
}

// Snapshot maps entity id to state for one kind.
func (e *Engine) Snapshot(kind domain.Kind) map[string]bool {
	return e.cache.Snapshot(kind)
}

// Pending lists, sorted, the entity ids of kind still awaiting the backend.
func (e *Engine) Pending(kind domain.Kind) []string {
	var out []string
	for _, rec := range e.cache.Records(kind) {
		if rec.Pending {
			out = append(out, rec.EntityID)
		}
	}
	slices.Sort(out)
	return out
}

// Close stops accepting toggles, cancels in-flight calls and waits for the workers.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func checkKind(kind domain.Kind) error {
	switch kind {
	case domain.KindLike, domain.KindFavorite, domain.KindBookmark, domain.KindHidden:
		return nil
	case domain.KindComment:
		return errors.Validation("comments are created, not toggled")
	default:
		return errors.Validationf("unknown interaction kind %q", kind)
	}
}

// checkIntent validates kind-specific requirements against the current state.
func checkIntent(in Intent, current, next bool) error {
	if in.Want != nil && *in.Want != next {
		if current {
			return errors.Validationf("%s is already set on %s", in.Kind, in.EntityID)
		}
		return errors.Validationf("%s is not set on %s", in.Kind, in.EntityID)
	}

	switch in.Kind {
	case domain.KindBookmark:
		if next && (in.Post == nil || in.Post.ID != in.EntityID) {
			return errors.Validation("adding a bookmark requires the post snapshot")
		}
	case domain.KindHidden:
		if current {
			return errors.Validationf("post %s is already hidden", in.EntityID)
		}
		if in.Reason != "" && !in.Reason.Valid() {
			return errors.Validationf("invalid hide reason %q", in.Reason)
		}
	case domain.KindLike, domain.KindFavorite:
	case domain.KindComment:
		return errors.Validation("comments are created, not toggled")
	default:
		return errors.Internalf("unhandled interaction kind %q", in.Kind)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// memoryOnly is the Persister used when none is configured.
type memoryOnly struct{}

func (memoryOnly) SaveBookmark(context.Context, domain.BookmarkEntry) error {
	return nil
}

func (memoryOnly) RemoveBookmark(context.Context, string) error {
	return nil
}

func (memoryOnly) SaveHidden(context.Context, domain.HiddenPostEntry) error {
	return nil
}

func (memoryOnly) LoadBookmarks(context.Context) ([]domain.BookmarkEntry, error) {
	return nil, nil
}

func (memoryOnly) LoadHidden(context.Context) ([]domain.HiddenPostEntry, error) {
	return nil, nil
}
