// Package comments keeps the per-post comment lists and counts.
//
// Comment counts only move forward: a create that fails validation or fails at
// the backend never changes the count, and a failed page fetch leaves the count
// as it was. A successful create bumps the count by one and invalidates the
// post so views refetch from the first page.
package comments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/remote"
	"github.com/critiqapp/critiq-sync/internal/validation"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultPageSize  = 20
	DefaultMaxLength = 2000
)

// Options configures a Ledger.
type Options struct {
	PageSize  int
	MaxLength int // in runes
}

// thread is the loaded state of one post.
type thread struct {
	items      []domain.CommentRecord
	seen       map[string]struct{}
	cursor     string
	hasMore    bool
	count      *int64
	generation uint64
}

// Ledger owns comment lists and counts. It reads through the gateway and never
// touches the interaction cache.
type Ledger struct {
	gateway   remote.Gateway
	validator *validation.Validator
	logger    *slog.Logger
	opts      Options
	flights   singleflight.Group

	mu          sync.Mutex
	threads     map[string]*thread
	nextSub     int
	invalidated map[int]func(postID string)
	created     map[int]func(domain.CommentRecord)
}

// New creates a ledger.
func New(gateway remote.Gateway, v *validation.Validator, logger *slog.Logger, opts Options) *Ledger {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	if v == nil {
		v = validation.New()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ledger{
		gateway:     gateway,
		validator:   v,
		logger:      logger,
		opts:        opts,
		threads:     make(map[string]*thread),
		invalidated: make(map[int]func(string)),
		created:     make(map[int]func(domain.CommentRecord)),
	}
}

func (l *Ledger) threadLocked(postID string) *thread {
	t := l.threads[postID]
	if t == nil {
		t = &thread{seen: make(map[string]struct{})}
		l.threads[postID] = t
	}
	return t
}

func flightKey(postID, cursor string) string {
	return postID + "|" + cursor
}

// LoadPage fetches one page starting at cursor. An empty cursor loads the first
// page and replaces the local list; later pages append, skipping ids already held.
// Identical concurrent loads share one backend call.
func (l *Ledger) LoadPage(ctx context.Context, postID, cursor string) (*domain.CommentPage, error) {
	if err := l.validator.Var(postID, "required,entityid", "post_id"); err != nil {
		return nil, err
	}

	l.mu.Lock()
	gen := l.threadLocked(postID).generation
	l.mu.Unlock()

	ch := l.flights.DoChan(flightKey(postID, cursor), func() (any, error) {
		// Shared by every caller, so no single caller's cancellation aborts it.
		return l.gateway.ListComments(context.WithoutCancel(ctx), postID, cursor, l.opts.PageSize)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Timeout(ctx.Err())
		}
		return nil, errors.Network(ctx.Err())
	}
	if res.Err != nil {
		l.logger.Debug("comment page fetch failed", "post_id", postID, "cursor", cursor, "error", res.Err)
		return nil, res.Err
	}

	page, _ := res.Val.(*domain.CommentPage)
	if page == nil {
		page = &domain.CommentPage{}
	}

	l.mu.Lock()
	t := l.threadLocked(postID)
	if t.generation != gen {
		l.mu.Unlock()
		l.logger.Debug("dropping comment page fetched before invalidation", "post_id", postID, "cursor", cursor)
		return page, nil
	}

	if cursor == "" {
		t.items = nil
		t.seen = make(map[string]struct{}, len(page.Items))
	}
	for _, c := range page.Items {
		if _, dup := t.seen[c.ID]; dup {
			continue
		}
		t.seen[c.ID] = struct{}{}
		t.items = append(t.items, c)
	}
	t.cursor = page.NextCursor
	t.hasMore = page.HasMore
	if page.Total != nil {
		n := *page.Total
		t.count = &n
	}
	l.mu.Unlock()

	return page, nil
}

// Create posts a comment. Content is NFC-normalised and trimmed, then checked
// before anything is sent.
func (l *Ledger) Create(ctx context.Context, postID, content string, parentID *string) (*domain.CommentRecord, error) {
	if err := l.validator.Var(postID, "required,entityid", "post_id"); err != nil {
		return nil, err
	}
	if parentID != nil {
		if err := l.validator.Var(*parentID, "required,entityid", "parent_id"); err != nil {
			return nil, err
		}
	}

	content = Normalize(content)
	if err := l.validator.Var(content, fmt.Sprintf("required,max=%d", l.opts.MaxLength), "content"); err != nil {
		return nil, err
	}

	rec, err := l.gateway.CreateComment(ctx, postID, content, parentID)
	if err != nil {
		l.logger.Info("comment create failed", "post_id", postID, "code", errors.CodeOf(err), "error", err)
		return nil, err
	}
	if rec == nil {
		return nil, errors.Remote("backend returned no comment")
	}

	l.mu.Lock()
	t := l.threadLocked(postID)
	if t.count != nil {
		n := *t.count + 1
		t.count = &n
	}
	created := l.createdListenersLocked()
	l.mu.Unlock()

	l.logger.Debug("comment created", "post_id", postID, "comment_id", rec.ID)
	l.Invalidate(postID)
	for _, fn := range created {
		fn(*rec)
	}
	return rec, nil
}

// Invalidate drops the loaded list and cursor for postID so the next load
// starts at page 1. The count is kept.
func (l *Ledger) Invalidate(postID string) {
	l.mu.Lock()
	t := l.threadLocked(postID)
	t.generation++
	t.items = nil
	t.seen = make(map[string]struct{})
	t.cursor = ""
	t.hasMore = false
	listeners := make([]func(string), 0, len(l.invalidated))
	for i := 0; i < l.nextSub; i++ {
		if fn, ok := l.invalidated[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	l.mu.Unlock()

	l.flights.Forget(flightKey(postID, ""))
	for _, fn := range listeners {
		fn(postID)
	}
}

// OnInvalidate registers fn to run after every invalidation. The returned func unregisters it.
func (l *Ledger) OnInvalidate(fn func(postID string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.invalidated[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.invalidated, id)
		l.mu.Unlock()
	}
}

// OnCreate registers fn to run after every successful create.
func (l *Ledger) OnCreate(fn func(domain.CommentRecord)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.created[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.created, id)
		l.mu.Unlock()
	}
}

func (l *Ledger) createdListenersLocked() []func(domain.CommentRecord) {
	out := make([]func(domain.CommentRecord), 0, len(l.created))
	for i := 0; i < l.nextSub; i++ {
		if fn, ok := l.created[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// Count returns the known comment count of a post.
func (l *Ledger) Count(postID string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.threads[postID]
	if t == nil || t.count == nil {
		return 0, false
	}
	return *t.count, true
}

// SeedCount sets the count from a feed fetch.
func (l *Ledger) SeedCount(postID string, n int64) {
	n = max(n, 0)
	l.mu.Lock()
	l.threadLocked(postID).count = &n
	l.mu.Unlock()
}

// Comments returns a copy of the loaded list, in load order.
func (l *Ledger) Comments(postID string) []domain.CommentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.threads[postID]
	if t == nil {
		return nil
	}
	out := make([]domain.CommentRecord, len(t.items))
	copy(out, t.items)
	return out
}

// NextCursor returns the cursor of the next page and whether one exists.
func (l *Ledger) NextCursor(postID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.threads[postID]
	if t == nil {
		return "", false
	}
	return t.cursor, t.hasMore
}

// Normalize returns content in NFC with surrounding whitespace removed.
func Normalize(content string) string {
	return strings.TrimSpace(norm.NFC.String(content))
}
