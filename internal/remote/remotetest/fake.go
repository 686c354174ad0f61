// Package remotetest provides a scriptable in-memory Gateway for tests.
package remotetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/remote"
)

// Call records one gateway invocation.
type Call struct {
	Op       string
	PostID   string
	State    bool // target state for set/add/remove operations
	Reason   domain.HiddenReason
	Details  string
	Content  string
	ParentID *string
	Cursor   string
	Limit    int
}

type reply struct {
	result  remote.Result
	comment *domain.CommentRecord
	page    *domain.CommentPage
	err     error
}

// Pending is a held call waiting for the test to answer it.
type Pending struct {
	Call
	reply chan reply
}

// Succeed answers the call with an optional count.
func (p *Pending) Succeed(count *int64) {
	p.reply <- reply{result: remote.Result{Count: count}}
}

// SucceedComment answers a held CreateComment.
func (p *Pending) SucceedComment(c *domain.CommentRecord) {
	p.reply <- reply{comment: c}
}

// SucceedPage answers a held ListComments.
func (p *Pending) SucceedPage(page *domain.CommentPage) {
	p.reply <- reply{page: page}
}

// Fail answers the call with err.
func (p *Pending) Fail(err error) {
	p.reply <- reply{err: err}
}

// Fake is a Gateway whose answers are scripted by the test.
// By default every toggle succeeds without a count. When held, each call
// blocks until the test answers it through Next.
type Fake struct {
	mu    sync.Mutex
	calls []Call
	held  bool

	// Respond answers non-held toggle calls. Nil means success.
	Respond func(Call) (remote.Result, error)
	// Comment answers CreateComment. Nil echoes the content back.
	Comment func(Call) (*domain.CommentRecord, error)
	// Page answers ListComments. Nil returns an empty last page.
	Page func(Call) (*domain.CommentPage, error)

	pending chan *Pending
}

var _ remote.Gateway = (*Fake)(nil)

// New creates a Fake that answers immediately.
func New() *Fake {
	return &Fake{pending: make(chan *Pending, 64)}
}

// Hold makes every subsequent call block until answered through Next.
func (f *Fake) Hold() {
	f.mu.Lock()
	f.held = true
	f.mu.Unlock()
}

// Next returns the next held call, failing the test if none arrives in time.
func (f *Fake) Next(t testing.TB) *Pending {
	t.Helper()
	select {
	case p := <-f.pending:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no gateway call arrived")
		return nil
	}
}

// NoCall asserts that no held call arrives within d.
func (f *Fake) NoCall(t testing.TB, d time.Duration) {
	t.Helper()
	select {
	case p := <-f.pending:
		t.Fatalf("unexpected gateway call %s %s", p.Op, p.PostID)
	case <-time.After(d):
	}
}

// Calls returns a copy of every call seen so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many calls were made for op.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *Fake) do(ctx context.Context, call Call) reply {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	held := f.held
	f.mu.Unlock()

	if held {
		p := &Pending{Call: call, reply: make(chan reply, 1)}
		f.pending <- p
		select {
		case r := <-p.reply:
			return r
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return reply{err: errors.Timeout(ctx.Err())}
			}
			return reply{err: errors.Network(ctx.Err())}
		}
	}

	switch call.Op {
	case remote.OpCreateComment:
		if f.Comment != nil {
			c, err := f.Comment(call)
			return reply{comment: c, err: err}
		}
		return reply{comment: &domain.CommentRecord{
			ID:        "c-" + call.PostID,
			PostID:    call.PostID,
			Content:   call.Content,
			ParentID:  call.ParentID,
			CreatedAt: time.Now().UTC(),
		}}
	case remote.OpListComments:
		if f.Page != nil {
			p, err := f.Page(call)
			return reply{page: p, err: err}
		}
		return reply{page: &domain.CommentPage{}}
	default:
		if f.Respond != nil {
			res, err := f.Respond(call)
			return reply{result: res, err: err}
		}
		return reply{}
	}
}

// SetLike implements remote.Gateway.
func (f *Fake) SetLike(ctx context.Context, postID string, liked bool) (remote.Result, error) {
	r := f.do(ctx, Call{Op: remote.OpSetLike, PostID: postID, State: liked})
	return r.result, r.err
}

// SetFavorite implements remote.Gateway.
func (f *Fake) SetFavorite(ctx context.Context, postID string, favorited bool) (remote.Result, error) {
	r := f.do(ctx, Call{Op: remote.OpSetFavorite, PostID: postID, State: favorited})
	return r.result, r.err
}

// AddBookmark implements remote.Gateway.
func (f *Fake) AddBookmark(ctx context.Context, postID string) (remote.Result, error) {
	r := f.do(ctx, Call{Op: remote.OpAddBookmark, PostID: postID, State: true})
	return r.result, r.err
}

// RemoveBookmark implements remote.Gateway.
func (f *Fake) RemoveBookmark(ctx context.Context, postID string) (remote.Result, error) {
	r := f.do(ctx, Call{Op: remote.OpRemoveBookmark, PostID: postID})
	return r.result, r.err
}

// HidePost implements remote.Gateway.
func (f *Fake) HidePost(ctx context.Context, postID string) (remote.Result, error) {
	r := f.do(ctx, Call{Op: remote.OpHidePost, PostID: postID, State: true, Reason: domain.HiddenReasonUserHidden})
	return r.result, r.err
}

// ReportPost implements remote.Gateway.
func (f *Fake) ReportPost(ctx context.Context, postID string, reason domain.HiddenReason, details string) (remote.Result, error) {
	r := f.do(ctx, Call{Op: remote.OpReportPost, PostID: postID, State: true, Reason: reason, Details: details})
	return r.result, r.err
}

// CreateComment implements remote.Gateway.
func (f *Fake) CreateComment(ctx context.Context, postID, content string, parentID *string) (*domain.CommentRecord, error) {
	r := f.do(ctx, Call{Op: remote.OpCreateComment, PostID: postID, Content: content, ParentID: parentID})
	if r.err != nil {
		return nil, r.err
	}
	return r.comment, nil
}

// ListComments implements remote.Gateway.
func (f *Fake) ListComments(ctx context.Context, postID, cursor string, limit int) (*domain.CommentPage, error) {
	r := f.do(ctx, Call{Op: remote.OpListComments, PostID: postID, Cursor: cursor, Limit: limit})
	if r.err != nil {
		return nil, r.err
	}
	return r.page, nil
}

// Count returns a pointer to n, for scripting results.
func Count(n int64) *int64 {
	return &n
}
