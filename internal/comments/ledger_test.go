package comments

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/remote"
	"github.com/critiqapp/critiq-sync/internal/remote/remotetest"
)

func comment(id, postID string) domain.CommentRecord {
	return domain.CommentRecord{ID: id, PostID: postID, AuthorID: "u1", Content: "text " + id}
}

func ids(items []domain.CommentRecord) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

// pagedFake serves pages keyed by cursor.
func pagedFake(pages map[string]*domain.CommentPage) *remotetest.Fake {
	gw := remotetest.New()
	gw.Page = func(c remotetest.Call) (*domain.CommentPage, error) {
		if p, ok := pages[c.Cursor]; ok {
			return p, nil
		}
		return nil, errors.NotFoundf("no page at %q", c.Cursor)
	}
	return gw
}

func TestLedger_LoadPagePaginates(t *testing.T) {
	gw := pagedFake(map[string]*domain.CommentPage{
		"":   {Items: []domain.CommentRecord{comment("c1", "p1"), comment("c2", "p1")}, NextCursor: "n1", HasMore: true},
		"n1": {Items: []domain.CommentRecord{comment("c2", "p1"), comment("c3", "p1")}},
	})
	l := New(gw, nil, nil, Options{PageSize: 2})
	ctx := context.Background()

	page, err := l.LoadPage(ctx, "p1", "")
	require.NoError(t, err)
	assert.True(t, page.HasMore)

	cursor, more := l.NextCursor("p1")
	assert.Equal(t, "n1", cursor)
	assert.True(t, more)

	_, err = l.LoadPage(ctx, "p1", cursor)
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2", "c3"}, ids(l.Comments("p1")))
	_, more = l.NextCursor("p1")
	assert.False(t, more)

	calls := gw.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 2, calls[0].Limit)
	assert.Equal(t, "n1", calls[1].Cursor)
}

func TestLedger_FirstPageResetsList(t *testing.T) {
	first := []domain.CommentRecord{comment("c1", "p1")}
	gw := remotetest.New()
	gw.Page = func(remotetest.Call) (*domain.CommentPage, error) {
		return &domain.CommentPage{Items: first}, nil
	}
	l := New(gw, nil, nil, Options{})
	ctx := context.Background()

	_, err := l.LoadPage(ctx, "p1", "")
	require.NoError(t, err)

	first = []domain.CommentRecord{comment("c9", "p1")}
	_, err = l.LoadPage(ctx, "p1", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"c9"}, ids(l.Comments("p1")))
}

func TestLedger_TotalAdoptsCount(t *testing.T) {
	gw := pagedFake(map[string]*domain.CommentPage{
		"": {Items: []domain.CommentRecord{comment("c1", "p1")}, Total: remotetest.Count(41)},
	})
	l := New(gw, nil, nil, Options{})
	l.SeedCount("p1", 3)

	_, err := l.LoadPage(context.Background(), "p1", "")
	require.NoError(t, err)

	n, ok := l.Count("p1")
	assert.True(t, ok)
	assert.Equal(t, int64(41), n)
}

func TestLedger_FetchFailureKeepsCount(t *testing.T) {
	gw := remotetest.New()
	gw.Page = func(remotetest.Call) (*domain.CommentPage, error) {
		return nil, errors.Network(assert.AnError)
	}
	l := New(gw, nil, nil, Options{})
	l.SeedCount("p1", 12)

	_, err := l.LoadPage(context.Background(), "p1", "")
	assert.ErrorIs(t, err, errors.ErrNetwork)

	n, _ := l.Count("p1")
	assert.Equal(t, int64(12), n)
}

func TestLedger_LoadPageRejectsBadID(t *testing.T) {
	gw := remotetest.New()
	l := New(gw, nil, nil, Options{})

	_, err := l.LoadPage(context.Background(), "../p1", "")
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Empty(t, gw.Calls())
}

func TestLedger_ConcurrentLoadsShareOneCall(t *testing.T) {
	gw := remotetest.New()
	gw.Hold()
	l := New(gw, nil, nil, Options{})

	var wg sync.WaitGroup
	results := make([]*domain.CommentPage, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := l.LoadPage(context.Background(), "p1", "")
			if err == nil {
				results[i] = p
			}
		}()
	}

	held := gw.Next(t)
	gw.NoCall(t, 50*time.Millisecond)
	held.SucceedPage(&domain.CommentPage{Items: []domain.CommentRecord{comment("c1", "p1")}})
	wg.Wait()

	for _, p := range results {
		require.NotNil(t, p)
		assert.Len(t, p.Items, 1)
	}
	assert.Equal(t, 1, gw.CallCount(remote.OpListComments))
}

func TestLedger_AbandonedWaitKeepsCancelAndDeadlineApart(t *testing.T) {
	gw := remotetest.New()
	gw.Hold()
	l := New(gw, nil, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := l.LoadPage(ctx, "p1", "")
		errs <- err
	}()

	held := gw.Next(t)
	cancel()
	err := <-errs
	assert.ErrorIs(t, err, errors.ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errors.ErrTimeout)

	// Joins the still-running flight and gives up at its deadline.
	deadline, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	_, err = l.LoadPage(deadline, "p1", "")
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	held.SucceedPage(&domain.CommentPage{Items: []domain.CommentRecord{comment("c1", "p1")}})
	assert.Equal(t, 1, gw.CallCount(remote.OpListComments))
}

func TestLedger_PageAfterInvalidateIsNotMerged(t *testing.T) {
	gw := remotetest.New()
	gw.Hold()
	l := New(gw, nil, nil, Options{})

	done := make(chan *domain.CommentPage, 1)
	go func() {
		p, _ := l.LoadPage(context.Background(), "p1", "")
		done <- p
	}()

	held := gw.Next(t)
	l.Invalidate("p1")
	held.SucceedPage(&domain.CommentPage{Items: []domain.CommentRecord{comment("stale", "p1")}})

	p := <-done
	require.NotNil(t, p)
	assert.Len(t, p.Items, 1)
	assert.Empty(t, l.Comments("p1"))
}

func TestLedger_CreateValidatesBeforeSending(t *testing.T) {
	gw := remotetest.New()
	l := New(gw, nil, nil, Options{MaxLength: 10})
	l.SeedCount("p1", 4)
	ctx := context.Background()

	tests := []struct {
		name    string
		postID  string
		content string
	}{
		{"empty", "p1", ""},
		{"whitespace only", "p1", " \n\t "},
		{"over length", "p1", strings.Repeat("é", 11)},
		{"bad post id", "p 1", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Create(ctx, tt.postID, tt.content, nil)
			assert.ErrorIs(t, err, errors.ErrValidation)
		})
	}

	n, _ := l.Count("p1")
	assert.Equal(t, int64(4), n)
	assert.Empty(t, gw.Calls())
}

func TestLedger_CreateCountsRunesNotBytes(t *testing.T) {
	gw := remotetest.New()
	l := New(gw, nil, nil, Options{MaxLength: 10})

	_, err := l.Create(context.Background(), "p1", strings.Repeat("é", 10), nil)
	assert.NoError(t, err)
}

func TestLedger_CreateNormalizesContent(t *testing.T) {
	gw := remotetest.New()
	l := New(gw, nil, nil, Options{})

	rec, err := l.Create(context.Background(), "p1", "  cafe\u0301 au lait \n", nil)
	require.NoError(t, err)

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "caf\u00e9 au lait", calls[0].Content)
	assert.Equal(t, "caf\u00e9 au lait", rec.Content)
}

func TestLedger_CreateFailureLeavesCount(t *testing.T) {
	gw := remotetest.New()
	gw.Comment = func(remotetest.Call) (*domain.CommentRecord, error) {
		return nil, errors.Remote("comments are closed")
	}
	l := New(gw, nil, nil, Options{})
	l.SeedCount("p1", 7)

	invalidated := 0
	l.OnInvalidate(func(string) { invalidated++ })

	_, err := l.Create(context.Background(), "p1", "valid text", nil)
	assert.ErrorIs(t, err, errors.ErrRemote)

	n, _ := l.Count("p1")
	assert.Equal(t, int64(7), n)
	assert.Zero(t, invalidated)
}

func TestLedger_CreateIncrementsAndInvalidates(t *testing.T) {
	gw := pagedFake(map[string]*domain.CommentPage{
		"": {Items: []domain.CommentRecord{comment("c1", "p1")}, NextCursor: "n1", HasMore: true},
	})
	l := New(gw, nil, nil, Options{})
	l.SeedCount("p1", 7)
	ctx := context.Background()

	_, err := l.LoadPage(ctx, "p1", "")
	require.NoError(t, err)

	var invalidated []string
	var created []domain.CommentRecord
	l.OnInvalidate(func(postID string) { invalidated = append(invalidated, postID) })
	unsubscribe := l.OnCreate(func(c domain.CommentRecord) { created = append(created, c) })

	parent := "c1"
	rec, err := l.Create(ctx, "p1", "valid text", &parent)
	require.NoError(t, err)
	assert.Equal(t, &parent, rec.ParentID)

	n, _ := l.Count("p1")
	assert.Equal(t, int64(8), n)
	assert.Equal(t, []string{"p1"}, invalidated)
	require.Len(t, created, 1)
	assert.Empty(t, l.Comments("p1"))
	cursor, more := l.NextCursor("p1")
	assert.Empty(t, cursor)
	assert.False(t, more)

	unsubscribe()
	_, err = l.Create(ctx, "p1", "again", nil)
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestLedger_CountUnknownUntilSeeded(t *testing.T) {
	l := New(remotetest.New(), nil, nil, Options{})

	_, ok := l.Count("p1")
	assert.False(t, ok)

	// A create on an unknown count leaves it unknown rather than guessing 1.
	_, err := l.Create(context.Background(), "p1", "first!", nil)
	require.NoError(t, err)
	_, ok = l.Count("p1")
	assert.False(t, ok)

	l.SeedCount("p1", -3)
	n, ok := l.Count("p1")
	assert.True(t, ok)
	assert.Zero(t, n)
}
