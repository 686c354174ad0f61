package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiqapp/critiq-sync/internal/cache"
	"github.com/critiqapp/critiq-sync/internal/comments"
	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/engine"
	"github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/feed"
	"github.com/critiqapp/critiq-sync/internal/remote"
	"github.com/critiqapp/critiq-sync/internal/remote/remotetest"
	"github.com/critiqapp/critiq-sync/internal/sse"
	"github.com/critiqapp/critiq-sync/internal/store"
)

type testServer struct {
	*Server
	api     humatest.TestAPI
	gateway *remotetest.Fake
	engine  *engine.Engine
	ledger  *comments.Ledger
}

func setupTestServer(t *testing.T, withStore bool) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := remotetest.New()

	var st *store.Store
	if withStore {
		tmpDir, err := os.MkdirTemp("", "critiq-api-test-*")
		require.NoError(t, err)
		backend, err := store.OpenBadger(filepath.Join(tmpDir, "badger"), nil)
		require.NoError(t, err)
		st = store.New(backend, nil)
		t.Cleanup(func() {
			_ = st.Close()
			_ = os.RemoveAll(tmpDir)
		})
	}

	c := cache.New()
	var persister engine.Persister
	if st != nil {
		persister = st
	}
	eng := engine.New(c, gw, persister, nil, logger, engine.Options{RemoteTimeout: time.Second})
	t.Cleanup(func() { _ = eng.Close(context.Background()) })

	ledger := comments.New(gw, nil, logger, comments.Options{MaxLength: 50})
	manager := sse.NewManager(logger)

	s := NewServer(&Services{
		Engine:     eng,
		Ledger:     ledger,
		Feed:       feed.NewFilter(c),
		Store:      st,
		SSEManager: manager,
		SSEHandler: sse.NewHandler(manager, logger),
	}, Options{}, logger)

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.API()),
		gateway: gw,
		engine:  eng,
		ledger:  ledger,
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func fullPost(id string) map[string]any {
	return map[string]any{
		"id":            id,
		"title":         "Review " + id,
		"cover_image":   "covers/" + id + ".jpg",
		"author":        map[string]any{"id": "u1", "display_name": "Mina"},
		"like_count":    3,
		"comment_count": 2,
		"liked":         false,
		"favorited":     false,
		"bookmarked":    false,
		"created_at":    "2026-05-01T10:00:00Z",
	}
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t, true)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Components["store"].Status)
	assert.Equal(t, "no connected clients", body.Components["sse"].Message)
}

func TestHealth_MemoryOnlyIsDegraded(t *testing.T) {
	ts := setupTestServer(t, false)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "degraded", decode[HealthResponse](t, resp.Body.Bytes()).Status)
}

func TestToggle_AcceptedWithOptimisticRecord(t *testing.T) {
	ts := setupTestServer(t, false)
	ts.gateway.Hold()

	resp := ts.api.Post("/api/v1/interactions/like/post-1/toggle")
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	body := decode[ToggleResponse](t, resp.Body.Bytes())
	assert.Equal(t, "pending", body.Status)
	assert.Equal(t, uint64(1), body.Seq)
	assert.True(t, body.Record.State)
	assert.True(t, body.Record.Pending)

	ts.gateway.Next(t).Succeed(remotetest.Count(1))
}

func TestSnapshot_ListsPendingIDs(t *testing.T) {
	ts := setupTestServer(t, false)
	ts.gateway.Hold()

	for _, id := range []string{"post-2", "post-1"} {
		resp := ts.api.Post("/api/v1/interactions/like/" + id + "/toggle")
		require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	}
	first, second := ts.gateway.Next(t), ts.gateway.Next(t)

	snap := ts.api.Get("/api/v1/interactions/like")
	require.Equal(t, http.StatusOK, snap.Code)
	body := decode[SnapshotResponse](t, snap.Body.Bytes())
	assert.Equal(t, []string{"post-1", "post-2"}, body.Pending)
	assert.Equal(t, map[string]bool{"post-1": true, "post-2": true}, body.States)

	first.Succeed(nil)
	second.Succeed(nil)
	assert.Eventually(t, func() bool {
		return len(ts.engine.Pending(domain.KindLike)) == 0
	}, time.Second, 5*time.Millisecond)

	snap = ts.api.Get("/api/v1/interactions/like")
	assert.Empty(t, decode[SnapshotResponse](t, snap.Body.Bytes()).Pending)
}

func TestToggle_WaitReturnsSettledRecord(t *testing.T) {
	ts := setupTestServer(t, false)

	resp := ts.api.Post("/api/v1/interactions/favorite/post-1/toggle?wait=true")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decode[ToggleResponse](t, resp.Body.Bytes())
	assert.Equal(t, "committed", body.Status)
	assert.True(t, body.Record.State)
	assert.False(t, body.Record.Pending)

	snap := ts.api.Get("/api/v1/interactions/favorite")
	require.Equal(t, http.StatusOK, snap.Code)
	assert.Equal(t, map[string]bool{"post-1": true}, decode[SnapshotResponse](t, snap.Body.Bytes()).States)
}

func TestToggle_RollbackMapsErrorCode(t *testing.T) {
	ts := setupTestServer(t, false)
	ts.gateway.Respond = func(remotetest.Call) (remote.Result, error) {
		return remote.Result{}, errors.Network(assert.AnError)
	}

	resp := ts.api.Post("/api/v1/interactions/like/post-1/toggle?wait=true")
	require.Equal(t, http.StatusBadGateway, resp.Code)

	apiErr := decode[APIError](t, resp.Body.Bytes())
	assert.Equal(t, "NETWORK", apiErr.Code)
	assert.True(t, apiErr.Retryable)

	rec := ts.api.Get("/api/v1/interactions/like/post-1")
	require.Equal(t, http.StatusOK, rec.Code)
	record := decode[domain.InteractionRecord](t, rec.Body.Bytes())
	assert.False(t, record.State)
	assert.False(t, record.Pending)
}

func TestToggle_Validation(t *testing.T) {
	ts := setupTestServer(t, false)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"unknown kind", "/api/v1/interactions/dislike/post-1/toggle", nil, http.StatusUnprocessableEntity},
		{"comment kind", "/api/v1/interactions/comment/post-1/toggle", nil, http.StatusUnprocessableEntity},
		{"malformed id", "/api/v1/interactions/like/post%201/toggle", nil, http.StatusBadRequest},
		{"bookmark without post", "/api/v1/interactions/bookmark/post-1/toggle", map[string]any{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args []any
			if tt.body != nil {
				args = append(args, tt.body)
			}
			resp := ts.api.Post(tt.path, args...)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())
			assert.Equal(t, "VALIDATION", decode[APIError](t, resp.Body.Bytes()).Code)
		})
	}

	assert.Empty(t, ts.gateway.Calls())
}

func TestBookmarkAndHiddenLists(t *testing.T) {
	ts := setupTestServer(t, true)

	resp := ts.api.Post("/api/v1/interactions/bookmark/post-1/toggle?wait=true", map[string]any{
		"post": fullPost("post-1"),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/interactions/hidden/post-2/toggle?wait=true", map[string]any{
		"reason":  "spam",
		"details": "link farm",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	bookmarks := ts.api.Get("/api/v1/bookmarks")
	require.Equal(t, http.StatusOK, bookmarks.Code)
	var bm struct {
		Bookmarks []domain.BookmarkEntry `json:"bookmarks"`
	}
	require.NoError(t, json.Unmarshal(bookmarks.Body.Bytes(), &bm))
	require.Len(t, bm.Bookmarks, 1)
	assert.Equal(t, "Mina", bm.Bookmarks[0].AuthorName)

	hidden := ts.api.Get("/api/v1/hidden")
	require.Equal(t, http.StatusOK, hidden.Code)
	var hd struct {
		Hidden []domain.HiddenPostEntry `json:"hidden"`
	}
	require.NoError(t, json.Unmarshal(hidden.Body.Bytes(), &hd))
	require.Len(t, hd.Hidden, 1)
	assert.Equal(t, domain.HiddenReasonSpam, hd.Hidden[0].Reason)

	assert.Equal(t, 1, ts.gateway.CallCount(remote.OpReportPost))
}

func TestFeed_SeedAndFilter(t *testing.T) {
	ts := setupTestServer(t, false)
	posts := []any{fullPost("post-1"), fullPost("post-2"), fullPost("post-3")}

	resp := ts.api.Post("/api/v1/feed/seed", map[string]any{"posts": posts})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	n, ok := ts.ledger.Count("post-2")
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(3), ts.engine.Get("post-1", domain.KindLike).Count())

	resp = ts.api.Post("/api/v1/interactions/hidden/post-2/toggle?wait=true")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/feed/visible", map[string]any{"posts": posts})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out struct {
		Posts []domain.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Posts, 2)
	assert.Equal(t, "post-1", out.Posts[0].ID)
	assert.Equal(t, "post-3", out.Posts[1].ID)
}

func TestFeed_SeedSkipsMalformedIDs(t *testing.T) {
	ts := setupTestServer(t, false)
	posts := []any{fullPost("bad id"), fullPost("post-1")}

	resp := ts.api.Post("/api/v1/feed/seed", map[string]any{"posts": posts})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	_, ok := ts.ledger.Count("bad id")
	assert.False(t, ok, "malformed ids are not seeded")
	assert.Empty(t, ts.ledger.Comments("bad id"))

	n, ok := ts.ledger.Count("post-1")
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func TestComments_CreateAndList(t *testing.T) {
	ts := setupTestServer(t, false)
	ts.ledger.SeedCount("post-1", 5)
	ts.gateway.Page = func(c remotetest.Call) (*domain.CommentPage, error) {
		return &domain.CommentPage{
			Items:   []domain.CommentRecord{{ID: "c1", PostID: c.PostID, Content: "first"}},
			HasMore: false,
		}, nil
	}

	resp := ts.api.Post("/api/v1/posts/post-1/comments", map[string]any{"content": "   "})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/posts/post-1/comments", map[string]any{"content": "Great take"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decode[CreateCommentResponse](t, resp.Body.Bytes())
	assert.Equal(t, "Great take", created.Comment.Content)
	require.NotNil(t, created.Count)
	assert.Equal(t, int64(6), *created.Count)

	resp = ts.api.Get("/api/v1/posts/post-1/comments")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode[CommentsResponse](t, resp.Body.Bytes())
	require.Len(t, page.Comments, 1)
	assert.False(t, page.HasMore)

	resp = ts.api.Post("/api/v1/posts/post-1/comments/invalidate")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, ts.ledger.Comments("post-1"))
}

func TestComments_GatewayFailureKeepsCount(t *testing.T) {
	ts := setupTestServer(t, false)
	ts.ledger.SeedCount("post-1", 5)
	ts.gateway.Comment = func(remotetest.Call) (*domain.CommentRecord, error) {
		return nil, errors.Unauthorized("no active session")
	}

	resp := ts.api.Post("/api/v1/posts/post-1/comments", map[string]any{"content": "hello"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	n, _ := ts.ledger.Count("post-1")
	assert.Equal(t, int64(5), n)
}

func TestEvents_RouteIsMounted(t *testing.T) {
	ts := setupTestServer(t, false)

	resp := ts.api.Get("/api/v1/events?entity=bad%20id")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
