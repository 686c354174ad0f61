package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/critiqapp/critiq-sync/internal/domain"
	domainerrors "github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/id"
	"github.com/critiqapp/critiq-sync/internal/ratelimit"
)

const (
	defaultRPS     = 5.0
	defaultBurst   = 10
	defaultTimeout = 15 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// envelope is the backend's response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Count   *int64          `json:"count,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client is a rate-limited HTTP Gateway.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	session SessionSource
	logger  *slog.Logger
}

var _ Gateway = (*Client)(nil)

// New creates a backend client.
func New(opts Options, session SessionSource, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: ratelimit.New(opts.RPS, opts.Burst),
		session: session,
		logger:  logger,
	}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// SetLike sets the viewer's like on a post.
func (c *Client) SetLike(ctx context.Context, postID string, liked bool) (Result, error) {
	return c.setFlag(ctx, OpSetLike, postID, "like", liked)
}

// SetFavorite sets the viewer's favorite on a post.
func (c *Client) SetFavorite(ctx context.Context, postID string, favorited bool) (Result, error) {
	return c.setFlag(ctx, OpSetFavorite, postID, "favorite", favorited)
}

// AddBookmark bookmarks a post.
func (c *Client) AddBookmark(ctx context.Context, postID string) (Result, error) {
	return c.setFlag(ctx, OpAddBookmark, postID, "bookmark", true)
}

// RemoveBookmark removes a bookmark.
func (c *Client) RemoveBookmark(ctx context.Context, postID string) (Result, error) {
	return c.setFlag(ctx, OpRemoveBookmark, postID, "bookmark", false)
}

// HidePost hides a post from the viewer's feed.
func (c *Client) HidePost(ctx context.Context, postID string) (Result, error) {
	env, err := c.doRequest(ctx, request{op: OpHidePost, method: http.MethodPost, path: postPath(postID, "hide")})
	if err != nil {
		return Result{}, wrapError(OpHidePost, postID, err)
	}
	return Result{Count: env.Count}, nil
}

// ReportPost reports a post for moderation, which also hides it.
func (c *Client) ReportPost(ctx context.Context, postID string, reason domain.HiddenReason, details string) (Result, error) {
	body := map[string]string{"reason": string(reason)}
	if details != "" {
		body["details"] = details
	}
	env, err := c.doRequest(ctx, request{op: OpReportPost, method: http.MethodPost, path: postPath(postID, "report"), body: body})
	if err != nil {
		return Result{}, wrapError(OpReportPost, postID, err)
	}
	return Result{Count: env.Count}, nil
}

// CreateComment posts a comment. Each call carries a fresh idempotency key.
func (c *Client) CreateComment(ctx context.Context, postID, content string, parentID *string) (*domain.CommentRecord, error) {
	body := struct {
		Content  string  `json:"content"`
		ParentID *string `json:"parent_id,omitempty"`
	}{content, parentID}

	env, err := c.doRequest(ctx, request{
		op:             OpCreateComment,
		method:         http.MethodPost,
		path:           postPath(postID, "comments"),
		body:           body,
		idempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, wrapError(OpCreateComment, postID, err)
	}

	var comment domain.CommentRecord
	if err := decodeData(env, &comment); err != nil {
		return nil, wrapError(OpCreateComment, postID, err)
	}
	if comment.PostID == "" {
		comment.PostID = postID
	}
	return &comment, nil
}

// ListComments fetches one page of a post's comments.
func (c *Client) ListComments(ctx context.Context, postID, cursor string, limit int) (*domain.CommentPage, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	env, err := c.doRequest(ctx, request{op: OpListComments, method: http.MethodGet, path: postPath(postID, "comments"), query: query})
	if err != nil {
		return nil, wrapError(OpListComments, postID, err)
	}

	var page domain.CommentPage
	if err := decodeData(env, &page); err != nil {
		return nil, wrapError(OpListComments, postID, err)
	}
	if page.Total == nil && env.Count != nil {
		page.Total = env.Count
	}
	return &page, nil
}

func (c *Client) setFlag(ctx context.Context, op, postID, flag string, on bool) (Result, error) {
	method := http.MethodPut
	if !on {
		method = http.MethodDelete
	}
	env, err := c.doRequest(ctx, request{op: op, method: method, path: postPath(postID, flag)})
	if err != nil {
		return Result{}, wrapError(op, postID, err)
	}
	return Result{Count: env.Count}, nil
}

type request struct {
	op             string
	method         string
	path           string
	query          url.Values
	body           any
	idempotencyKey string
}

// doRequest executes one rate-limited round trip and classifies the outcome.
func (c *Client) doRequest(ctx context.Context, r request) (*envelope, error) {
	token := c.session.Token()
	if token == "" {
		return nil, errNoSession
	}

	if err := c.limiter.Wait(ctx, r.op); err != nil {
		return nil, classifyTransport(ctx, err)
	}

	u := *c.baseURL
	u.Path += r.path
	u.RawQuery = r.query.Encode()

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create request")
	}

	requestID := id.Request()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "critiq-sync/1.0")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.idempotencyKey)
	}

	c.logger.Debug("backend request",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"request_id", requestID,
		"session", Fingerprint(token),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domainerrors.Unauthorized("session rejected by backend")
	case resp.StatusCode == http.StatusNotFound:
		return nil, domainerrors.NotFoundf("backend has no such resource (%s)", r.path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, domainerrors.Remotef("backend answered %d%s", resp.StatusCode, reason(env.Error))
	case decodeErr != nil:
		return nil, domainerrors.Wrap(decodeErr, domainerrors.CodeRemote, "malformed backend response")
	case !env.Success:
		return nil, domainerrors.Remotef("backend refused the request%s", reason(env.Error))
	}

	return &env, nil
}

// classifyTransport maps a transport failure to TIMEOUT or NETWORK.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domainerrors.Timeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domainerrors.Timeout(err)
	}
	return domainerrors.Network(err)
}

func decodeData(env *envelope, dest any) error {
	if len(env.Data) == 0 {
		return domainerrors.Remote("backend response has no data")
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeRemote, "malformed backend data")
	}
	return nil
}

// postPath builds a post route. Entity ids are validated before they get here.
func postPath(postID, suffix string) string {
	return "/v1/posts/" + postID + "/" + suffix
}

func reason(msg string) string {
	if msg == "" {
		return ""
	}
	return ": " + msg
}
