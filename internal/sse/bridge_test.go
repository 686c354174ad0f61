package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiqapp/critiq-sync/internal/cache"
	"github.com/critiqapp/critiq-sync/internal/comments"
	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/engine"
	"github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/remote"
	"github.com/critiqapp/critiq-sync/internal/remote/remotetest"
)

func TestBridgeCache(t *testing.T) {
	m := startManager(t)
	c := cache.New()
	detach := BridgeCache(m, c)

	client, err := m.Connect([]string{"p1"})
	require.NoError(t, err)

	c.Replace(domain.InteractionRecord{EntityID: "p1", Kind: domain.KindFavorite, State: true})

	ev := receive(t, client)
	assert.Equal(t, EventInteractionChanged, ev.Type)
	data, ok := ev.Data.(InteractionChangedEventData)
	require.True(t, ok)
	assert.False(t, data.Previous.State)
	assert.True(t, data.Current.State)

	detach()
	c.Replace(domain.InteractionRecord{EntityID: "p1", Kind: domain.KindFavorite})
	select {
	case <-client.EventChan:
		t.Fatal("event after detach")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOutcomeHook_EmitsRollbacks(t *testing.T) {
	m := startManager(t)
	client, err := m.Connect(nil)
	require.NoError(t, err)

	gw := remotetest.New()
	gw.Respond = func(remotetest.Call) (remote.Result, error) {
		return remote.Result{}, errors.Remote("rejected")
	}
	e := engine.New(cache.New(), gw, nil, nil, nil, engine.Options{OnOutcome: OutcomeHook(m)})
	defer e.Close(context.Background())

	h, err := e.Like(context.Background(), "p1")
	require.NoError(t, err)
	_, _ = h.Wait(context.Background())

	ev := receive(t, client)
	assert.Equal(t, EventInteractionFailed, ev.Type)
	data, ok := ev.Data.(InteractionFailedEventData)
	require.True(t, ok)
	assert.Equal(t, errors.CodeRemote, data.Code)
	assert.True(t, data.Retryable)
	assert.False(t, data.Record.State)
}

func TestOutcomeHook_IgnoresCommits(t *testing.T) {
	m := NewManager(testLogger())
	hook := OutcomeHook(m)

	hook(engine.Outcome{Key: domain.Key{EntityID: "p1", Kind: domain.KindLike}, Status: engine.StatusCommitted})

	assert.Empty(t, m.events)
}

func TestBridgeLedger(t *testing.T) {
	m := startManager(t)
	client, err := m.Connect([]string{"p1"})
	require.NoError(t, err)

	l := comments.New(remotetest.New(), nil, nil, comments.Options{})
	detach := BridgeLedger(m, l)
	defer detach()

	_, err = l.Create(context.Background(), "p1", "nice review", nil)
	require.NoError(t, err)

	assert.Equal(t, EventCommentsInvalidated, receive(t, client).Type)
	created := receive(t, client)
	assert.Equal(t, EventCommentCreated, created.Type)
	assert.Equal(t, "nice review", created.Data.(CommentCreatedEventData).Comment.Content)
}
