package engine

import (
	"context"

	"github.com/critiqapp/critiq-sync/internal/domain"
	"github.com/critiqapp/critiq-sync/internal/errors"
	"github.com/critiqapp/critiq-sync/internal/remote"
)

// callState is what a worker sends for one intent.
type callState struct {
	intent   Intent
	target   bool
	count    *int64
	bookmark domain.BookmarkEntry
	hidden   domain.HiddenPostEntry
}

type callResult struct {
	res remote.Result
	err error
}

// callGateway issues the call for key with a bounded wait.
// A gateway that ignores its context still cannot keep the key pending past the deadline.
func (e *Engine) callGateway(key domain.Key, call callState) (remote.Result, error) {
	ctx, cancel := context.WithTimeout(e.baseCtx, e.opts.RemoteTimeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		res, err := e.dispatch(ctx, key, call)
		done <- callResult{res: res, err: err}
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		if e.baseCtx.Err() != nil {
			return remote.Result{}, errors.Wrap(ctx.Err(), errors.CodeNetwork, "engine closed before the backend answered")
		}
		return remote.Result{}, errors.Timeout(ctx.Err())
	}
}

// dispatch maps a key and target state onto the gateway method for its kind.
func (e *Engine) dispatch(ctx context.Context, key domain.Key, call callState) (remote.Result, error) {
	switch key.Kind {
	case domain.KindLike:
		return e.gateway.SetLike(ctx, key.EntityID, call.target)
	case domain.KindFavorite:
		return e.gateway.SetFavorite(ctx, key.EntityID, call.target)
	case domain.KindBookmark:
		if call.target {
			return e.gateway.AddBookmark(ctx, key.EntityID)
		}
		return e.gateway.RemoveBookmark(ctx, key.EntityID)
	case domain.KindHidden:
		if call.hidden.Reason.IsReport() {
			return e.gateway.ReportPost(ctx, key.EntityID, call.hidden.Reason, call.hidden.Details)
		}
		return e.gateway.HidePost(ctx, key.EntityID)
	case domain.KindComment:
		return remote.Result{}, errors.Internal("comment intents have no toggle call")
	default:
		return remote.Result{}, errors.Internalf("unhandled interaction kind %q", key.Kind)
	}
}

// applyEntriesLocked updates the in-memory entry maps after a confirmed call. Callers hold e.mu.
func (e *Engine) applyEntriesLocked(key domain.Key, call callState) {
	switch key.Kind {
	case domain.KindBookmark:
		if call.target {
			e.bookmarks[key.EntityID] = call.bookmark
		} else {
			delete(e.bookmarks, key.EntityID)
		}
	case domain.KindHidden:
		e.hidden[key.EntityID] = call.hidden
	case domain.KindLike, domain.KindFavorite, domain.KindComment:
	}
}

// persist writes a confirmed change through to local storage.
// Failures are logged and the engine keeps serving from memory.
func (e *Engine) persist(key domain.Key, call callState) {
	ctx := context.WithoutCancel(e.baseCtx)

	var err error
	switch key.Kind {
	case domain.KindBookmark:
		if call.target {
			err = e.persister.SaveBookmark(ctx, call.bookmark)
		} else {
			err = e.persister.RemoveBookmark(ctx, key.EntityID)
		}
	case domain.KindHidden:
		err = e.persister.SaveHidden(ctx, call.hidden)
	case domain.KindLike, domain.KindFavorite, domain.KindComment:
		return
	}

	if err != nil {
		e.logger.Warn("persisting committed state failed, continuing from memory",
			"key", key.String(),
			"error", errors.Persistence(err),
		)
	}
}
