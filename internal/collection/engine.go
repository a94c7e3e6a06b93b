package collection

import (
	"context"
	"errors"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/pubsub"
)

// Mutator performs server-side mutations of a collection. C is the create
// payload and P the partial update.
type Mutator[T Keyed, C, P any] interface {
	Create(ctx context.Context, c C) (T, error)
	Update(ctx context.Context, key string, p P) error
	Delete(ctx context.Context, key string) error
}

// MergeFunc returns record with patch applied.
type MergeFunc[T, P any] func(record T, patch P) T

// Engine applies acknowledged mutations to a View. Nothing is written to
// the cache before the server confirms, and a failed mutation leaves the
// cache as it was.
type Engine[T Keyed, C, P any] struct {
	view    *View[T]
	mutator Mutator[T, C, P]
	merge   MergeFunc[T, P]
}

// NewEngine creates an engine writing into view.
func NewEngine[T Keyed, C, P any](view *View[T], mutator Mutator[T, C, P], merge MergeFunc[T, P]) *Engine[T, C, P] {
	return &Engine[T, C, P]{view: view, mutator: mutator, merge: merge}
}

// View returns the view the engine writes into.
func (e *Engine[T, C, P]) View() *View[T] { return e.view }

// Create creates a record and, once the server confirms, refetches the
// current query so the new record appears where the server places it. A
// failed or superseded refetch is reflected in the view state and does not
// fail the create.
func (e *Engine[T, C, P]) Create(ctx context.Context, c C) (T, error) {
	created, err := e.mutator.Create(ctx, c)
	if err != nil {
		var zero T
		return zero, err
	}
	log.Info(e.view.cat, "record created", "collection", e.view.name, "key", created.Key())

	if _, err := e.view.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		log.Warn(e.view.cat, "refresh after create failed", "collection", e.view.name, "error", err)
	}
	return created, nil
}

// Update sends p for key and, once acknowledged, splices the merged record
// into the cache. The bool reports whether a cached record was changed.
func (e *Engine[T, C, P]) Update(ctx context.Context, key string, p P) (bool, error) {
	if err := e.mutator.Update(ctx, key, p); err != nil {
		if e.staleIdentity("update", key, err) {
			return false, nil
		}
		return false, e.mutationError("update", key, err)
	}
	_, changed := e.view.modify(pubsub.UpdatedEvent, func(s State[T]) (State[T], bool) {
		return s.Updated(key, func(record T) T { return e.merge(record, p) })
	})
	log.Info(e.view.cat, "record updated", "collection", e.view.name, "key", key, "cached", changed)
	return changed, nil
}

// Remove deletes key and, once acknowledged or reported missing, drops
// exactly that record from the cache. Pagination is left as is and marked approximate; no refetch is
// issued. The bool reports whether a cached record was dropped.
func (e *Engine[T, C, P]) Remove(ctx context.Context, key string) (bool, error) {
	if err := e.mutator.Delete(ctx, key); err != nil && !e.staleIdentity("delete", key, err) {
		return false, e.mutationError("delete", key, err)
	}
	_, changed := e.view.modify(pubsub.DeletedEvent, func(s State[T]) (State[T], bool) {
		return s.Removed(key)
	})
	log.Info(e.view.cat, "record deleted", "collection", e.view.name, "key", key, "cached", changed)
	return changed, nil
}

// staleIdentity reports whether err says key no longer exists on the
// server. That is a no-op for the caller: a delete treats it as confirmed
// and an update leaves the cache alone until the next fetch.
func (e *Engine[T, C, P]) staleIdentity(op, key string, err error) bool {
	if !errors.Is(err, apierr.ErrNotFound) {
		return false
	}
	log.Debug(e.view.cat, op+" of missing record ignored",
		"collection", e.view.name, "key", key, "cached", e.view.cached(key))
	return true
}

func (e *Engine[T, C, P]) mutationError(op, key string, err error) error {
	log.ErrorErr(e.view.cat, op+" failed", err, "collection", e.view.name, "key", key)
	return err
}
