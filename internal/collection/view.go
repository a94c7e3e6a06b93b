package collection

import (
	"context"
	"errors"
	"sync"

	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/pubsub"
	"github.com/zjrosen/taskdeck/internal/query"
)

// ErrSuperseded is returned by a fetch whose result was discarded because
// a newer fetch was issued after it.
var ErrSuperseded = errors.New("collection: fetch superseded")

// Lister loads one page of a collection.
type Lister[T Keyed] interface {
	List(ctx context.Context, q query.Query) (Page[T], error)
}

// View owns the cached page of one collection and the query that produced
// it. It is the only writer of its State; observers read snapshots.
type View[T Keyed] struct {
	name   string
	cat    log.Category
	lister Lister[T]

	mu     sync.Mutex
	state  State[T]
	seq    uint64
	cancel context.CancelFunc

	broker *pubsub.Broker[State[T]]
}

// NewView creates an idle view starting at initial. name and cat label log
// lines.
func NewView[T Keyed](name string, cat log.Category, lister Lister[T], initial query.Query) *View[T] {
	return &View[T]{
		name:   name,
		cat:    cat,
		lister: lister,
		state:  Initial[T](initial),
		broker: pubsub.NewBroker[State[T]](),
	}
}

// Name returns the collection name.
func (v *View[T]) Name() string { return v.name }

// Snapshot returns the current state.
func (v *View[T]) Snapshot() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Query returns the current filter-sort-page state.
func (v *View[T]) Query() query.Query {
	return v.Snapshot().Query
}

// Subscribe streams state snapshots until ctx is done.
func (v *View[T]) Subscribe(ctx context.Context) <-chan pubsub.Event[State[T]] {
	return v.broker.Subscribe(ctx)
}

// Close cancels any in-flight fetch and closes subscriber channels.
func (v *View[T]) Close() {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.mu.Unlock()
	v.broker.Close()
}

// SetFilters applies p to the current query, which resets the page to 1,
// and fetches the result.
func (v *View[T]) SetFilters(ctx context.Context, p query.Patch) (query.Query, error) {
	st, err := v.fetch(ctx, func(q query.Query) query.Query { return q.WithFilters(p) })
	return st.Query, err
}

// SetPage moves to page n and fetches it. Filters are unchanged.
func (v *View[T]) SetPage(ctx context.Context, n int) (query.Query, error) {
	st, err := v.fetch(ctx, func(q query.Query) query.Query { return q.WithPage(n) })
	return st.Query, err
}

// Refresh refetches the current query.
func (v *View[T]) Refresh(ctx context.Context) (State[T], error) {
	return v.fetch(ctx, func(q query.Query) query.Query { return q })
}

// Fetch loads q. The view is marked loading before Fetch blocks and any
// earlier in-flight fetch is cancelled. The result is committed only if no
// later fetch was issued meanwhile; otherwise ErrSuperseded is returned
// along with the state at that time.
func (v *View[T]) Fetch(ctx context.Context, q query.Query) (State[T], error) {
	return v.fetch(ctx, func(query.Query) query.Query { return q })
}

func (v *View[T]) fetch(ctx context.Context, next func(query.Query) query.Query) (State[T], error) {
	v.mu.Lock()
	q := next(v.state.Query)
	v.seq++
	seq := v.seq
	if v.cancel != nil {
		v.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.state = v.state.Loading(q, seq)
	loading := v.state
	v.mu.Unlock()
	defer cancel()

	v.broker.Publish(pubsub.LoadingEvent, loading)
	log.Debug(v.cat, "fetch started", "collection", v.name, "seq", seq, "params", q.Params().Encode())

	page, err := v.lister.List(fetchCtx, q)

	v.mu.Lock()
	if seq != v.seq {
		latest := v.state
		v.mu.Unlock()
		log.Debug(v.cat, "fetch superseded", "collection", v.name, "seq", seq, "latest", latest.Seq)
		return latest, ErrSuperseded
	}
	v.cancel = nil
	if err != nil {
		v.state = v.state.Failed(err)
	} else {
		v.state = v.state.Succeeded(page)
	}
	committed := v.state
	v.mu.Unlock()

	if err != nil {
		log.ErrorErr(v.cat, "fetch failed", err, "collection", v.name, "seq", seq)
		v.broker.Publish(pubsub.FailedEvent, committed)
		return committed, err
	}
	log.Debug(v.cat, "fetch committed", "collection", v.name, "seq", seq,
		"items", len(committed.Items), "total", committed.Pagination.TotalItems)
	v.broker.Publish(pubsub.LoadedEvent, committed)
	return committed, nil
}

// modify applies fn to the current state in one critical section and
// publishes the result under eventType when fn reports a change.
func (v *View[T]) modify(eventType pubsub.EventType, fn func(State[T]) (State[T], bool)) (State[T], bool) {
	v.mu.Lock()
	next, changed := fn(v.state)
	if changed {
		v.state = next
	}
	snap := v.state
	v.mu.Unlock()

	if changed {
		v.broker.Publish(eventType, snap)
	}
	return snap, changed
}

// cached reports whether key is in the current page.
func (v *View[T]) cached(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.Index(key) >= 0
}
