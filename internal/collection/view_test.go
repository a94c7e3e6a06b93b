package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/pubsub"
	"github.com/zjrosen/taskdeck/internal/query"
)

// listFunc adapts a function to Lister.
type listFunc func(ctx context.Context, q query.Query) (Page[item], error)

func (f listFunc) List(ctx context.Context, q query.Query) (Page[item], error) { return f(ctx, q) }

// recordingLister serves a page keyed by the query it was asked for and
// remembers every query.
type recordingLister struct {
	mu      sync.Mutex
	queries []query.Query
	err     error
}

func (l *recordingLister) List(_ context.Context, q query.Query) (Page[item], error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, q)
	if l.err != nil {
		return Page[item]{}, l.err
	}
	return Page[item]{
		Items:      []item{{ID: q.Params().Encode()}},
		Pagination: Pagination{TotalItems: 25, TotalPages: 3},
	}, nil
}

func (l *recordingLister) calls() []query.Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]query.Query(nil), l.queries...)
}

type pendingCall struct {
	ctx   context.Context
	q     query.Query
	reply chan Page[item]
}

// gatedLister blocks every call until the test replies. It ignores
// cancellation so late responses can be simulated.
type gatedLister struct {
	calls chan pendingCall
}

func newGatedLister() *gatedLister {
	return &gatedLister{calls: make(chan pendingCall)}
}

func (l *gatedLister) List(ctx context.Context, q query.Query) (Page[item], error) {
	c := pendingCall{ctx: ctx, q: q, reply: make(chan Page[item], 1)}
	l.calls <- c
	return <-c.reply, nil
}

func (l *gatedLister) next(t *testing.T) pendingCall {
	t.Helper()
	select {
	case c := <-l.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for list call")
		return pendingCall{}
	}
}

type fetchResult struct {
	state State[item]
	err   error
}

func TestView_FetchMarksLoadingBeforeResponse(t *testing.T) {
	lister := newGatedLister()
	v := NewView[item]("items", log.CatTasks, lister, query.Default())

	done := make(chan fetchResult, 1)
	go func() {
		st, err := v.Fetch(context.Background(), query.Default().WithPage(2))
		done <- fetchResult{st, err}
	}()

	call := lister.next(t)
	snap := v.Snapshot()
	require.Equal(t, StatusLoading, snap.Status)
	require.Equal(t, 2, snap.Query.Page)

	call.reply <- Page[item]{Items: items("a")}
	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, StatusSucceeded, res.state.Status)
	require.Equal(t, []string{"a"}, keys(v.Snapshot()))
}

func TestView_LateResponseOfOlderFetchIsDropped(t *testing.T) {
	lister := newGatedLister()
	v := NewView[item]("items", log.CatTasks, lister, query.Default())
	ctx := context.Background()

	first := make(chan fetchResult, 1)
	go func() {
		st, err := v.SetPage(ctx, 2)
		first <- fetchResult{State[item]{Query: st}, err}
	}()
	callA := lister.next(t)

	second := make(chan fetchResult, 1)
	go func() {
		st, err := v.SetPage(ctx, 3)
		second <- fetchResult{State[item]{Query: st}, err}
	}()
	callB := lister.next(t)

	require.Error(t, callA.ctx.Err(), "older fetch is cancelled when a newer one starts")
	require.NoError(t, callB.ctx.Err())

	callB.reply <- Page[item]{Items: items("page3")}
	require.NoError(t, (<-second).err)

	callA.reply <- Page[item]{Items: items("page2")}
	resA := <-first
	require.ErrorIs(t, resA.err, ErrSuperseded)

	snap := v.Snapshot()
	require.Equal(t, StatusSucceeded, snap.Status)
	require.Equal(t, 3, snap.Query.Page)
	require.Equal(t, []string{"page3"}, keys(snap))
}

func TestView_LateResponseDoesNotOverwriteLoading(t *testing.T) {
	lister := newGatedLister()
	v := NewView[item]("items", log.CatTasks, lister, query.Default())
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := v.Refresh(ctx)
		first <- err
	}()
	callA := lister.next(t)

	second := make(chan error, 1)
	go func() {
		_, err := v.Refresh(ctx)
		second <- err
	}()
	callB := lister.next(t)

	callA.reply <- Page[item]{Items: items("stale")}
	require.ErrorIs(t, <-first, ErrSuperseded)
	require.Equal(t, StatusLoading, v.Snapshot().Status)
	require.Empty(t, v.Snapshot().Items)

	callB.reply <- Page[item]{Items: items("fresh")}
	require.NoError(t, <-second)
	require.Equal(t, []string{"fresh"}, keys(v.Snapshot()))
}

func TestView_FailureClearsItems(t *testing.T) {
	lister := &recordingLister{}
	v := NewView[item]("items", log.CatTasks, lister, query.Default())
	ctx := context.Background()

	_, err := v.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, v.Snapshot().Items, 1)

	lister.err = errors.New("server down")
	st, err := v.SetPage(ctx, 2)
	require.EqualError(t, err, "server down")
	require.Equal(t, 2, st.Page)

	snap := v.Snapshot()
	require.Equal(t, StatusFailed, snap.Status)
	require.EqualError(t, snap.Err, "server down")
	require.Empty(t, snap.Items)
}

func TestView_SetFiltersResetsPageAndFetchesOnce(t *testing.T) {
	lister := &recordingLister{}
	v := NewView[item]("items", log.CatTasks, lister, query.Default())
	ctx := context.Background()

	_, err := v.SetPage(ctx, 3)
	require.NoError(t, err)

	q, err := v.SetFilters(ctx, query.Patch{}.WithStatus("done"))
	require.NoError(t, err)
	require.Equal(t, 1, q.Page)
	require.Equal(t, "done", q.Status)

	calls := lister.calls()
	require.Len(t, calls, 2)
	require.Equal(t, q, calls[1])
}

func TestView_SetPageKeepsFilters(t *testing.T) {
	lister := &recordingLister{}
	v := NewView[item]("items", log.CatTasks, lister, query.Default())
	ctx := context.Background()

	_, err := v.SetFilters(ctx, query.Patch{}.WithPriority("high").WithSort("title"))
	require.NoError(t, err)
	q, err := v.SetPage(ctx, 2)
	require.NoError(t, err)

	require.Equal(t, "high", q.Priority)
	require.Equal(t, query.Sort("title"), q.Sort)
	require.Equal(t, 2, q.Page)
}

func TestView_CancelledFetchContextFails(t *testing.T) {
	v := NewView[item]("items", log.CatTasks, listFunc(func(ctx context.Context, _ query.Query) (Page[item], error) {
		<-ctx.Done()
		return Page[item]{}, ctx.Err()
	}), query.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusFailed, v.Snapshot().Status)
}

func TestView_PublishesLifecycleEvents(t *testing.T) {
	lister := &recordingLister{}
	v := NewView[item]("items", log.CatTasks, lister, query.Default())
	t.Cleanup(v.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := v.Subscribe(ctx)

	_, err := v.Refresh(ctx)
	require.NoError(t, err)

	loading := <-events
	require.Equal(t, pubsub.LoadingEvent, loading.Type)
	require.Equal(t, StatusLoading, loading.Payload.Status)

	loaded := <-events
	require.Equal(t, pubsub.LoadedEvent, loaded.Type)
	require.Len(t, loaded.Payload.Items, 1)
}

func TestView_FinalQueryIsFoldOfTransitions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lister := &recordingLister{}
		v := NewView[item]("items", log.CatTasks, lister, query.Default())
		ctx := context.Background()
		want := query.Default()

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "isPage") {
				n := rapid.IntRange(-2, 9).Draw(rt, "page")
				want = want.WithPage(n)
				_, err := v.SetPage(ctx, n)
				require.NoError(rt, err)
				continue
			}
			p := query.Patch{}.
				WithStatus(rapid.SampledFrom([]string{"", "todo", "in_progress", "done"}).Draw(rt, "status")).
				WithPriority(rapid.SampledFrom([]string{"", "low", "medium", "high"}).Draw(rt, "priority"))
			want = want.WithFilters(p)
			_, err := v.SetFilters(ctx, p)
			require.NoError(rt, err)
		}

		snap := v.Snapshot()
		require.Equal(rt, want, snap.Query)

		calls := lister.calls()
		require.Len(rt, calls, steps)
		require.Equal(rt, want, calls[len(calls)-1])
		require.Equal(rt, []string{want.Params().Encode()}, keys(snap))
	})
}
