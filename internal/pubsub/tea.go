package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// ListenCmd waits for the next event on ch and delivers it as a tea.Msg.
// A cancelled ctx or closed channel yields nil, which Bubble Tea ignores.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T]) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			return event
		}
	}
}

// ContinuousListener holds one subscription for the life of a Bubble Tea
// model. Issue Listen or ListenLatest again after each delivered event.
type ContinuousListener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewContinuousListener subscribes to sub until ctx ends.
func NewContinuousListener[T any](ctx context.Context, sub Subscriber[T]) *ContinuousListener[T] {
	return &ContinuousListener[T]{
		ctx: ctx,
		ch:  sub.Subscribe(ctx),
	}
}

// Listen delivers every event in order.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	return ListenCmd(l.ctx, l.ch)
}

// ListenLatest blocks for one event and then drains whatever else is
// already buffered, delivering only the newest. Use it when each payload
// is a full snapshot and intermediate ones are not worth rendering.
func (l *ContinuousListener[T]) ListenLatest() tea.Cmd {
	return func() tea.Msg {
		event, ok := ListenCmd(l.ctx, l.ch)().(Event[T])
		if !ok {
			return nil
		}
		for {
			select {
			case next, open := <-l.ch:
				if !open {
					return event
				}
				event = next
			default:
				return event
			}
		}
	}
}
