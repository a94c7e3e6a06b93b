// Package collection keeps a locally cached page of a server-owned
// collection in sync with the server: a View drives fetches from the
// filter-sort-page state and an Engine applies acknowledged mutations.
package collection

import (
	"slices"

	"github.com/zjrosen/taskdeck/internal/query"
)

// Status is the fetch lifecycle of a cached page.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Keyed is implemented by records with a stable identity.
type Keyed interface {
	Key() string
}

// Pagination is the server-reported size of the result set.
type Pagination struct {
	TotalItems int
	TotalPages int
}

// Page is one list response.
type Page[T Keyed] struct {
	Items      []T
	Pagination Pagination
}

// State is an immutable snapshot of a cached page. Transitions return a new
// State and never modify the receiver's Items.
type State[T Keyed] struct {
	Items      []T
	Pagination Pagination
	Status     Status
	Err        error

	// Query is the most recently requested query; Items belong to it once
	// Status is succeeded.
	Query query.Query
	Seq   uint64

	// Approximate is set when a local removal made Pagination stale. The
	// next committed fetch clears it.
	Approximate bool
}

// Initial returns an empty idle state for q.
func Initial[T Keyed](q query.Query) State[T] {
	return State[T]{Status: StatusIdle, Query: q}
}

// Loading marks the fetch seq for q as started. Items stay visible until
// the fetch settles.
func (s State[T]) Loading(q query.Query, seq uint64) State[T] {
	s.Status = StatusLoading
	s.Query = q
	s.Seq = seq
	return s
}

// Succeeded replaces Items and Pagination together.
func (s State[T]) Succeeded(p Page[T]) State[T] {
	s.Items = slices.Clone(p.Items)
	if s.Items == nil {
		s.Items = []T{}
	}
	s.Pagination = p.Pagination
	s.Status = StatusSucceeded
	s.Err = nil
	s.Approximate = false
	return s
}

// Failed records err and clears the page so unverified results are never
// shown under the new query.
func (s State[T]) Failed(err error) State[T] {
	s.Items = []T{}
	s.Pagination = Pagination{}
	s.Status = StatusFailed
	s.Err = err
	s.Approximate = false
	return s
}

// Index returns the position of key in Items, or -1.
func (s State[T]) Index(key string) int {
	return slices.IndexFunc(s.Items, func(item T) bool { return item.Key() == key })
}

// Find returns the cached record with key.
func (s State[T]) Find(key string) (T, bool) {
	if i := s.Index(key); i >= 0 {
		return s.Items[i], true
	}
	var zero T
	return zero, false
}

// Updated replaces the record with key by fn(record). The bool is false,
// and s is returned unchanged, when key is not cached.
func (s State[T]) Updated(key string, fn func(T) T) (State[T], bool) {
	i := s.Index(key)
	if i < 0 {
		return s, false
	}
	items := slices.Clone(s.Items)
	items[i] = fn(items[i])
	s.Items = items
	return s, true
}

// Removed drops the record with key and marks Pagination approximate. The
// bool is false, and s is returned unchanged, when key is not cached.
func (s State[T]) Removed(key string) (State[T], bool) {
	i := s.Index(key)
	if i < 0 {
		return s, false
	}
	s.Items = slices.Delete(slices.Clone(s.Items), i, i+1)
	s.Approximate = true
	return s, true
}
