// Package query holds the filter-sort-page state of a collection view and
// its pure transitions.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Defaults used when nothing is configured.
const (
	DefaultSort  Sort = "-due_date"
	DefaultLimit      = 10
)

// Query is the filter-sort-page state of one collection view. Empty filter
// fields mean "no filter".
type Query struct {
	Status     string
	Priority   string
	Sort       Sort
	Page       int
	Limit      int
	DueBefore  string // YYYY-MM-DD, inclusive
	AssignedTo string
}

// Default returns the initial query: no filters, DefaultSort, page 1.
func Default() Query {
	return New(DefaultSort, DefaultLimit)
}

// New returns an unfiltered first-page query with the given sort and page
// size.
func New(sort Sort, limit int) Query {
	if sort == "" {
		sort = DefaultSort
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return Query{Sort: sort, Page: 1, Limit: limit}
}

// Patch is a partial update of the non-page fields. Nil fields are left
// unchanged.
type Patch struct {
	Status     *string
	Priority   *string
	Sort       *Sort
	Limit      *int
	DueBefore  *string
	AssignedTo *string
}

func (p Patch) WithStatus(s string) Patch     { p.Status = &s; return p }
func (p Patch) WithPriority(s string) Patch   { p.Priority = &s; return p }
func (p Patch) WithSort(s Sort) Patch         { p.Sort = &s; return p }
func (p Patch) WithLimit(n int) Patch         { p.Limit = &n; return p }
func (p Patch) WithDueBefore(s string) Patch  { p.DueBefore = &s; return p }
func (p Patch) WithAssignedTo(s string) Patch { p.AssignedTo = &s; return p }

// WithFilters merges p into q and resets the page to 1. The reset happens
// even for an empty patch.
func (q Query) WithFilters(p Patch) Query {
	if p.Status != nil {
		q.Status = *p.Status
	}
	if p.Priority != nil {
		q.Priority = *p.Priority
	}
	if p.Sort != nil {
		q.Sort = *p.Sort
	}
	if p.Limit != nil && *p.Limit >= 1 {
		q.Limit = *p.Limit
	}
	if p.DueBefore != nil {
		q.DueBefore = *p.DueBefore
	}
	if p.AssignedTo != nil {
		q.AssignedTo = *p.AssignedTo
	}
	q.Page = 1
	return q
}

// WithPage changes only the page. Pages below 1 become 1.
func (q Query) WithPage(n int) Query {
	if n < 1 {
		n = 1
	}
	q.Page = n
	return q
}

// Params encodes q as the list endpoint's query string.
func (q Query) Params() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Priority != "" {
		v.Set("priority", q.Priority)
	}
	if q.Sort != "" {
		v.Set("sort", string(q.Sort))
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.DueBefore != "" {
		v.Set("due_date_max", q.DueBefore)
	}
	if q.AssignedTo != "" {
		v.Set("assigned_to", q.AssignedTo)
	}
	return v
}

// Validate reports the first malformed field.
func (q Query) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", q.Page)
	}
	if q.Limit < 1 {
		return fmt.Errorf("limit must be >= 1, got %d", q.Limit)
	}
	if _, err := ParseSort(string(q.Sort)); err != nil {
		return err
	}
	if q.DueBefore != "" {
		if _, err := time.Parse(time.DateOnly, q.DueBefore); err != nil {
			return fmt.Errorf("due date %q must be YYYY-MM-DD", q.DueBefore)
		}
	}
	return nil
}

// Filtered reports whether any filter is active.
func (q Query) Filtered() bool {
	return q.Status != "" || q.Priority != "" || q.DueBefore != "" || q.AssignedTo != ""
}
