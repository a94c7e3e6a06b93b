// Package tasks adapts the task endpoints of the API to the collection
// View and Engine.
package tasks

import (
	"fmt"
	"slices"
)

// Status values accepted by the server.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Priority values accepted by the server.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Statuses and Priorities list the filter values in display order.
var (
	Statuses   = []string{StatusTodo, StatusInProgress, StatusDone}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

// Task is a task record as returned by the server. Dates are kept as the
// server formats them.
type Task struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     string     `json:"due_date,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	Documents   []Document `json:"documents,omitempty"`
	CreatedAt   string     `json:"created_at,omitempty"`
	UpdatedAt   string     `json:"updated_at,omitempty"`
}

// Key returns the task id.
func (t Task) Key() string { return t.ID }

// Document is the metadata of an attachment stored by the server.
type Document struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	MimeType     string `json:"mime_type,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
}

// Patch is a partial task update. Nil fields are not sent.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Validate checks enumerated fields.
func (p Patch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("title must not be empty")
	}
	if p.Status != nil {
		if err := ValidateStatus(*p.Status); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if err := ValidatePriority(*p.Priority); err != nil {
			return err
		}
	}
	return nil
}

// Merge returns t with the fields of p applied.
func Merge(t Task, p Patch) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	return t
}

// ValidateStatus accepts "" (no filter) or a known status.
func ValidateStatus(s string) error {
	if s == "" || slices.Contains(Statuses, s) {
		return nil
	}
	return fmt.Errorf("invalid status %q (want one of %v)", s, Statuses)
}

// ValidatePriority accepts "" (no filter) or a known priority.
func ValidatePriority(s string) error {
	if s == "" || slices.Contains(Priorities, s) {
		return nil
	}
	return fmt.Errorf("invalid priority %q (want one of %v)", s, Priorities)
}

// Next returns the value after current in values, cycling through "" (no
// filter) after the last one.
func Next(values []string, current string) string {
	i := slices.Index(values, current)
	if i == len(values)-1 {
		return ""
	}
	return values[i+1]
}
