package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/collection"
	"github.com/zjrosen/taskdeck/internal/query"
	"github.com/zjrosen/taskdeck/internal/transport"
)

// PathTasks is the task collection endpoint.
const PathTasks = "/tasks"

// MaxDocuments is the most attachments a task may be created with.
const MaxDocuments = 3

// Form field names of the create request.
const (
	fieldDocuments = "documents"
	mimePDF        = "application/pdf"
)

// Fallback messages when the server gives none.
const (
	msgFetchFailed  = "Failed to fetch tasks."
	msgCreateFailed = "Failed to create task."
	msgUpdateFailed = "Failed to update task."
	msgDeleteFailed = "Failed to delete task."
)

// Requester issues API requests.
type Requester interface {
	Request(ctx context.Context, method, path string, opts transport.Options) (*transport.Response, error)
}

// Attachment is a PDF uploaded with a new task.
type Attachment struct {
	Name    string
	Content io.Reader
}

// NewTask is the create payload.
type NewTask struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	AssignedTo  string
	Documents   []Attachment
}

// Validate enforces the server's attachment rules before uploading.
func (n NewTask) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if err := ValidateStatus(n.Status); err != nil {
		return err
	}
	if err := ValidatePriority(n.Priority); err != nil {
		return err
	}
	if len(n.Documents) > MaxDocuments {
		return fmt.Errorf("only up to %d documents are allowed", MaxDocuments)
	}
	for _, d := range n.Documents {
		if !strings.EqualFold(filepath.Ext(d.Name), ".pdf") {
			return fmt.Errorf("document %q is not a PDF", d.Name)
		}
	}
	return nil
}

func (n NewTask) multipart() *transport.Multipart {
	m := &transport.Multipart{}
	m.AddField("title", n.Title)
	for _, f := range []struct{ name, value string }{
		{"description", n.Description},
		{"status", n.Status},
		{"priority", n.Priority},
		{"due_date", n.DueDate},
		{"assigned_to", n.AssignedTo},
	} {
		if f.value != "" {
			m.AddField(f.name, f.value)
		}
	}
	for _, d := range n.Documents {
		m.AddFile(transport.File{
			FieldName:   fieldDocuments,
			FileName:    filepath.Base(d.Name),
			ContentType: mimePDF,
			Content:     d.Content,
		})
	}
	return m
}

type listResponse struct {
	Tasks      []Task `json:"tasks"`
	Pagination struct {
		TotalTasks int `json:"total_tasks"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}

// API is the task resource. It implements collection.Lister[Task] and
// collection.Mutator[Task, NewTask, Patch].
type API struct {
	requester Requester
}

// NewAPI creates the task resource over r.
func NewAPI(r Requester) *API {
	return &API{requester: r}
}

// List fetches one page of tasks for q.
func (a *API) List(ctx context.Context, q query.Query) (collection.Page[Task], error) {
	resp, err := a.requester.Request(ctx, http.MethodGet, PathTasks, transport.Options{Params: q.Params()})
	if err != nil {
		return collection.Page[Task]{}, apierr.WithFallback(err, msgFetchFailed)
	}
	var body listResponse
	if err := resp.Decode(&body); err != nil {
		return collection.Page[Task]{}, fmt.Errorf("listing tasks: %w", err)
	}
	items := body.Tasks
	if items == nil {
		items = []Task{}
	}
	return collection.Page[Task]{
		Items: items,
		Pagination: collection.Pagination{
			TotalItems: body.Pagination.TotalTasks,
			TotalPages: body.Pagination.TotalPages,
		},
	}, nil
}

// Create uploads n as multipart form data and returns the created task.
func (a *API) Create(ctx context.Context, n NewTask) (Task, error) {
	if err := n.Validate(); err != nil {
		return Task{}, err
	}
	resp, err := a.requester.Request(ctx, http.MethodPost, PathTasks, transport.Options{Multipart: n.multipart()})
	if err != nil {
		return Task{}, apierr.WithFallback(err, msgCreateFailed)
	}
	return decodeCreated(resp)
}

// Update sends p as JSON.
func (a *API) Update(ctx context.Context, id string, p Patch) error {
	if err := validateID(id); err != nil {
		return err
	}
	if p.Empty() {
		return fmt.Errorf("no fields provided for update")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := a.requester.Request(ctx, http.MethodPut, taskPath(id), transport.Options{Body: p})
	if err != nil {
		return apierr.WithFallback(err, msgUpdateFailed)
	}
	return nil
}

// Delete removes the task with id.
func (a *API) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	_, err := a.requester.Request(ctx, http.MethodDelete, taskPath(id), transport.Options{})
	if err != nil {
		return apierr.WithFallback(err, msgDeleteFailed)
	}
	return nil
}

// taskPath builds /tasks/{id}. The transport escapes the path.
func taskPath(id string) string {
	return PathTasks + "/" + id
}

// decodeCreated accepts either the task itself or {"task": {...}}.
func decodeCreated(resp *transport.Response) (Task, error) {
	var wrapped struct {
		Task *Task  `json:"task"`
		ID   string `json:"_id"`
	}
	if err := resp.Decode(&wrapped); err != nil {
		return Task{}, fmt.Errorf("creating task: %w", err)
	}
	if wrapped.Task != nil {
		return *wrapped.Task, nil
	}
	var t Task
	if err := json.Unmarshal(resp.Data, &t); err != nil {
		return Task{}, fmt.Errorf("creating task: %w", err)
	}
	if t.ID == "" {
		return Task{}, fmt.Errorf("creating task: response has no task id")
	}
	return t, nil
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("invalid task id %q", id)
	}
	return nil
}
