package tasks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/query"
	"github.com/zjrosen/taskdeck/internal/transport"
)

func newClient(t *testing.T, handler http.HandlerFunc) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := transport.New(transport.Config{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	return c
}

func TestAPI_ListSendsQueryAndDecodesPage(t *testing.T) {
	var gotQuery string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/tasks", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{
			"tasks": [{"_id": "t1", "title": "A", "status": "todo"}, {"_id": "t2", "title": "B"}],
			"pagination": {"total_tasks": 12, "total_pages": 2, "current_page": 2}
		}`)
	})

	q := query.Default().WithFilters(query.Patch{}.WithStatus("todo")).WithPage(2)
	page, err := NewAPI(c).List(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, "limit=10&page=2&sort=-due_date&status=todo", gotQuery)
	require.Len(t, page.Items, 2)
	require.Equal(t, "t1", page.Items[0].Key())
	require.Equal(t, 12, page.Pagination.TotalItems)
	require.Equal(t, 2, page.Pagination.TotalPages)
}

func TestAPI_ListFailureUsesFallbackMessage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := NewAPI(c).List(context.Background(), query.Default())
	require.ErrorIs(t, err, apierr.ErrServer)
	require.Equal(t, "Failed to fetch tasks.", apierr.Message(err, ""))
}

func TestAPI_ListNullTasksIsEmpty(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"tasks": null, "pagination": {}}`)
	})

	page, err := NewAPI(c).List(context.Background(), query.Default())
	require.NoError(t, err)
	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)
}

func TestAPI_CreateUploadsMultipart(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Quarterly report", r.FormValue("title"))
		require.Equal(t, "high", r.FormValue("priority"))
		_, hasStatus := r.MultipartForm.Value["status"]
		require.False(t, hasStatus, "empty fields are not sent")

		files := r.MultipartForm.File["documents"]
		require.Len(t, files, 2)
		require.Equal(t, "a.pdf", files[0].Filename)
		require.Equal(t, "application/pdf", files[0].Header.Get("Content-Type"))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"msg": "Task created", "task": {"_id": "t9", "title": "Quarterly report"}}`)
	})

	created, err := NewAPI(c).Create(context.Background(), NewTask{
		Title:    "Quarterly report",
		Priority: PriorityHigh,
		Documents: []Attachment{
			{Name: "/tmp/a.pdf", Content: strings.NewReader("%PDF-1")},
			{Name: "b.PDF", Content: strings.NewReader("%PDF-2")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "t9", created.ID)
}

func TestAPI_CreateAcceptsBareTask(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"_id": "t3", "title": "Bare"}`)
	})

	created, err := NewAPI(c).Create(context.Background(), NewTask{Title: "Bare"})
	require.NoError(t, err)
	require.Equal(t, "t3", created.ID)
}

func TestAPI_CreateRejectsBadAttachmentsLocally(t *testing.T) {
	c := newClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})
	api := NewAPI(c)
	pdf := func(name string) Attachment { return Attachment{Name: name, Content: strings.NewReader("x")} }

	_, err := api.Create(context.Background(), NewTask{Title: "x", Documents: []Attachment{pdf("1.pdf"), pdf("2.pdf"), pdf("3.pdf"), pdf("4.pdf")}})
	require.ErrorContains(t, err, "up to 3 documents")

	_, err = api.Create(context.Background(), NewTask{Title: "x", Documents: []Attachment{pdf("notes.txt")}})
	require.ErrorContains(t, err, "not a PDF")

	_, err = api.Create(context.Background(), NewTask{Title: "  "})
	require.ErrorContains(t, err, "title is required")
}

func TestAPI_CreateServerMessageWins(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"msg": "Due date must be in the future"}`)
	})

	_, err := NewAPI(c).Create(context.Background(), NewTask{Title: "x"})
	require.ErrorIs(t, err, apierr.ErrValidation)
	require.Equal(t, "Due date must be in the future", apierr.Message(err, ""))
}

func TestAPI_UpdateSendsOnlySetFields(t *testing.T) {
	var body map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/tasks/t1", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"msg": "Task updated"}`)
	})

	err := NewAPI(c).Update(context.Background(), "t1", Patch{Status: str(StatusDone)})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"status": "done"}, body)
}

func TestAPI_UpdateRejectsEmptyPatch(t *testing.T) {
	c := newClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})
	require.Error(t, NewAPI(c).Update(context.Background(), "t1", Patch{}))
	require.Error(t, NewAPI(c).Update(context.Background(), "a/b", Patch{Title: str("x")}))
}

func TestAPI_DeleteNotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"msg": "Task not found"}`)
	})

	err := NewAPI(c).Delete(context.Background(), "t1")
	require.ErrorIs(t, err, apierr.ErrNotFound)
	require.Equal(t, "Task not found", apierr.Message(err, ""))
}

func TestAPI_DeleteNoContent(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, NewAPI(c).Delete(context.Background(), "t1"))
}
