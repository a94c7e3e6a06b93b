package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/taskdeck/internal/apierr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{BaseURL: srv.URL + "/api/"}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestParseBaseURL(t *testing.T) {
	u, err := ParseBaseURL(" http://localhost:5000/api/ ")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5000/api", u.String())

	for _, bad := range []string{"", "localhost:5000", "ftp://x/api", "http://"} {
		_, err := ParseBaseURL(bad)
		require.Error(t, err, bad)
	}
}

func TestRequest_BuildsURLAndHeaders(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, func(cfg *Config) { cfg.UserAgent = "taskdeck-test" })

	params := url.Values{"status": {"todo"}, "page": {"2"}}
	resp, err := c.Get(context.Background(), "/tasks", params)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	require.Equal(t, "/api/tasks", got.URL.Path)
	require.Equal(t, "todo", got.URL.Query().Get("status"))
	require.Equal(t, "2", got.URL.Query().Get("page"))
	require.Equal(t, "application/json", got.Header.Get("Accept"))
	require.Equal(t, "taskdeck-test", got.Header.Get("User-Agent"))
	require.Empty(t, got.Header.Get("Authorization"))

	_, err = uuid.Parse(got.Header.Get(HeaderRequestID))
	require.NoError(t, err)

	var body map[string]bool
	require.NoError(t, resp.Decode(&body))
	require.True(t, body["ok"])
}

func TestRequest_JSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "done", body["status"])
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := c.Put(context.Background(), "/tasks/t1", map[string]string{"status": "done"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.Status)
	require.Error(t, resp.Decode(&struct{}{}))
}

func TestRequest_AuthorizationPrecedence(t *testing.T) {
	var seen []string
	credential := "from-store"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
	}, func(cfg *Config) { cfg.Credential = func() string { return credential } })

	ctx := context.Background()
	_, err := c.Get(ctx, "/tasks", nil)
	require.NoError(t, err)

	c.SetDefaultAuthHeader("default")
	_, err = c.Get(ctx, "/tasks", nil)
	require.NoError(t, err)

	_, err = c.Request(ctx, http.MethodGet, "/tasks", Options{Headers: http.Header{"Authorization": {"Bearer explicit"}}})
	require.NoError(t, err)

	c.ClearDefaultAuthHeader()
	credential = ""
	_, err = c.Get(ctx, "/tasks", nil)
	require.NoError(t, err)

	require.Equal(t, []string{"Bearer from-store", "Bearer default", "Bearer explicit", ""}, seen)
}

func TestRequest_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
		msg    string
	}{
		{http.StatusBadRequest, `{"msg":"Title is required"}`, apierr.ErrValidation, "Title is required"},
		{http.StatusForbidden, `{"msg":"Authorization failed: insufficient permissions or role."}`, apierr.ErrAuthorization, "Authorization failed: insufficient permissions or role."},
		{http.StatusNotFound, `{"msg":"Task not found"}`, apierr.ErrNotFound, "Task not found"},
		{http.StatusInternalServerError, `oops`, apierr.ErrServer, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Delete(context.Background(), "/tasks/t1")
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.msg, apierr.Message(err, ""))
		})
	}
}

func TestRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/tasks", nil)
	require.ErrorIs(t, err, apierr.ErrNetwork)
}

func TestRequest_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "/tasks", nil)
	require.ErrorIs(t, err, apierr.ErrNetwork)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRequest_UnauthorizedObservers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"msg":"Token has expired"}`)
	})

	var calls atomic.Int32
	var lastPath string
	c.OnUnauthorized(func(_ context.Context, req *http.Request) {
		calls.Add(1)
		lastPath = req.URL.Path
	})

	_, err := c.Get(context.Background(), "/tasks", nil)
	require.ErrorIs(t, err, apierr.ErrAuth)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "/api/tasks", lastPath)

	_, err = c.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.c"})
	require.ErrorIs(t, err, apierr.ErrAuth)
	require.Equal(t, int32(1), calls.Load(), "auth endpoints must not trigger observers")
}

func TestRequest_ObserverMayClearHeader(t *testing.T) {
	var c *Client
	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c.SetDefaultAuthHeader("tok")
	c.OnUnauthorized(func(context.Context, *http.Request) { c.ClearDefaultAuthHeader() })

	_, err := c.Get(context.Background(), "/tasks", nil)
	require.Error(t, err)
	require.Empty(t, c.authorization())
}

func TestRequest_BodyAndMultipartExclusive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})
	_, err := c.Request(context.Background(), http.MethodPost, "/tasks", Options{Body: map[string]string{}, Multipart: &Multipart{}})
	require.Error(t, err)
	require.False(t, errors.Is(err, apierr.ErrNetwork))
}

func TestRequest_RecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, func(cfg *Config) { cfg.Tracer = tp.Tracer("test") })

	_, err := c.Get(context.Background(), "/tasks/t9", nil)
	require.Error(t, err)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "http.request GET /tasks/t9", ended[0].Name())
}

func TestMultipart_Encode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Write report", r.FormValue("title"))

		files := r.MultipartForm.File["documents"]
		require.Len(t, files, 2)
		require.Equal(t, "a.pdf", files[0].Filename)
		require.Equal(t, "application/pdf", files[0].Header.Get("Content-Type"))

		f, err := files[1].Open()
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		require.Equal(t, "%PDF-b", string(data))

		w.WriteHeader(http.StatusCreated)
	})

	mp := (&Multipart{}).
		AddField("title", "Write report").
		AddFile(File{FieldName: "documents", FileName: "a.pdf", ContentType: "application/pdf", Content: strings.NewReader("%PDF-a")}).
		AddFile(File{FieldName: "documents", FileName: "b.pdf", ContentType: "application/pdf", Content: strings.NewReader("%PDF-b")})

	resp, err := c.Request(context.Background(), http.MethodPost, "/tasks", Options{Multipart: mp})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status)
}
