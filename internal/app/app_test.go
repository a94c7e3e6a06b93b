package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/config"
	"github.com/zjrosen/taskdeck/internal/kv"
	"github.com/zjrosen/taskdeck/internal/session"
	"github.com/zjrosen/taskdeck/internal/tasks"
)

// fakeAPI is a minimal task server. It accepts the credential in token and
// rejects every other one with 401.
type fakeAPI struct {
	token     atomic.Value
	role      string
	taskCalls atomic.Int32
}

func newFakeAPI(t *testing.T, role string) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{role: role}
	f.token.Store("tok-1")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds session.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"msg":"Bad email or password"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": f.token.Load().(string),
			"user_id":      "u1",
			"role":         f.role,
		})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"msg":"Logged out"}`)
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		f.taskCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+f.token.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"msg":"Token has expired"}`)
			return
		}
		_, _ = io.WriteString(w, `{"tasks":[{"_id":"t1","title":"A"},{"_id":"t2","title":"B"}],"pagination":{"total_tasks":2,"total_pages":1}}`)
	})
	mux.HandleFunc("DELETE /api/tasks/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.API.BaseURL = baseURL + "/api"
	cfg.Session.Path = filepath.Join(t.TempDir(), "session.db")
	cfg.Session.Watch = false
	return cfg
}

func newApp(t *testing.T, cfg config.Config, opts Options) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func login(t *testing.T, a *App) session.Session {
	t.Helper()
	sess, err := a.Session.Login(context.Background(), session.Credentials{Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)
	return sess
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.API.BaseURL = "not a url"
	_, err := New(context.Background(), cfg, Options{Ephemeral: true})
	require.ErrorContains(t, err, "invalid configuration")
}

func TestApp_LoginThenFetchTasks(t *testing.T) {
	_, srv := newFakeAPI(t, "user")
	a := newApp(t, testConfig(t, srv.URL), Options{Ephemeral: true})

	require.ErrorIs(t, a.RequireAuth(), ErrNotAuthenticated)

	sess := login(t, a)
	require.Equal(t, "u1", sess.Identity)
	require.NoError(t, a.RequireAuth())
	require.ErrorIs(t, a.RequireAdmin(), ErrNotAdmin)

	st, err := a.Tasks.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Items, 2)
}

func TestApp_SessionSurvivesRestartOnSQLite(t *testing.T) {
	_, srv := newFakeAPI(t, "admin")
	cfg := testConfig(t, srv.URL)

	first, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	login(t, first)
	require.NoError(t, first.Close(context.Background()))

	second := newApp(t, cfg, Options{})
	sess := second.Store.Snapshot()
	require.True(t, sess.Authenticated())
	require.Equal(t, "tok-1", sess.Credential)
	require.Equal(t, "u1", sess.Identity)
	require.Equal(t, session.RoleAdmin, sess.Role)
	require.NoError(t, second.RequireAdmin())

	_, err = second.Tasks.Refresh(context.Background())
	require.NoError(t, err, "hydrated credential is sent on requests")
}

func TestApp_LogoutClearsDurableSession(t *testing.T) {
	_, srv := newFakeAPI(t, "user")
	cfg := testConfig(t, srv.URL)

	first, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	login(t, first)
	require.NoError(t, first.Session.Logout(context.Background()))
	require.NoError(t, first.Close(context.Background()))

	second := newApp(t, cfg, Options{})
	require.False(t, second.Store.Snapshot().Authenticated())
}

func TestApp_UnauthorizedFetchClearsSession(t *testing.T) {
	api, srv := newFakeAPI(t, "user")
	mem := kv.NewMemory()
	a := newApp(t, testConfig(t, srv.URL), Options{Persister: mem})
	login(t, a)

	api.token.Store("tok-2")
	_, err := a.Tasks.Refresh(context.Background())
	require.ErrorIs(t, err, apierr.ErrAuth)

	sess := a.Store.Snapshot()
	require.False(t, sess.Authenticated())
	require.Equal(t, "Session expired, please log in again", sess.LastError)

	_, ok, err := mem.Get(context.Background(), kv.KeyCredential)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestApp_StaleUnauthorizedKeepsNewerSession(t *testing.T) {
	_, srv := newFakeAPI(t, "user")
	a := newApp(t, testConfig(t, srv.URL), Options{Ephemeral: true})
	login(t, a)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer some-older-token")
	a.invalidateOnUnauthorized(context.Background(), req)
	require.True(t, a.Store.Snapshot().Authenticated())

	anonymous := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	a.invalidateOnUnauthorized(context.Background(), anonymous)
	require.True(t, a.Store.Snapshot().Authenticated())
}

func TestApp_DeleteTaskDropsRecordWithoutRefetch(t *testing.T) {
	api, srv := newFakeAPI(t, "user")
	a := newApp(t, testConfig(t, srv.URL), Options{Ephemeral: true})
	login(t, a)

	_, err := a.Tasks.Refresh(context.Background())
	require.NoError(t, err)

	removed, err := a.TaskEngine.Remove(context.Background(), "t1")
	require.NoError(t, err)
	require.True(t, removed)

	st := a.Tasks.Snapshot()
	require.Equal(t, []tasks.Task{{ID: "t2", Title: "B"}}, st.Items)
	require.Equal(t, 2, st.Pagination.TotalItems)
	require.True(t, st.Approximate)
	require.EqualValues(t, 1, api.taskCalls.Load())
}

func TestApp_RedisBackend(t *testing.T) {
	_, srv := newFakeAPI(t, "user")
	mr := miniredis.RunT(t)
	cfg := testConfig(t, srv.URL)
	cfg.Session.Backend = config.BackendRedis
	cfg.Session.RedisAddr = mr.Addr()

	a := newApp(t, cfg, Options{})
	login(t, a)

	require.Equal(t, "tok-1", mr.HGet("taskdeck:session", kv.KeyCredential))
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	require.True(t, ok)
	require.Equal(t, "abc", tok)

	tok, ok = bearerToken("bearer xyz")
	require.True(t, ok)
	require.Equal(t, "xyz", tok)

	_, ok = bearerToken("Bearer ")
	require.False(t, ok)
	_, ok = bearerToken("Basic abc")
	require.False(t, ok)
	_, ok = bearerToken("")
	require.False(t, ok)
}
