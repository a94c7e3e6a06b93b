// Package app wires the session, transport, collections and their
// infrastructure into one application shared by every command.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zjrosen/taskdeck/internal/cachemanager"
	"github.com/zjrosen/taskdeck/internal/collection"
	"github.com/zjrosen/taskdeck/internal/config"
	"github.com/zjrosen/taskdeck/internal/infrastructure/redis"
	"github.com/zjrosen/taskdeck/internal/infrastructure/sqlite"
	"github.com/zjrosen/taskdeck/internal/kv"
	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/query"
	"github.com/zjrosen/taskdeck/internal/session"
	"github.com/zjrosen/taskdeck/internal/tasks"
	"github.com/zjrosen/taskdeck/internal/tracing"
	"github.com/zjrosen/taskdeck/internal/transport"
	"github.com/zjrosen/taskdeck/internal/users"
	"github.com/zjrosen/taskdeck/internal/watcher"
)

// UserPageSize is the page size of the admin user list.
const UserPageSize = 20

var (
	// ErrNotAuthenticated is returned by RequireAuth without a session.
	ErrNotAuthenticated = errors.New("not logged in, run 'taskdeck login'")
	// ErrNotAdmin is returned by RequireAdmin for non-admin sessions.
	ErrNotAdmin = errors.New("this command requires an admin account")
)

// TaskEngine and UserEngine are the mutation engines of the two collections.
type (
	TaskEngine = collection.Engine[tasks.Task, tasks.NewTask, tasks.Patch]
	UserEngine = collection.Engine[users.User, struct{}, users.Patch]
)

// Options override parts of the wiring, mostly for tests.
type Options struct {
	// Ephemeral keeps the session in memory regardless of the backend.
	Ephemeral bool
	// Persister replaces the configured backend.
	Persister kv.Persister
	// HTTPClient replaces the default client built from api.timeout.
	HTTPClient *http.Client
	// NoWatch disables the session file watcher.
	NoWatch bool
}

// App is the composed application.
type App struct {
	Config    config.Config
	Transport *transport.Client
	Store     *session.Store
	Session   *session.Controller

	// One-shot commands call the APIs directly; the browser mutates
	// through the engines so its cached page follows.
	TaskAPI    *tasks.API
	Tasks      *collection.View[tasks.Task]
	TaskEngine *TaskEngine
	Documents  *tasks.Documents

	UserAPI    *users.API
	Users      *collection.View[users.User]
	UserEngine *UserEngine

	tracer  *tracing.Provider
	watcher *watcher.Watcher
	closers []func() error
	cancel  context.CancelFunc
	now     func() time.Time
}

// New validates cfg and builds the application. The session is loaded from
// its persister before New returns.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if opts.Ephemeral {
		cfg.Session.Backend = config.BackendMemory
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{Config: cfg, now: time.Now}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel

	persister, dbPath, err := a.openPersister(ctx, cfg.Session, opts)
	if err != nil {
		a.closeQuietly()
		return nil, err
	}

	provider, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		a.closeQuietly()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	a.tracer = provider

	a.Store = session.NewStore(persister)
	a.Transport, err = transport.New(transport.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		UserAgent:  cfg.API.UserAgent,
		HTTPClient: opts.HTTPClient,
		Tracer:     provider.Tracer(),
		Credential: a.Store.Credential,
	})
	if err != nil {
		a.closeQuietly()
		return nil, err
	}
	a.Session = session.NewController(a.Store, a.Transport)
	a.Transport.OnUnauthorized(a.invalidateOnUnauthorized)

	a.TaskAPI = tasks.NewAPI(a.Transport)
	a.Tasks = collection.NewView[tasks.Task]("tasks", log.CatTasks, a.TaskAPI,
		query.New(query.Sort(cfg.Tasks.DefaultSort), cfg.Tasks.PageSize))
	a.TaskEngine = collection.NewEngine[tasks.Task, tasks.NewTask, tasks.Patch](a.Tasks, a.TaskAPI, tasks.Merge)
	a.Documents = tasks.NewDocuments(a.Transport,
		cachemanager.NewInMemoryCacheManager[string, []byte]("documents", cfg.Tasks.DocumentCacheTTL, cachemanager.DefaultCleanupInterval),
		cfg.Tasks.DocumentCacheTTL)

	a.UserAPI = users.NewAPI(a.Transport)
	a.Users = collection.NewView[users.User]("users", log.CatUsers, a.UserAPI, query.New("", UserPageSize))
	a.UserEngine = collection.NewEngine[users.User, struct{}, users.Patch](a.Users, a.UserAPI, users.Merge)

	sess, err := a.Session.Reload(ctx)
	if err != nil {
		a.closeQuietly()
		return nil, err
	}
	if sess.Authenticated() && sess.Expired(a.now()) {
		log.Warn(log.CatSession, "stored credential has expired", "expires_at", sess.ExpiresAt)
	}

	if dbPath != "" && cfg.Session.Watch && !opts.NoWatch {
		if err := a.startWatcher(runCtx, dbPath); err != nil {
			log.Warn(log.CatWatcher, "session watcher disabled", "error", err)
		}
	}

	log.Info(log.CatSession, "app ready",
		"backend", cfg.Session.Backend, "api", a.Transport.BaseURL(), "authenticated", sess.Authenticated())
	return a, nil
}

// openPersister returns the session persister and, for sqlite, the database
// path to watch.
func (a *App) openPersister(ctx context.Context, sc config.SessionConfig, opts Options) (kv.Persister, string, error) {
	if opts.Persister != nil {
		return opts.Persister, "", nil
	}
	switch sc.Backend {
	case config.BackendSQLite:
		db, err := sqlite.NewDB(sc.Path)
		if err != nil {
			return nil, "", fmt.Errorf("opening session database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return db.Persister(), sc.Path, nil
	case config.BackendRedis:
		p, err := redis.Dial(ctx, sc.RedisAddr, sc.RedisKeyPrefix)
		if err != nil {
			return nil, "", fmt.Errorf("connecting to session redis: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		return p, "", nil
	default:
		return kv.NewMemory(), "", nil
	}
}

func (a *App) startWatcher(ctx context.Context, dbPath string) error {
	w, err := watcher.New(watcher.DefaultConfig(dbPath))
	if err != nil {
		return err
	}
	if err := w.Run(ctx, func(ctx context.Context) {
		if _, err := a.Session.Reload(ctx); err != nil {
			log.ErrorErr(log.CatWatcher, "reload after change failed", err)
		}
	}); err != nil {
		_ = w.Stop()
		return err
	}
	a.watcher = w
	return nil
}

// invalidateOnUnauthorized ends the session whose credential the server
// just rejected. Requests sent without a credential say nothing about the
// current session and are ignored.
func (a *App) invalidateOnUnauthorized(ctx context.Context, req *http.Request) {
	credential, ok := bearerToken(req.Header.Get("Authorization"))
	if !ok {
		return
	}
	if _, err := a.Session.Invalidate(ctx, credential, "Session expired, please log in again"); err != nil {
		log.ErrorErr(log.CatSession, "clearing rejected session failed", err)
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// RequireAuth fails unless a session is present.
func (a *App) RequireAuth() error {
	sess := a.Store.Snapshot()
	if !sess.Authenticated() {
		return ErrNotAuthenticated
	}
	if sess.Expired(a.now()) {
		log.Warn(log.CatSession, "credential looks expired, the server will decide", "expires_at", sess.ExpiresAt)
	}
	return nil
}

// RequireAdmin fails unless an admin session is present.
func (a *App) RequireAdmin() error {
	if err := a.RequireAuth(); err != nil {
		return err
	}
	if !a.Store.Snapshot().IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// Close stops the watcher, flushes traces and closes the persister.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.cancel != nil {
		a.cancel()
	}
	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop())
	}
	if a.Tasks != nil {
		a.Tasks.Close()
	}
	if a.Users != nil {
		a.Users.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) closeQuietly() {
	_ = a.Close(context.Background())
}
