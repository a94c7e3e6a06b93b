package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/transport"
)

// DefaultLogoutTimeout bounds the remote revocation call of Logout.
const DefaultLogoutTimeout = 5 * time.Second

// Auth endpoint paths, relative to the API base URL.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathLogout   = "/auth/logout"
)

// Fallback messages when the server gives none.
const (
	msgLoginFailed    = "Login failed"
	msgRegisterFailed = "Registration failed"
)

// ErrSuperseded is returned when an attempt's result arrived after a logout
// or a newer attempt and was discarded.
var ErrSuperseded = errors.New("session: result superseded")

// Transport is the subset of the transport client the controller needs.
type Transport interface {
	Request(ctx context.Context, method, path string, opts transport.Options) (*transport.Response, error)
	SetDefaultAuthHeader(token string)
	ClearDefaultAuthHeader()
}

// Credentials are sent to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is sent to the register endpoint.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
}

// Controller performs login, registration and logout against the API and
// is the only writer of its Store.
type Controller struct {
	store         *Store
	transport     Transport
	logoutTimeout time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogoutTimeout overrides DefaultLogoutTimeout.
func WithLogoutTimeout(d time.Duration) Option {
	return func(c *Controller) { c.logoutTimeout = d }
}

// NewController creates a controller writing to store.
func NewController(store *Store, t Transport, opts ...Option) *Controller {
	c := &Controller{
		store:         store,
		transport:     t,
		logoutTimeout: DefaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the store this controller writes.
func (c *Controller) Store() *Store {
	return c.store
}

// Login exchanges credentials for a session. On failure the session is
// marked failed with the server's message and durable state is untouched.
func (c *Controller) Login(ctx context.Context, creds Credentials) (Session, error) {
	return c.authenticate(ctx, PathLogin, creds, msgLoginFailed)
}

// Register creates an account and adopts whatever session the server
// returns. Missing identity or role are left empty, not treated as errors.
// A response without a credential still succeeds, leaving the user signed
// out.
func (c *Controller) Register(ctx context.Context, reg Registration) (Session, error) {
	return c.authenticate(ctx, PathRegister, reg, msgRegisterFailed)
}

func (c *Controller) authenticate(ctx context.Context, path string, body any, fallback string) (Session, error) {
	gen := c.store.begin()
	log.Debug(log.CatSession, "auth attempt started", "path", path, "generation", gen)

	resp, err := c.transport.Request(ctx, http.MethodPost, path, transport.Options{Body: body})
	if err != nil {
		err = apierr.WithFallback(err, fallback)
		return c.failed(gen, path, apierr.Message(err, fallback), err)
	}

	var payload authResponse
	decodeErr := resp.Decode(&payload)
	if decodeErr == nil && payload.AccessToken == "" && path == PathRegister {
		// The account exists; the user signs in separately.
		sess, live := c.store.settleUnauthenticated(gen)
		if !live {
			return sess, ErrSuperseded
		}
		log.Info(log.CatSession, "registered without credential", "path", path)
		return sess, nil
	}
	if decodeErr != nil || payload.AccessToken == "" {
		bad := &apierr.Error{Kind: apierr.KindServer, Status: resp.Status, Message: fallback, Op: path, Err: decodeErr}
		return c.failed(gen, path, fallback, bad)
	}

	next := Session{
		Credential: payload.AccessToken,
		Identity:   payload.UserID,
	}
	if role, ok := ParseRole(payload.Role); ok {
		next.Role = role
	} else if payload.Role != "" {
		log.Warn(log.CatSession, "ignoring unknown role", "role", payload.Role)
	}

	sess, live, err := c.store.apply(ctx, gen, next, func() {
		c.transport.SetDefaultAuthHeader(payload.AccessToken)
	})
	if !live {
		return sess, ErrSuperseded
	}
	if err != nil {
		return c.failed(gen, path, "Could not save session", err)
	}

	log.Info(log.CatSession, "authenticated",
		"path", path, "identity", sess.Identity, "role", sess.Role, "credential", log.Redact(sess.Credential))
	return sess, nil
}

func (c *Controller) failed(gen uint64, path, msg string, err error) (Session, error) {
	sess, live := c.store.fail(gen, msg)
	if !live {
		return sess, ErrSuperseded
	}
	log.Warn(log.CatSession, "auth attempt failed", "path", path, "error", err)
	return sess, err
}

// Logout revokes the credential remotely (best effort, bounded by the
// logout timeout) and then always clears local state. Only a failure to
// clear the persister is returned.
func (c *Controller) Logout(ctx context.Context) error {
	if c.store.Snapshot().Authenticated() {
		rctx, cancel := context.WithTimeout(ctx, c.logoutTimeout)
		_, err := c.transport.Request(rctx, http.MethodPost, PathLogout, transport.Options{})
		cancel()
		if err != nil {
			log.Warn(log.CatSession, "remote logout failed, clearing locally", "error", err)
		}
	}

	_, err := c.store.clear(context.WithoutCancel(ctx), "", "", c.transport.ClearDefaultAuthHeader)
	log.Info(log.CatSession, "logged out")
	return err
}

// Invalidate clears the session locally without contacting the server. If
// credential is non-empty the session is only cleared while it still holds
// that credential, so a 401 for an old credential cannot end a newer
// session. It reports whether anything was cleared.
func (c *Controller) Invalidate(ctx context.Context, credential, reason string) (bool, error) {
	cleared, err := c.store.clear(context.WithoutCancel(ctx), credential, reason, c.transport.ClearDefaultAuthHeader)
	if cleared {
		log.Warn(log.CatSession, "session invalidated", "reason", reason)
	}
	return cleared, err
}

// Reload re-reads the persister, picking up a login or logout made by
// another process, and syncs the transport's default header. It is a no-op
// while a login or registration is in flight.
func (c *Controller) Reload(ctx context.Context) (Session, error) {
	before := c.store.Snapshot()
	sess, err := c.store.hydrate(ctx, func(next Session) {
		if next.Authenticated() {
			c.transport.SetDefaultAuthHeader(next.Credential)
		} else {
			c.transport.ClearDefaultAuthHeader()
		}
	})
	if err != nil {
		return sess, fmt.Errorf("reloading session: %w", err)
	}
	if sess.Credential != before.Credential {
		log.Info(log.CatSession, "session changed on disk", "authenticated", sess.Authenticated())
	}
	return sess, nil
}
