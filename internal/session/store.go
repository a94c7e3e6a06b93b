package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/zjrosen/taskdeck/internal/kv"
	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/pubsub"
)

// Store holds the current Session and mirrors it to a kv.Persister.
//
// Every attempt to change the session runs under a generation number taken
// from begin. clear and begin both advance the generation, so the result of
// an attempt that was overtaken (by logout or by a newer attempt) is dropped
// instead of written back.
type Store struct {
	// writeMu serializes writers, including their persister I/O.
	writeMu sync.Mutex

	mu         sync.RWMutex
	session    Session
	generation uint64

	persister kv.Persister
	broker    *pubsub.Broker[Session]
}

// NewStore creates an empty store over p. Call Hydrate to load durable
// state.
func NewStore(p kv.Persister) *Store {
	return &Store{
		session:   Session{Status: StatusIdle},
		persister: p,
		broker:    pubsub.NewBroker[Session](),
	}
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Credential returns the current bearer credential or "". It is the read
// accessor handed to the transport.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Credential
}

// Generation returns the current write generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Subscribe streams session changes until ctx is done.
func (s *Store) Subscribe(ctx context.Context) <-chan pubsub.Event[Session] {
	return s.broker.Subscribe(ctx)
}

// Close stops event delivery.
func (s *Store) Close() {
	s.broker.Close()
}

// Hydrate replaces the in-memory session with what the persister holds.
// It is skipped while an attempt is in flight.
func (s *Store) Hydrate(ctx context.Context) (Session, error) {
	return s.hydrate(ctx, nil)
}

func (s *Store) hydrate(ctx context.Context, onLoad func(Session)) (Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.Snapshot().Status == StatusLoading {
		return s.Snapshot(), nil
	}

	values := make(map[string]string, len(kv.SessionKeys))
	for _, key := range kv.SessionKeys {
		v, ok, err := s.persister.Get(ctx, key)
		if err != nil {
			return s.Snapshot(), fmt.Errorf("loading session %s: %w", key, err)
		}
		if ok {
			values[key] = v
		}
	}

	prev := s.Snapshot()
	next := Session{Status: StatusIdle}
	if cred := values[kv.KeyCredential]; cred != "" {
		next.Credential = cred
		next.Identity = values[kv.KeyIdentity]
		if role, ok := ParseRole(values[kv.KeyRole]); ok {
			next.Role = role
		}
		next.ExpiresAt = credentialExpiry(cred)
	}
	// Re-reading our own write must not reset the outcome of the attempt
	// that made it.
	if next.Credential == prev.Credential {
		next.Status = prev.Status
		next.LastError = prev.LastError
	}

	s.mu.Lock()
	s.session = next
	s.mu.Unlock()

	if onLoad != nil {
		onLoad(next)
	}
	log.Debug(log.CatSession, "session hydrated",
		"authenticated", next.Authenticated(), "identity", next.Identity, "role", next.Role)
	s.broker.Publish(pubsub.LoadedEvent, next)
	return next, nil
}

// begin starts an attempt and returns its generation.
func (s *Store) begin() uint64 {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.session.Status = StatusLoading
	s.session.LastError = ""
	snap := s.session
	s.mu.Unlock()

	s.broker.Publish(pubsub.LoadingEvent, snap)
	return gen
}

// current reports whether gen is still the live generation. Callers hold
// writeMu.
func (s *Store) current(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation == gen
}

// apply commits a successful attempt: persist, then publish the new session
// and run onCommit, all before another writer can run. It returns false
// when gen was overtaken.
func (s *Store) apply(ctx context.Context, gen uint64, next Session, onCommit func()) (Session, bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.current(gen) {
		log.Debug(log.CatSession, "dropping stale session result", "generation", gen)
		return s.Snapshot(), false, nil
	}

	// Every session key is written, "" standing for absent, so one batch
	// replaces the previous session and a failed write leaves it intact.
	values := map[string]string{
		kv.KeyCredential: next.Credential,
		kv.KeyIdentity:   next.Identity,
		kv.KeyRole:       string(next.Role),
	}
	if err := kv.SetMany(ctx, s.persister, values); err != nil {
		return s.Snapshot(), true, fmt.Errorf("persisting session: %w", err)
	}

	next.Status = StatusSucceeded
	next.LastError = ""
	if next.ExpiresAt.IsZero() {
		next.ExpiresAt = credentialExpiry(next.Credential)
	}

	s.mu.Lock()
	s.session = next
	s.mu.Unlock()

	if onCommit != nil {
		onCommit()
	}
	s.broker.Publish(pubsub.LoadedEvent, next)
	return next, true, nil
}

// settleUnauthenticated ends an attempt that succeeded without issuing a
// credential. Memory holds an empty succeeded session; durable state and
// the transport are left alone.
func (s *Store) settleUnauthenticated(gen uint64) (Session, bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.current(gen) {
		return s.Snapshot(), false
	}

	s.mu.Lock()
	s.session = Session{Status: StatusSucceeded}
	snap := s.session
	s.mu.Unlock()

	s.broker.Publish(pubsub.LoadedEvent, snap)
	return snap, true
}

// fail records a failed attempt. Durable state is not touched.
func (s *Store) fail(gen uint64, msg string) (Session, bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.current(gen) {
		return s.Snapshot(), false
	}

	s.mu.Lock()
	s.session.Status = StatusFailed
	s.session.LastError = msg
	snap := s.session
	s.mu.Unlock()

	s.broker.Publish(pubsub.FailedEvent, snap)
	return snap, true
}

// clear resets memory and durable state and advances the generation. The
// in-memory reset and onClear happen even if the persister fails. If only
// is non-empty, clear is skipped unless it is the current credential.
func (s *Store) clear(ctx context.Context, only string, lastError string, onClear func()) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if only != "" && s.session.Credential != only {
		s.mu.Unlock()
		return false, nil
	}
	s.generation++
	s.session = Session{Status: StatusIdle, LastError: lastError}
	snap := s.session
	s.mu.Unlock()

	if onClear != nil {
		onClear()
	}

	err := s.persister.Clear(ctx)
	if err != nil {
		err = fmt.Errorf("clearing persisted session: %w", err)
	}

	s.broker.Publish(pubsub.ClearedEvent, snap)
	return true, err
}
