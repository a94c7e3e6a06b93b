package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/taskdeck/internal/kv"
)

type failingPersister struct{ kv.Persister }

func (failingPersister) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}

func TestHydrate_EmptyPersisterIsUnauthenticated(t *testing.T) {
	s := NewStore(kv.NewMemory())
	t.Cleanup(s.Close)

	sess, err := s.Hydrate(context.Background())
	require.NoError(t, err)
	require.False(t, sess.Authenticated())
	require.Equal(t, StatusIdle, sess.Status)
	require.Empty(t, s.Credential())
}

func TestHydrate_RestoresPersistedFields(t *testing.T) {
	mem := kv.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, kv.KeyCredential, "tok"))
	require.NoError(t, mem.Set(ctx, kv.KeyIdentity, "u7"))
	require.NoError(t, mem.Set(ctx, kv.KeyRole, "admin"))

	s := NewStore(mem)
	t.Cleanup(s.Close)

	sess, err := s.Hydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok", sess.Credential)
	require.Equal(t, "u7", sess.Identity)
	require.True(t, sess.IsAdmin())
	require.Equal(t, "tok", s.Credential())
}

func TestHydrate_RoleWithoutCredentialIsIgnored(t *testing.T) {
	mem := kv.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, kv.KeyRole, "admin"))
	require.NoError(t, mem.Set(ctx, kv.KeyIdentity, "u7"))

	s := NewStore(mem)
	t.Cleanup(s.Close)

	sess, err := s.Hydrate(ctx)
	require.NoError(t, err)
	require.False(t, sess.Authenticated())
	require.Empty(t, sess.Role)
	require.False(t, sess.IsAdmin())
}

func TestHydrate_UnknownRoleLeftEmpty(t *testing.T) {
	mem := kv.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, kv.KeyCredential, "tok"))
	require.NoError(t, mem.Set(ctx, kv.KeyRole, "superuser"))

	s := NewStore(mem)
	t.Cleanup(s.Close)

	sess, err := s.Hydrate(ctx)
	require.NoError(t, err)
	require.True(t, sess.Authenticated())
	require.Empty(t, sess.Role)
}

func TestHydrate_PersisterErrorKeepsState(t *testing.T) {
	s := NewStore(failingPersister{kv.NewMemory()})
	t.Cleanup(s.Close)

	_, err := s.Hydrate(context.Background())
	require.ErrorContains(t, err, "disk gone")
	require.Equal(t, StatusIdle, s.Snapshot().Status)
}

func TestHydrate_SkippedWhileAttemptInFlight(t *testing.T) {
	mem := kv.NewMemory()
	s := NewStore(mem)
	t.Cleanup(s.Close)

	gen := s.begin()
	require.NoError(t, mem.Set(context.Background(), kv.KeyCredential, "other"))

	sess, err := s.Hydrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusLoading, sess.Status)
	require.Empty(t, sess.Credential)
	require.Equal(t, gen, s.Generation())
}

func TestClear_AdvancesGenerationAndDropsLateApply(t *testing.T) {
	mem := kv.NewMemory()
	s := NewStore(mem)
	t.Cleanup(s.Close)
	ctx := context.Background()

	gen := s.begin()
	cleared, err := s.clear(ctx, "", "", nil)
	require.NoError(t, err)
	require.True(t, cleared)
	require.Greater(t, s.Generation(), gen)

	_, live, err := s.apply(ctx, gen, Session{Credential: "late"}, func() {
		t.Fatal("onCommit must not run for a stale generation")
	})
	require.NoError(t, err)
	require.False(t, live)
	require.False(t, s.Snapshot().Authenticated())

	_, ok, err := mem.Get(ctx, kv.KeyCredential)
	require.NoError(t, err)
	require.False(t, ok)
}
