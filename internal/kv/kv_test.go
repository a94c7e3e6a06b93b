package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, KeyCredential)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Set(ctx, KeyCredential, "tok"))
	v, ok, err := m.Get(ctx, KeyCredential)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok", v)

	require.NoError(t, m.Clear(ctx))
	_, ok, _ = m.Get(ctx, KeyCredential)
	require.False(t, ok)
}

func TestSetMany_UsesBatchSetter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, SetMany(ctx, m, map[string]string{KeyCredential: "tok", KeyRole: "admin"}))

	v, ok, _ := m.Get(ctx, KeyRole)
	require.True(t, ok)
	require.Equal(t, "admin", v)
	_, ok, _ = m.Get(ctx, KeyIdentity)
	require.False(t, ok)
}

type recordingPersister struct {
	order []string
	data  map[string]string
	fail  string
}

func (r *recordingPersister) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := r.data[key]
	return v, ok, nil
}

func (r *recordingPersister) Set(_ context.Context, key, value string) error {
	if key == r.fail {
		return errors.New("write failed")
	}
	r.order = append(r.order, key)
	r.data[key] = value
	return nil
}

func (r *recordingPersister) Clear(context.Context) error {
	r.data = map[string]string{}
	return nil
}

func TestSetMany_FallbackWritesSessionKeysInOrder(t *testing.T) {
	p := &recordingPersister{data: map[string]string{}}

	err := SetMany(context.Background(), p, map[string]string{
		KeyRole:       "user",
		KeyCredential: "tok",
		KeyIdentity:   "u1",
	})
	require.NoError(t, err)
	require.Equal(t, []string{KeyCredential, KeyIdentity, KeyRole}, p.order)
}

func TestSetMany_FallbackStopsOnError(t *testing.T) {
	p := &recordingPersister{data: map[string]string{}, fail: KeyIdentity}

	err := SetMany(context.Background(), p, map[string]string{KeyCredential: "tok", KeyIdentity: "u1", KeyRole: "user"})
	require.Error(t, err)
	require.Equal(t, []string{KeyCredential}, p.order)
}
