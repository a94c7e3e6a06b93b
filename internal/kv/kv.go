// Package kv defines the durable key/value capability the session store
// persists through, plus a non-durable in-memory backend.
package kv

import (
	"context"
)

// Session keys.
const (
	KeyCredential = "credential"
	KeyIdentity   = "identity"
	KeyRole       = "role"
)

// SessionKeys lists every key a session writes, in a stable order.
var SessionKeys = []string{KeyCredential, KeyIdentity, KeyRole}

// Persister is a synchronous key/value store that survives process restart.
type Persister interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
}

// BatchSetter is implemented by persisters that can write several keys
// atomically.
type BatchSetter interface {
	SetMany(ctx context.Context, values map[string]string) error
}

// SetMany writes values through p, atomically when p supports it.
func SetMany(ctx context.Context, p Persister, values map[string]string) error {
	if b, ok := p.(BatchSetter); ok {
		return b.SetMany(ctx, values)
	}
	for _, key := range SessionKeys {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := p.Set(ctx, key, v); err != nil {
			return err
		}
	}
	for key, v := range values {
		if isSessionKey(key) {
			continue
		}
		if err := p.Set(ctx, key, v); err != nil {
			return err
		}
	}
	return nil
}

func isSessionKey(key string) bool {
	for _, k := range SessionKeys {
		if k == key {
			return true
		}
	}
	return false
}
