// Package deviceid generates and persists per-device identifiers. The id is a
// pseudo-random alphanumeric string used only to gate duplicate votes; it is
// practically unique, not cryptographically secure, and not tied to any
// account.
package deviceid

import (
	"context"
	"math/rand/v2"
	"strings"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLen    = 26
)

const storageKey = "deviceId"

// Store is the persistence boundary for the cached identifier.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Manager hands out the device's identifier, generating it once and returning
// the persisted value unchanged afterwards.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// DeviceID returns the persisted identifier, minting and storing a new one on
// first call.
func (m *Manager) DeviceID(ctx context.Context) (string, error) {
	if v, ok, err := m.store.Get(ctx, storageKey); err == nil && ok {
		return v, nil
	}
	id := Generate()
	if err := m.store.Set(ctx, storageKey, id); err != nil {
		return "", err
	}
	return id, nil
}

// Generate mints a fresh random alphanumeric identifier.
func Generate() string {
	var b strings.Builder
	b.Grow(idLen)
	for i := 0; i < idLen; i++ {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}
