package deviceid

import (
	"context"
	"testing"
)

type mapStore map[string]string

func (m mapStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapStore) Set(ctx context.Context, key, value string) error {
	m[key] = value
	return nil
}

func TestGenerate_Format(t *testing.T) {
	id := Generate()
	if len(id) != idLen {
		t.Fatalf("len(id) = %d, want %d", len(id), idLen)
	}
	for _, r := range id {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			t.Fatalf("id %q contains non-alphanumeric rune %q", id, r)
		}
	}
}

func TestGenerate_PracticallyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Fatalf("duplicate id %q after %d generations", id, i)
		}
		seen[id] = true
	}
}

func TestManager_StableAcrossCalls(t *testing.T) {
	m := NewManager(mapStore{})
	ctx := context.Background()

	first, err := m.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	second, err := m.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	if first != second {
		t.Errorf("DeviceID changed between calls: %q then %q", first, second)
	}
}

func TestManager_ReturnsPersistedValue(t *testing.T) {
	store := mapStore{storageKey: "existingdeviceid1234567890"}
	m := NewManager(store)

	id, err := m.DeviceID(context.Background())
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	if id != "existingdeviceid1234567890" {
		t.Errorf("DeviceID = %q, want the persisted value", id)
	}
}
