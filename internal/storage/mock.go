package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storyweave/adventure/pkg/state"
)

// MockSaveStore is an in-memory SaveStore for testing. Snapshots are
// stored serialized, so save/load round-trips exercise the same
// marshaling path as the real store.
type MockSaveStore struct {
	mu    sync.Mutex
	saves map[uuid.UUID][]byte

	// Optional failure injection
	SaveErr error
	LoadErr error
}

var _ SaveStore = (*MockSaveStore)(nil)

func NewMockSaveStore() *MockSaveStore {
	return &MockSaveStore{
		saves: make(map[uuid.UUID][]byte),
	}
}

func (m *MockSaveStore) Ping(ctx context.Context) error              { return nil }
func (m *MockSaveStore) Close() error                                { return nil }
func (m *MockSaveStore) WaitForConnection(ctx context.Context) error { return nil }

func (m *MockSaveStore) SaveSnapshot(ctx context.Context, id uuid.UUID, snap *state.Snapshot) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	snap.SavedAt = time.Now()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[id] = data
	return nil
}

func (m *MockSaveStore) LoadSnapshot(ctx context.Context, id uuid.UUID) (*state.Snapshot, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.saves[id]
	if !ok {
		return nil, nil
	}
	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		delete(m.saves, id)
		return nil, nil
	}
	return &snap, nil
}

func (m *MockSaveStore) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saves, id)
	return nil
}

// Corrupt overwrites a stored snapshot with invalid JSON, for tests of
// the corrupt-save path.
func (m *MockSaveStore) Corrupt(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[id] = []byte("{not json")
}

// Has reports whether a save exists for the ID.
func (m *MockSaveStore) Has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.saves[id]
	return ok
}
