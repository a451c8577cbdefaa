package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/magefree/mage-duel-server/internal/game"
)

type memoryRow struct {
	data    []byte
	version int64
}

// MemoryStore keeps encoded sessions in process memory. Sessions are stored
// in their wire form so callers never share pointers with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]memoryRow
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]memoryRow)}
}

// Create implements SessionStore.
func (m *MemoryStore) Create(ctx context.Context, s *game.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := game.EncodeSession(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, s.ID)
	}
	m.rows[s.ID] = memoryRow{data: data, version: 1}
	s.Version = 1
	return nil
}

// Load implements SessionStore.
func (m *MemoryStore) Load(ctx context.Context, id string) (*game.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	row, ok := m.rows[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s, err := game.DecodeSession(row.data)
	if err != nil {
		return nil, err
	}
	s.Version = row.version
	return s, nil
}

// Save implements SessionStore.
func (m *MemoryStore) Save(ctx context.Context, s *game.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := game.EncodeSession(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[s.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
	}
	if row.version != s.Version {
		return fmt.Errorf("%w: %s at version %d, have %d", ErrConflict, s.ID, row.version, s.Version)
	}
	m.rows[s.ID] = memoryRow{data: data, version: row.version + 1}
	s.Version = row.version + 1
	return nil
}

// Ping implements SessionStore.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements SessionStore.
func (m *MemoryStore) Close() error {
	return nil
}
