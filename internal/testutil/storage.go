// Package testutil holds in-process stand-ins for the portal's collaborators.
package testutil

import (
	"context"
	"sync"

	"github.com/projecthub/portal/internal/core/ports"
)

// MemoryStorage is an in-memory ports.SessionStorage. The error fields make
// the matching operation fail. Gate, when set, blocks Get until it is closed;
// Waiting, when set, receives once per Get that is blocked on Gate.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]ports.StoredSession

	GetErr    error
	PutErr    error
	DeleteErr error
	Gate      chan struct{}
	Waiting   chan struct{}

	Puts    int
	Deletes int
}

var _ ports.SessionStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]ports.StoredSession)}
}

// FailGets makes every later Get return err. Safe to call while a server is
// using the storage.
func (m *MemoryStorage) FailGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetErr = err
}

func (m *MemoryStorage) Get(ctx context.Context, sessionID string) (ports.StoredSession, error) {
	m.mu.Lock()
	st, ok := m.data[sessionID]
	err := m.GetErr
	gate, waiting := m.Gate, m.Waiting
	m.mu.Unlock()

	// The value is read before the gate so a gated Get returns what storage
	// held when the read started.
	if gate != nil {
		if waiting != nil {
			waiting <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return ports.StoredSession{}, ctx.Err()
		}
	}

	if err != nil {
		return ports.StoredSession{}, err
	}
	if !ok {
		return ports.StoredSession{}, ports.ErrNoSession
	}
	return st, nil
}

func (m *MemoryStorage) Put(_ context.Context, sessionID string, st ports.StoredSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.data[sessionID] = st
	m.Puts++
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.data, sessionID)
	m.Deletes++
	return nil
}

// Raw returns what is stored for sessionID, bypassing the error fields.
func (m *MemoryStorage) Raw(sessionID string) (ports.StoredSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.data[sessionID]
	return st, ok
}

// SetRaw writes a stored session directly.
func (m *MemoryStorage) SetRaw(sessionID string, st ports.StoredSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = st
}
