package repo

import (
	"context"
	"sync"

	"github.com/astroguru-core/server/internal/agent/model"
)

// MemorySessionStore keeps one snapshot per session for the lifetime of the process.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.ConversationState
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]*model.ConversationState{}}
}

func (m *MemorySessionStore) Get(_ context.Context, sessionID string) (*model.ConversationState, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return model.NewConversationState(sessionID), nil
	}
	return s.Clone(), nil
}

func (m *MemorySessionStore) Put(_ context.Context, sessionID string, state *model.ConversationState) error {
	snap := state.Clone()
	snap.SessionID = sessionID
	snap.Pending = model.Transition{}
	snap.Visited = nil

	m.mu.Lock()
	m.sessions[sessionID] = snap
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var _ model.SessionStore = (*MemorySessionStore)(nil)
