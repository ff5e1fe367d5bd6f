package model

import "context"

// SessionStore maps a session id to its last persisted state.
type SessionStore interface {
	// Get returns a private copy of the session state, creating an empty one on a miss.
	Get(ctx context.Context, sessionID string) (*ConversationState, error)

	// Put replaces the stored snapshot (last writer wins).
	Put(ctx context.Context, sessionID string, state *ConversationState) error
}

// Locker serializes work per key.
type Locker interface {
	// Lock blocks until key is free or ctx is done; the returned func releases it.
	Lock(ctx context.Context, key string) (func(), error)
}
