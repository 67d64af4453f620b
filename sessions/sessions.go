// Package sessions defines the domain contracts for per-connection state:
// the Session value, the caller-supplied Factory that produces a session's
// handler, and the Store interface bounding how many sessions a process
// retains. Concrete stores live in sub-packages so higher layers depend only
// on the interface.
package sessions

import (
	"context"
	"time"
)

// Session is the server-side state bound to one logical connection. Identity
// and config are fixed for the session's lifetime; only store-managed
// recency changes after creation.
type Session struct {
	// ID is the opaque unique session identifier.
	ID string

	// Config is the resolved configuration captured at creation.
	Config map[string]any

	// Handler is the opaque object produced by the Factory. If it
	// implements io.Closer, termination invokes Close best-effort.
	Handler any

	CreatedAt time.Time
}

// Factory produces the per-session handler from the session identifier and
// its resolved configuration. It runs synchronously during session creation
// and may fail; a failure aborts creation without touching the store.
type Factory func(ctx context.Context, sessionID string, config map[string]any) (any, error)

// Store is a capacity-bounded mapping from session identifier to session.
// Implementations must be safe for concurrent use and must uphold
// size <= capacity at all times.
type Store interface {
	// Get returns the session and promotes it to most-recently-used.
	Get(id string) (*Session, bool)

	// Set inserts or replaces a session. Inserting a new id at capacity
	// evicts the least-recently-used entry first.
	Set(id string, s *Session)

	// Delete removes the session; no-op if absent.
	Delete(id string)

	// Contains reports presence without affecting recency.
	Contains(id string) bool

	// Len reports the current number of stored sessions.
	Len() int
}
