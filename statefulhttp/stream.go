package statefulhttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// lockedWriteFlusher wraps an io.Writer + http.Flusher with a mutex and a
// context. It serializes concurrent writes/flushes and avoids writing after
// ctx is canceled.
type lockedWriteFlusher struct {
	w   io.Writer
	f   http.Flusher
	mu  sync.Mutex
	ctx context.Context
}

func (l *lockedWriteFlusher) Write(p []byte) (int, error) {
	if l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Re-check after acquiring the lock to minimize races with cancellation
	if l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	return l.w.Write(p)
}

func (l *lockedWriteFlusher) Flush() {
	if l.ctx.Err() != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		return
	}
	l.f.Flush()
}

// streamEvents runs the per-session event stream: an immediate ready event
// carrying the session identifier, then a ping at every heartbeat interval.
// The stream never ends on its own; it returns only when ctx is done (peer
// disconnect or shutdown) or a write fails. It never touches the session
// store, so a dropped stream leaves the session available for reattachment.
func streamEvents(ctx context.Context, wf *lockedWriteFlusher, sessionID string, heartbeat time.Duration) {
	if err := writeSSEEvent(wf, "ready", sessionID); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeSSEEvent(wf, "ping", sessionID); err != nil {
				return
			}
		}
	}
}

// writeSSEEvent writes a single Server-Sent Event frame with the given event
// name and data, flushing the response afterwards.
func writeSSEEvent(wf *lockedWriteFlusher, event, data string) error {
	if _, err := fmt.Fprintf(wf, "event: %s\n", event); err != nil {
		return fmt.Errorf("failed to write SSE event name: %w", err)
	}
	if _, err := fmt.Fprintf(wf, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE data: %w", err)
	}
	wf.Flush()
	return nil
}
