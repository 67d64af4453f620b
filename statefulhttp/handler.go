// Package statefulhttp serves the stateful session protocol over HTTP: a
// client creates a session by POSTing its configuration encoded in the
// query string, attaches to a server-push event stream with GET, and
// terminates the session with DELETE. The configuration schema, when one is
// declared, is discoverable under /.well-known/mcp-config.
package statefulhttp

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/mcpkit/stateful-go/configresolve"
	"github.com/mcpkit/stateful-go/configschema"
	"github.com/mcpkit/stateful-go/internal/logctx"
	"github.com/mcpkit/stateful-go/problem"
	"github.com/mcpkit/stateful-go/sessions"
	"github.com/mcpkit/stateful-go/sessions/memory"
)

var _ http.Handler = (*Handler)(nil)

var (
	eventStreamMediaType  = contenttype.NewMediaType("text/event-stream")
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
)

const (
	// Use canonical header names for clarity; Go matches headers case-insensitively.
	sessionIDHeader       = "Mcp-Session-Id"
	protocolVersionHeader = "X-Mcp-Version"
	queryStyleHeader      = "X-Query-Style"

	protocolVersion = "1.0"
	queryStyle      = "dot+bracket"

	wellKnownConfigPath = "/.well-known/mcp-config"

	defaultHeartbeat = 10 * time.Second
	defaultEndpoint  = "/mcp"
)

// Handler implements the stateful session protocol over HTTP.
type Handler struct {
	mux        *http.ServeMux
	log        *slog.Logger
	store      sessions.Store
	factory    sessions.Factory
	schema     *configschema.Schema
	heartbeat  time.Duration
	serverName string
	endpoint   string
}

// New constructs a Handler around the caller-supplied session factory. The
// factory is invoked once per successful create with the session identifier
// and its resolved configuration; the object it returns is stored opaquely
// and, if it implements io.Closer, closed best-effort on terminate.
func New(factory sessions.Factory, opts ...Option) (*Handler, error) {
	if factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}

	cfg := &newConfig{logger: slog.Default(), heartbeat: defaultHeartbeat, endpoint: defaultEndpoint}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.endpoint == "" || !strings.HasPrefix(cfg.endpoint, "/") {
		return nil, fmt.Errorf("endpoint must be an absolute path, got %q", cfg.endpoint)
	}
	if cfg.heartbeat <= 0 {
		return nil, fmt.Errorf("heartbeat interval must be positive, got %s", cfg.heartbeat)
	}
	if cfg.store == nil {
		store, err := memory.New(memory.DefaultCapacity)
		if err != nil {
			return nil, fmt.Errorf("create default session store: %w", err)
		}
		cfg.store = store
	}

	h := &Handler{
		log:        slog.New(logctx.Handler{Handler: cfg.logger.Handler()}),
		store:      cfg.store,
		factory:    factory,
		schema:     cfg.schema,
		heartbeat:  cfg.heartbeat,
		serverName: cfg.serverName,
		endpoint:   cfg.endpoint,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("GET %s", wellKnownConfigPath), h.handleGetConfigSchema)
	mux.HandleFunc(fmt.Sprintf("POST %s", cfg.endpoint), h.handlePostMCP)
	mux.HandleFunc(fmt.Sprintf("GET %s", cfg.endpoint), h.handleGetMCP)
	mux.HandleFunc(fmt.Sprintf("DELETE %s", cfg.endpoint), h.handleDeleteMCP)
	h.mux = mux
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// handleGetConfigSchema serves the declared configuration schema, or an
// empty object schema when none was configured, with the discovery headers
// clients use to learn the protocol version and query-override style.
func (h *Handler) handleGetConfigSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json; charset=utf-8")
	w.Header().Set(protocolVersionHeader, protocolVersion)
	w.Header().Set(queryStyleHeader, queryStyle)

	if h.schema != nil {
		_, _ = w.Write(h.schema.Document())
		return
	}

	title := h.serverName
	if title == "" {
		title = "Server Config"
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":       "object",
		"title":      title,
		"properties": map[string]any{},
	})
}

// handlePostMCP creates a session (or recreates one under a caller-supplied
// identifier) from the configuration carried in the query string.
func (h *Handler) handlePostMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	cfg, prob := configresolve.Resolve(r.URL.Query(), r.URL.Path, h.schema)
	if prob != nil {
		problem.Write(w, prob)
		h.log.InfoContext(ctx, "config.resolve.fail", slog.Int("status", prob.Status), slog.String("title", prob.Title))
		return
	}

	sessID := r.Header.Get(sessionIDHeader)
	if sessID == "" {
		sessID = uuid.NewString()
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sessID})

	handler, err := h.factory(ctx, sessID, cfg)
	if err != nil {
		problem.Write(w, &problem.Details{
			Title:    "Session initialization failed",
			Status:   http.StatusInternalServerError,
			Detail:   err.Error(),
			Instance: r.URL.Path,
		})
		h.log.ErrorContext(ctx, "session.create.fail", slog.String("err", err.Error()))
		return
	}

	if c, ok := h.store.(interface{ Capacity() int }); ok {
		if h.store.Len() >= c.Capacity() && !h.store.Contains(sessID) {
			// Insertion below silently evicts the LRU session without running
			// its termination hook; surface that for operators.
			h.log.WarnContext(ctx, "session.store.pressure", slog.Int("len", h.store.Len()))
		}
	}
	h.store.Set(sessID, &sessions.Session{
		ID:        sessID,
		Config:    cfg,
		Handler:   handler,
		CreatedAt: time.Now(),
	})

	w.Header().Set(sessionIDHeader, sessID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"sessionId": sessID})
	h.log.InfoContext(ctx, "session.create.ok", slog.Duration("dur", time.Since(start)))
}

// handleGetMCP attaches an event stream to an existing session. The stream
// emits a ready event, then heartbeats until the client disconnects; a
// disconnect leaves the session in the store for reattachment.
func (h *Handler) handleGetMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.get.start")

	if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		h.log.WarnContext(ctx, "accept.unsupported", slog.String("accept", r.Header.Get("Accept")))
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.ErrorContext(ctx, "sse.flusher.missing")
		return
	}

	sess, prob := h.requireSession(r)
	if prob != nil {
		problem.Write(w, prob)
		h.log.InfoContext(ctx, "session.require.fail", slog.Int("status", prob.Status))
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sess.ID})

	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	wf := &lockedWriteFlusher{w: w, f: f, ctx: ctx}
	wf.Flush()

	h.log.InfoContext(ctx, "sse.stream.start")
	streamEvents(ctx, wf, sess.ID, h.heartbeat)
	h.log.InfoContext(ctx, "sse.stream.end", slog.Duration("dur", time.Since(start)))
}

// handleDeleteMCP terminates an existing session: the handler's termination
// hook runs best-effort, then the session is removed unconditionally.
func (h *Handler) handleDeleteMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.delete.start")

	sess, prob := h.requireSession(r)
	if prob != nil {
		problem.Write(w, prob)
		h.log.InfoContext(ctx, "session.require.fail", slog.Int("status", prob.Status))
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sess.ID})

	if closer, ok := sess.Handler.(io.Closer); ok {
		// Termination must still free the slot, so a failing hook is
		// logged and discarded.
		if err := closer.Close(); err != nil {
			h.log.WarnContext(ctx, "session.handler.close.fail", slog.String("err", err.Error()))
		}
	}
	h.store.Delete(sess.ID)

	w.WriteHeader(http.StatusNoContent)
	h.log.InfoContext(ctx, "session.delete.ok", slog.Duration("dur", time.Since(start)))
}

// requireSession is the shared precondition for attach and terminate: the
// session header must be present and name a stored session. A hit counts as
// a store access and promotes the entry's recency.
func (h *Handler) requireSession(r *http.Request) (*sessions.Session, *problem.Details) {
	sessID := r.Header.Get(sessionIDHeader)
	if sessID == "" {
		return nil, &problem.Details{
			Title:    "Missing session header",
			Status:   http.StatusBadRequest,
			Detail:   fmt.Sprintf("Header %q is required.", sessionIDHeader),
			Instance: r.URL.Path,
		}
	}
	sess, ok := h.store.Get(sessID)
	if !ok {
		return nil, &problem.Details{
			Title:    "Session not found",
			Status:   http.StatusNotFound,
			Detail:   "The specified session was not found or has expired.",
			Instance: r.URL.Path,
		}
	}
	return sess, nil
}
