package statefulhttp

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mcpkit/stateful-go/configschema"
	"github.com/mcpkit/stateful-go/sessions"
)

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	serverName string
	endpoint   string
	logger     *slog.Logger
	store      sessions.Store
	schema     *configschema.Schema
	heartbeat  time.Duration
}

// WithServerName sets a human-readable name surfaced as the title of the
// default (schema-less) discovery document.
func WithServerName(name string) Option {
	return func(c *newConfig) { c.serverName = name }
}

// WithEndpoint sets the path the session endpoints are served under.
// Defaults to "/mcp".
func WithEndpoint(path string) Option {
	return func(c *newConfig) { c.endpoint = strings.TrimSpace(path) }
}

// WithLogger sets the slog logger used by the handler. If not provided,
// slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithSessionStore injects the session store. Defaults to an in-memory LRU
// store with the default capacity.
func WithSessionStore(store sessions.Store) Option {
	return func(c *newConfig) { c.store = store }
}

// WithSchema declares the configuration schema. Inbound configuration is
// validated against it and the discovery endpoint serves its document.
func WithSchema(schema *configschema.Schema) Option {
	return func(c *newConfig) { c.schema = schema }
}

// WithHeartbeatInterval sets the cadence of ping events on the event
// stream. Defaults to 10 seconds.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *newConfig) { c.heartbeat = d }
}
