package statefulhttp

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds process-level settings for a server wiring this handler.
// Defaults can be loaded via envdecode.
type Config struct {
	// ListenAddr like ":8080". ENV: LISTEN_ADDR
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`
	// SessionCapacity bounds the session store. ENV: SESSION_CAPACITY
	SessionCapacity int `env:"SESSION_CAPACITY,default=100"`
	// HeartbeatInterval between ping events. ENV: HEARTBEAT_INTERVAL
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=10s"`
	// SchemaFile optionally points at a JSON Schema document for session
	// config. ENV: CONFIG_SCHEMA_FILE
	SchemaFile string `env:"CONFIG_SCHEMA_FILE"`
}

// ConfigFromEnv populates a Config from the environment, applying the
// struct-tag defaults for anything unset.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return cfg, fmt.Errorf("decode env config: %w", err)
	}
	return cfg, nil
}
