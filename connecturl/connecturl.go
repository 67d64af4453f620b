// Package connecturl builds outbound connection URLs for servers that speak
// the config-in-query protocol: an optional configuration object is
// serialized to compact JSON, base64-encoded, and placed under the reserved
// "config" query key, alongside optional "api_key" and "profile" keys.
// Building is pure; nothing here inspects or validates the config shape.
package connecturl

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
)

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	apiKey  string
	profile string
	config  map[string]any
}

// WithAPIKey sets the api_key query parameter, replacing any prior value.
func WithAPIKey(key string) Option {
	return func(c *buildConfig) { c.apiKey = key }
}

// WithProfile sets the profile query parameter, replacing any prior value.
func WithProfile(profile string) Option {
	return func(c *buildConfig) { c.profile = profile }
}

// WithConfig sets the configuration object encoded under the config query
// parameter, replacing any prior value. Any JSON-serializable mapping is
// accepted; the server decides whether it conforms to a schema.
func WithConfig(config map[string]any) Option {
	return func(c *buildConfig) { c.config = config }
}

// Build returns baseURL with the requested reserved query parameters set.
// Existing query parameters on the base URL are preserved except where a
// reserved key is overwritten by an option.
func Build(baseURL string, opts ...Option) (string, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	q := u.Query()
	if cfg.config != nil {
		b, err := json.Marshal(cfg.config)
		if err != nil {
			return "", fmt.Errorf("serialize config: %w", err)
		}
		q.Set("config", base64.StdEncoding.EncodeToString(b))
	}
	if cfg.apiKey != "" {
		q.Set("api_key", cfg.apiKey)
	}
	if cfg.profile != "" {
		q.Set("profile", cfg.profile)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
