// Package problem defines the structured error payload returned by every
// failure path in the configuration and session protocol. Failures are
// values, not panics: resolvers and handlers construct a Details and hand it
// back (or write it) instead of erroring across the boundary.
package problem

import (
	"encoding/json"
	"net/http"
)

// FieldError describes a single offending field within a rejected
// configuration. Pointer and Param both carry the dot-joined location of the
// field; Received holds the raw value the caller sent, truncated if large.
type FieldError struct {
	Param    string `json:"param"`
	Pointer  string `json:"pointer"`
	Reason   string `json:"reason"`
	Received any    `json:"received"`
}

// Details is the canonical error body. Status doubles as the HTTP status
// code of the response carrying it. ConfigSchema, when present, is the
// machine-readable schema the configuration was checked against; it is
// included on every schema-aware failure, encoding errors included.
type Details struct {
	Title        string          `json:"title"`
	Status       int             `json:"status"`
	Detail       string          `json:"detail"`
	Instance     string          `json:"instance"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
	Errors       []FieldError    `json:"errors,omitempty"`
}

// Error implements the error interface so clients can surface a Details
// received over the wire as a plain Go error.
func (d *Details) Error() string {
	if d.Detail == "" {
		return d.Title
	}
	return d.Title + ": " + d.Detail
}

// Write serializes d as the response body using d.Status. Safe to call once
// per response; headers must not have been written yet.
func Write(w http.ResponseWriter, d *Details) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}

// maxReceivedLen bounds the echoed raw value in FieldError.Received.
const maxReceivedLen = 64

// Truncate caps string values at maxReceivedLen runes, marking the cut with
// an ellipsis. Non-string values pass through untouched.
func Truncate(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	r := []rune(s)
	if len(r) <= maxReceivedLen {
		return s
	}
	return string(r[:maxReceivedLen]) + "..."
}
