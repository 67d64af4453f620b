// Package configresolve turns an inbound request's query string into a
// resolved session configuration. The caller's configuration travels two
// ways at once: a base64-encoded JSON object under the reserved "config"
// key, and individual dot/bracket-notation overrides ("server.port=8080",
// "server[port]=8080") in every other key. Overrides are deep-merged on top
// of the decoded payload and the result is optionally validated against a
// schema. Every failure mode maps to a problem.Details value; nothing
// escapes as an error.
package configresolve

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/mcpkit/stateful-go/configschema"
	"github.com/mcpkit/stateful-go/problem"
)

// Reserved query keys, excluded from dot/bracket override parsing. Matching
// is case-sensitive.
const (
	PayloadKey = "config"
	APIKeyKey  = "api_key"
	ProfileKey = "profile"
)

func isReserved(key string) bool {
	return key == PayloadKey || key == APIKeyKey || key == ProfileKey
}

// Resolve parses and optionally validates the configuration carried by the
// given query parameters. path becomes the problem's instance on failure.
// Passing a nil schema skips validation and returns the merged mapping
// as-is.
func Resolve(query url.Values, path string, schema *configschema.Schema) (map[string]any, *problem.Details) {
	cfg := map[string]any{}

	if raw := query.Get(PayloadKey); raw != "" {
		decoded, err := decodePayload(raw)
		if err != nil {
			p := &problem.Details{
				Title:    "Invalid config encoding",
				Status:   400,
				Detail:   "The 'config' query parameter must be a base64-encoded JSON object.",
				Instance: path,
				Errors: []problem.FieldError{{
					Param:    PayloadKey,
					Pointer:  PayloadKey,
					Reason:   err.Error(),
					Received: problem.Truncate(raw),
				}},
			}
			if schema != nil {
				p.ConfigSchema = schema.Document()
			}
			return nil, p
		}
		cfg = decoded
	}

	deepMerge(cfg, parseOverrides(query))

	if schema == nil {
		return cfg, nil
	}

	if fieldErrs := schema.Validate(cfg); fieldErrs != nil {
		return nil, &problem.Details{
			Title:        "Invalid configuration",
			Status:       422,
			Detail:       "Configuration failed schema validation.",
			Instance:     path,
			ConfigSchema: schema.Document(),
			Errors:       fieldErrs,
		}
	}
	return cfg, nil
}

// decodePayload base64-decodes the payload key and requires the content to
// be a JSON object.
func decodePayload(raw string) (map[string]any, error) {
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

type payloadError string

func (e payloadError) Error() string { return string(e) }

const errNotObject = payloadError("decoded config is not a JSON object")

// parseOverrides builds a nested mapping from all non-reserved query keys.
// Keys are processed in sorted order so conflicting paths (a=1 vs a.b=2)
// resolve the same way on every request; within one key, the last supplied
// value wins.
func parseOverrides(query url.Values) map[string]any {
	keys := make([]string, 0, len(query))
	for key := range query {
		if isReserved(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := map[string]any{}
	for _, key := range keys {
		vals := query[key]
		if len(vals) == 0 {
			continue
		}
		dotted := bracketsToDots(key)
		if dotted == "" {
			continue
		}
		setNested(result, strings.Split(dotted, "."), vals[len(vals)-1])
	}
	return result
}

// bracketsToDots rewrites bracket-style keys (a[b][c]) into dot style
// (a.b.c). The scan is deliberately lenient: stray closing brackets are
// skipped and empty segments dropped rather than rejecting the key.
func bracketsToDots(key string) string {
	var segs []string
	var buf strings.Builder
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '[':
			if buf.Len() > 0 {
				segs = append(segs, buf.String())
				buf.Reset()
			}
			j := i + 1
			for j < len(key) && key[j] != ']' {
				j++
			}
			segs = append(segs, key[i+1:j])
			i = j
		case ']':
			// stray closer
		default:
			buf.WriteByte(key[i])
		}
	}
	if buf.Len() > 0 {
		segs = append(segs, buf.String())
	}
	kept := segs[:0]
	for _, s := range segs {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ".")
}

// setNested writes value at the given path, creating intermediate maps and
// overwriting any non-map value found along the way.
func setNested(target map[string]any, path []string, value any) {
	cur := target
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

// deepMerge merges override into base in place. Nested maps merge key by
// key; any other collision is won by the override value outright.
func deepMerge(base map[string]any, override map[string]any) {
	for k, v := range override {
		if bm, ok := base[k].(map[string]any); ok {
			if vm, ok := v.(map[string]any); ok {
				deepMerge(bm, vm)
				continue
			}
		}
		base[k] = v
	}
}
