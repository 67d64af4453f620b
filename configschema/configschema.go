// Package configschema models the optional schema a server declares for its
// session configuration. A Schema carries two faces of the same document:
// the raw JSON served from the discovery endpoint, and a compiled validator
// used by the resolver to produce per-field errors.
package configschema

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	schemav5 "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mcpkit/stateful-go/problem"
)

// Schema is an immutable, compiled configuration schema.
type Schema struct {
	doc      json.RawMessage
	compiled *schemav5.Schema
}

// FromDocument compiles a raw JSON Schema document. The document is retained
// verbatim for discovery and error reporting.
func FromDocument(doc []byte) (*Schema, error) {
	compiled, err := schemav5.CompileString("config.json", string(doc))
	if err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	return &Schema{doc: append(json.RawMessage(nil), doc...), compiled: compiled}, nil
}

// FromStruct derives the schema document from a tagged Go struct and
// compiles it. Field names come from json tags; constraints come from
// jsonschema tags. The struct is reflected inline with no $ref indirection
// so the served document is self-contained.
func FromStruct(v any) (*Schema, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.Reflect(v)
	doc, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal reflected schema: %w", err)
	}
	return FromDocument(doc)
}

// FromFile reads and compiles a schema document from disk.
func FromFile(path string) (*Schema, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config schema %q: %w", path, err)
	}
	return FromDocument(doc)
}

// Document returns the raw schema document.
func (s *Schema) Document() json.RawMessage {
	return s.doc
}

// Validate checks a decoded JSON value against the schema. A nil return
// means the value conforms. Otherwise each leaf cause of the validator maps
// one-to-one to a FieldError: the dot-joined instance location, the
// validator's message, and the offending value read back from the instance.
func (s *Schema) Validate(v any) []problem.FieldError {
	err := s.compiled.Validate(v)
	if err == nil {
		return nil
	}
	ve, ok := err.(*schemav5.ValidationError)
	if !ok {
		return []problem.FieldError{{Reason: err.Error()}}
	}
	var errs []problem.FieldError
	collectLeaves(ve, v, &errs)
	if len(errs) == 0 {
		errs = append(errs, problem.FieldError{
			Pointer:  pointerToDots(ve.InstanceLocation),
			Param:    pointerToDots(ve.InstanceLocation),
			Reason:   ve.Message,
			Received: problem.Truncate(valueAt(v, ve.InstanceLocation)),
		})
	}
	return errs
}

func collectLeaves(ve *schemav5.ValidationError, instance any, out *[]problem.FieldError) {
	if len(ve.Causes) == 0 {
		dots := pointerToDots(ve.InstanceLocation)
		*out = append(*out, problem.FieldError{
			Param:    dots,
			Pointer:  dots,
			Reason:   ve.Message,
			Received: problem.Truncate(valueAt(instance, ve.InstanceLocation)),
		})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, instance, out)
	}
}

// pointerToDots converts a JSON pointer ("/server/port") into the dot-joined
// location ("server.port") used by FieldError, unescaping ~1 and ~0.
func pointerToDots(ptr string) string {
	segs := pointerSegments(ptr)
	return strings.Join(segs, ".")
}

func pointerSegments(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	segs := strings.Split(ptr, "/")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~1", "/")
		s = strings.ReplaceAll(s, "~0", "~")
		segs[i] = s
	}
	return segs
}

// valueAt walks the instance along a JSON pointer, best-effort. Returns nil
// when the path does not resolve (e.g. a missing required property).
func valueAt(v any, ptr string) any {
	cur := v
	for _, seg := range pointerSegments(ptr) {
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[seg]
			if !ok {
				return nil
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil
			}
			cur = c[idx]
		default:
			return nil
		}
	}
	return cur
}
