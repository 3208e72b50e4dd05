// Package definition provides the four named, reusable definitions a route
// may reference: Schema, Response, RequestBody and Headers.
//
// Definitions are built in two phases. The fluent mutators record raw input;
// the first call to the canonical accessor (SchemaShape, ResponseShape,
// RequestBodyShape or HeadersShape) normalizes that input and seals the
// definition. Mutating a sealed definition panics.
//
//	user := definition.NewSchema("User").
//	    Describe("A registered user").
//	    Property("id", map[string]any{"type": "uuid", "required": true}).
//	    Property("name", "string")
//
//	resp := definition.NewResponse("UserResponse").
//	    Describe("The requested user").
//	    Content("application/json", user)
//
// The pointer returned by a constructor is the definition's identity: two
// routes reference the same definition only when they hold the same pointer.
package definition

import (
	"fmt"
	"sync"

	"github.com/vitalvas/refdoc/field"
)

// SchemaDefinition is implemented by definitions that render as a schema.
type SchemaDefinition interface {
	field.Definition
	SchemaShape() (*SchemaShape, error)
}

// ResponseDefinition is implemented by definitions that render as a response.
type ResponseDefinition interface {
	field.Definition
	ResponseShape() (*BodyShape, error)
}

// RequestBodyDefinition is implemented by definitions that render as a
// request body.
type RequestBodyDefinition interface {
	field.Definition
	RequestBodyShape() (*BodyShape, error)
}

// HeadersDefinition is implemented by definitions that render as a set of
// headers.
type HeadersDefinition interface {
	field.Definition
	HeadersShape() (*HeadersShape, error)
}

// SchemaShape is the canonical form of a schema definition.
type SchemaShape struct {
	Name        string
	Description string
	// Object is always a KindObject field holding the schema properties.
	Object  field.Field
	Example any
}

// BodyShape is the canonical form shared by responses and request bodies.
type BodyShape struct {
	Name        string
	Description string
	// Required is only meaningful for request bodies.
	Required   bool
	HeaderSets []HeaderSet
	// Content maps a content type to its schema and examples.
	Content map[string]Content
}

// Content is a single content-type variant of a body.
type Content struct {
	// Schema may be the zero Field for content without a schema.
	Schema   field.Field
	Examples map[string]any
}

// HeaderSet is either a ref to a Headers definition or an inline header map.
// Exactly one side is set.
type HeaderSet struct {
	Ref    field.Definition
	Inline map[string]field.Field
}

// HeadersShape is the canonical form of a headers definition.
type HeadersShape struct {
	Name        string
	Description string
	Headers     map[string]field.Field
}

// binder is implemented by definitions that resolve textual refs.
type binder interface {
	bind(r field.Resolver)
}

// state carries the identity, sealing and resolver bookkeeping common to
// every definition.
type state struct {
	kind field.DefKind
	name string

	mu       sync.Mutex
	sealed   bool
	resolver field.Resolver
	// deferred records the first malformed builder input; it surfaces when
	// the definition is sealed.
	deferred error
	err      error
}

func (s *state) DefKind() field.DefKind { return s.kind }
func (s *state) DefName() string        { return s.name }

func (s *state) bind(r field.Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolver == nil {
		s.resolver = r
	}
}

// mutate runs fn under the lock, panicking if the definition is sealed.
func (s *state) mutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		panic(fmt.Sprintf("definition: %s %q modified after it was sealed", s.kind, s.name))
	}
	fn()
}

// seal runs build exactly once, on the first call, and marks the state
// sealed. Later calls return the same error. It must be called with the
// lock held.
func (s *state) seal(build func() error) error {
	if !s.sealed {
		s.sealed = true
		s.err = s.deferred
		if s.err == nil {
			s.err = build()
		}
	}
	return s.err
}

func (s *state) options() []field.Option {
	if s.resolver == nil {
		return nil
	}
	return []field.Option{field.WithResolver(s.resolver)}
}

func (s *state) fail(err error) {
	if s.deferred == nil {
		s.deferred = err
	}
}

// Seal computes the canonical shape of def, reporting any normalization
// error. Definitions that are not one of the four kinds are ignored.
func Seal(def field.Definition) error {
	var err error
	switch d := def.(type) {
	case SchemaDefinition:
		_, err = d.SchemaShape()
	case ResponseDefinition:
		_, err = d.ResponseShape()
	case RequestBodyDefinition:
		_, err = d.RequestBodyShape()
	case HeadersDefinition:
		_, err = d.HeadersShape()
	}
	return err
}
