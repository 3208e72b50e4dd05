package collector

import (
	"cmp"
	"maps"
	"slices"

	"github.com/vitalvas/refdoc/definition"
	"github.com/vitalvas/refdoc/field"
)

// ReferenceMap holds the canonical shape of every collected definition,
// keyed by definition identity. It is append-only during collection.
type ReferenceMap struct {
	Schemas       map[field.Definition]*definition.SchemaShape
	Responses     map[field.Definition]*definition.BodyShape
	RequestBodies map[field.Definition]*definition.BodyShape
	Headers       map[field.Definition]*definition.HeadersShape
}

// NewReferenceMap returns an empty map.
func NewReferenceMap() *ReferenceMap {
	return &ReferenceMap{
		Schemas:       make(map[field.Definition]*definition.SchemaShape),
		Responses:     make(map[field.Definition]*definition.BodyShape),
		RequestBodies: make(map[field.Definition]*definition.BodyShape),
		Headers:       make(map[field.Definition]*definition.HeadersShape),
	}
}

// Len returns the total number of collected definitions.
func (m *ReferenceMap) Len() int {
	return len(m.Schemas) + len(m.Responses) + len(m.RequestBodies) + len(m.Headers)
}

// Has reports whether def was collected under its own kind.
func (m *ReferenceMap) Has(def field.Definition) bool {
	var ok bool
	switch def.DefKind() {
	case field.DefSchema:
		_, ok = m.Schemas[def]
	case field.DefResponse:
		_, ok = m.Responses[def]
	case field.DefRequestBody:
		_, ok = m.RequestBodies[def]
	case field.DefHeaders:
		_, ok = m.Headers[def]
	}
	return ok
}

// HeadersOf returns the collected shape of a headers definition.
func (m *ReferenceMap) HeadersOf(def field.Definition) (*definition.HeadersShape, bool) {
	shape, ok := m.Headers[def]
	return shape, ok
}

// SortedSchemas returns the collected schemas ordered by name.
func (m *ReferenceMap) SortedSchemas() []*definition.SchemaShape {
	return sortedShapes(m.Schemas, func(s *definition.SchemaShape) string { return s.Name })
}

// SortedResponses returns the collected responses ordered by name.
func (m *ReferenceMap) SortedResponses() []*definition.BodyShape {
	return sortedShapes(m.Responses, func(s *definition.BodyShape) string { return s.Name })
}

// SortedRequestBodies returns the collected request bodies ordered by name.
func (m *ReferenceMap) SortedRequestBodies() []*definition.BodyShape {
	return sortedShapes(m.RequestBodies, func(s *definition.BodyShape) string { return s.Name })
}

// SortedHeaders returns the collected header sets ordered by name.
func (m *ReferenceMap) SortedHeaders() []*definition.HeadersShape {
	return sortedShapes(m.Headers, func(s *definition.HeadersShape) string { return s.Name })
}

func sortedShapes[S any](m map[field.Definition]S, name func(S) string) []S {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, func(a, b S) int { return cmp.Compare(name(a), name(b)) })
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
