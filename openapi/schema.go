package openapi

import (
	"github.com/vitalvas/refdoc/field"
)

// primitiveTypes maps canonical scalar tags to OpenAPI type and format.
var primitiveTypes = map[string][2]string{
	"string":   {"string", ""},
	"integer":  {"integer", ""},
	"number":   {"number", ""},
	"boolean":  {"boolean", ""},
	"uuid":     {"string", "uuid"},
	"email":    {"string", "email"},
	"date":     {"string", "date"},
	"datetime": {"string", "date-time"},
	"time":     {"string", "time"},
	"byte":     {"string", "byte"},
	"binary":   {"string", "binary"},
	"password": {"string", "password"},
	"uri":      {"string", "uri"},
	"hostname": {"string", "hostname"},
	"ipv4":     {"string", "ipv4"},
	"ipv6":     {"string", "ipv6"},
}

// Link prefixes per definition kind.
const (
	schemaPrefix      = "#/components/schemas/"
	responsePrefix    = "#/components/responses/"
	requestBodyPrefix = "#/components/requestBodies/"
)

// RefPath returns the component link of def, or "" for headers definitions,
// which are always expanded in place.
func RefPath(def field.Definition) string {
	switch def.DefKind() {
	case field.DefSchema:
		return schemaPrefix + def.DefName()
	case field.DefResponse:
		return responsePrefix + def.DefName()
	case field.DefRequestBody:
		return requestBodyPrefix + def.DefName()
	}
	return ""
}

// RenderField converts a canonical field into a schema object. Refs become
// links and are never inlined. A non-empty description always sits on the
// returned schema itself.
func RenderField(f field.Field) *Schema {
	var s *Schema

	switch f.Kind {
	case field.KindRef:
		link := &Schema{Ref: RefPath(f.Ref)}
		if f.Description == "" {
			return link
		}
		// A $ref cannot carry siblings in 3.0, so a described ref is wrapped.
		return &Schema{AllOf: []*Schema{link}, Description: f.Description}

	case field.KindObject:
		s = &Schema{Type: "object"}
		if len(f.Properties) > 0 {
			s.Properties = make(map[string]*Schema, len(f.Properties))
		}
		for _, name := range sortedKeys(f.Properties) {
			child := f.Properties[name]
			s.Properties[name] = RenderField(child)
			if child.Required {
				s.Required = append(s.Required, name)
			}
		}

	case field.KindList:
		s = &Schema{Type: "array"}
		switch len(f.Of) {
		case 0:
			s.Items = &Schema{}
		case 1:
			s.Items = RenderField(f.Of[0])
		default:
			s.Items = &Schema{OneOf: renderAll(f.Of)}
		}

	case field.KindOneOf:
		s = &Schema{OneOf: renderAll(f.Of)}

	case field.KindPrimitive:
		s = &Schema{Type: "string"}
		if tf, ok := primitiveTypes[f.Type]; ok {
			s.Type, s.Format = tf[0], tf[1]
		}
		if f.Format != "" {
			s.Format = f.Format
		}
		s.Default = f.Default
		s.Enum = f.Enum
		s.Minimum = f.Minimum
		s.Maximum = f.Maximum

	default:
		s = &Schema{}
	}

	s.Description = f.Description
	return s
}

func renderAll(fields []field.Field) []*Schema {
	out := make([]*Schema, 0, len(fields))
	for _, f := range fields {
		out = append(out, RenderField(f))
	}
	return out
}

// withoutDescription renders f with its top-level description removed, for
// parameters and headers that carry the description themselves.
func withoutDescription(f field.Field) *Schema {
	f.Description = ""
	return RenderField(f)
}
