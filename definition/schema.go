package definition

import (
	"fmt"

	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
)

// Schema is a named object type.
type Schema struct {
	state

	description string
	properties  map[string]any
	example     any

	shape *SchemaShape
}

// NewSchema returns an empty schema definition registered under name.
func NewSchema(name string) *Schema {
	return &Schema{
		state:      state{kind: field.DefSchema, name: name},
		properties: make(map[string]any),
	}
}

// Describe sets the schema description.
func (s *Schema) Describe(desc string) *Schema {
	s.mutate(func() { s.description = desc })
	return s
}

// Property declares a single property. raw accepts every form understood by
// field.Normalize. Declaring a property twice replaces it.
func (s *Schema) Property(name string, raw any) *Schema {
	s.mutate(func() { s.properties[name] = raw })
	return s
}

// Properties declares every property of a name -> raw mapping. A value that
// is not a mapping fails the schema when it is sealed.
func (s *Schema) Properties(raw any) *Schema {
	s.mutate(func() {
		m, ok := field.AsMap(raw)
		if !ok {
			s.fail(&docerrors.NormalizeError{
				Path:    s.name + ".properties",
				Message: fmt.Sprintf("expected a mapping, got %T", raw),
			})
			return
		}
		for name, v := range m {
			s.properties[name] = v
		}
	})
	return s
}

// Example sets an example value for the schema.
func (s *Schema) Example(v any) *Schema {
	s.mutate(func() { s.example = v })
	return s
}

// SchemaShape returns the canonical form of the schema, sealing it.
func (s *Schema) SchemaShape() (*SchemaShape, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.seal(func() error {
		props, err := field.NormalizeMap(s.properties, s.options()...)
		if err != nil {
			return wrapNormalize(s.kind, s.name, err)
		}
		s.shape = &SchemaShape{
			Name:        s.name,
			Description: s.description,
			Object:      field.Object(props),
			Example:     s.example,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.shape, nil
}

// wrapNormalize names the definition an error occurred in.
func wrapNormalize(kind field.DefKind, name string, err error) error {
	return fmt.Errorf("%s %q: %w", kind, name, err)
}
