package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
	"gopkg.in/yaml.v3"
)

type registryKey struct {
	kind field.DefKind
	name string
}

// Registry holds named definitions and resolves textual refs against them.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	defs  map[registryKey]field.Definition
	order []registryKey
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[registryKey]field.Definition)}
}

// Add registers definitions. Definitions built by this package are bound
// to the registry so their textual refs resolve against it. A second,
// distinct definition under a taken (kind, name) pair is an error; adding
// the same definition twice is a no-op.
func (r *Registry) Add(defs ...field.Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, def := range defs {
		k := registryKey{kind: def.DefKind(), name: def.DefName()}
		if existing, ok := r.defs[k]; ok {
			if existing == def {
				continue
			}
			return &docerrors.ReferenceError{
				Kind:    k.kind.String(),
				Name:    k.name,
				Message: "name already registered",
			}
		}
		r.defs[k] = def
		r.order = append(r.order, k)
		if b, ok := def.(binder); ok {
			b.bind(r)
		}
	}
	return nil
}

// Resolve implements field.Resolver.
func (r *Registry) Resolve(kind field.DefKind, name string) (field.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[registryKey{kind: kind, name: name}]
	return def, ok
}

// Definitions returns every registered definition in registration order.
func (r *Registry) Definitions() []field.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]field.Definition, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.defs[k])
	}
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Seal computes the canonical shape of every registered definition and
// returns the first error.
func (r *Registry) Seal() error {
	for _, def := range r.Definitions() {
		if err := Seal(def); err != nil {
			return err
		}
	}
	return nil
}

type registryFile struct {
	Schemas       map[string]schemaEntry  `yaml:"schemas"`
	Responses     map[string]bodyEntry    `yaml:"responses"`
	RequestBodies map[string]bodyEntry    `yaml:"request_bodies"`
	Headers       map[string]headersEntry `yaml:"headers"`
}

type schemaEntry struct {
	Description string         `yaml:"description"`
	Properties  map[string]any `yaml:"properties"`
	Example     any            `yaml:"example"`
}

type bodyEntry struct {
	Description string                  `yaml:"description"`
	Required    *bool                   `yaml:"required"`
	Headers     []any                   `yaml:"headers"`
	Content     map[string]contentEntry `yaml:"content"`
}

type contentEntry struct {
	Schema   any            `yaml:"schema"`
	Examples map[string]any `yaml:"examples"`
}

type headersEntry struct {
	Description string         `yaml:"description"`
	Headers     map[string]any `yaml:"headers"`
}

// LoadRegistry reads a definitions file from disk.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file: %w", err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// ParseRegistry decodes a YAML definitions document:
//
//	schemas:
//	  User:
//	    description: A registered user
//	    properties:
//	      id: {type: uuid, required: true}
//	      manager: {$ref: schemas/User}
//	headers:
//	  RateLimit:
//	    headers:
//	      X-RateLimit-Limit: {type: integer, required: true}
//	responses:
//	  UserResponse:
//	    headers: [{$ref: headers/RateLimit}]
//	    content:
//	      application/json:
//	        schema: {$ref: schemas/User}
//
// Every name is declared before any shape is attached, so textual refs may
// point forward or form cycles. Every definition is sealed before return.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}

	reg := NewRegistry()

	schemas := make(map[string]*Schema, len(file.Schemas))
	for _, name := range slices.Sorted(maps.Keys(file.Schemas)) {
		schemas[name] = NewSchema(name)
	}
	headers := make(map[string]*Headers, len(file.Headers))
	for _, name := range slices.Sorted(maps.Keys(file.Headers)) {
		headers[name] = NewHeaders(name)
	}
	responses := make(map[string]*Response, len(file.Responses))
	for _, name := range slices.Sorted(maps.Keys(file.Responses)) {
		responses[name] = NewResponse(name)
	}
	bodies := make(map[string]*RequestBody, len(file.RequestBodies))
	for _, name := range slices.Sorted(maps.Keys(file.RequestBodies)) {
		bodies[name] = NewRequestBody(name)
	}

	for _, name := range slices.Sorted(maps.Keys(schemas)) {
		if err := reg.Add(schemas[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(headers)) {
		if err := reg.Add(headers[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(responses)) {
		if err := reg.Add(responses[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(bodies)) {
		if err := reg.Add(bodies[name]); err != nil {
			return nil, err
		}
	}

	for name, entry := range file.Schemas {
		s := schemas[name].Describe(entry.Description).Example(entry.Example)
		for prop, raw := range entry.Properties {
			s.Property(prop, raw)
		}
	}
	for name, entry := range file.Headers {
		h := headers[name].Describe(entry.Description)
		for header, raw := range entry.Headers {
			h.Header(header, raw)
		}
	}
	for name, entry := range file.Responses {
		resp := responses[name].Describe(entry.Description)
		for _, set := range entry.Headers {
			resp.HeaderSet(set)
		}
		for contentType, c := range entry.Content {
			resp.Content(contentType, c.Schema)
			for ex, v := range c.Examples {
				resp.Example(contentType, ex, v)
			}
		}
	}
	for name, entry := range file.RequestBodies {
		rb := bodies[name].Describe(entry.Description)
		if entry.Required != nil {
			rb.Required(*entry.Required)
		}
		for _, set := range entry.Headers {
			rb.HeaderSet(set)
		}
		for contentType, c := range entry.Content {
			rb.Content(contentType, c.Schema)
			for ex, v := range c.Examples {
				rb.Example(contentType, ex, v)
			}
		}
	}

	if err := reg.Seal(); err != nil {
		return nil, err
	}
	return reg, nil
}
