package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"
	"sync"

	"github.com/vitalvas/refdoc/field"
	"github.com/vitalvas/refdoc/route"
	"gopkg.in/yaml.v3"
)

// Annotations is an in-memory annotation registry keyed by handle. It is
// safe for concurrent use.
type Annotations struct {
	mu  sync.RWMutex
	ops map[string]*OpBuilder
}

// NewAnnotations returns an empty registry.
func NewAnnotations() *Annotations {
	return &Annotations{ops: make(map[string]*OpBuilder)}
}

// Op returns the builder for handle, creating it on first use.
func (a *Annotations) Op(handle string) *OpBuilder {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.ops[handle]; ok {
		return b
	}
	b := &OpBuilder{owner: a, metadata: make(map[string]any)}
	a.ops[handle] = b
	return b
}

// Set replaces the annotation for handle with raw metadata.
func (a *Annotations) Set(handle string, ann route.Annotation) {
	b := a.Op(handle)
	a.mu.Lock()
	defer a.mu.Unlock()
	b.description = ann.Description
	b.metadata = maps.Clone(ann.Metadata)
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
}

// Lookup implements AnnotationSource. The returned annotation does not
// share mutable state with the registry.
func (a *Annotations) Lookup(handle string) (*route.Annotation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.ops[handle]
	if !ok {
		return nil, false
	}
	return &route.Annotation{
		Description: b.description,
		Metadata:    cloneDeep(b.metadata),
	}, true
}

// Len returns the number of annotated handles.
func (a *Annotations) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ops)
}

// OpBuilder records the annotation of a single handle.
type OpBuilder struct {
	owner       *Annotations
	description any
	metadata    map[string]any
}

func (b *OpBuilder) set(key string, v any) *OpBuilder {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	b.metadata[key] = v
	return b
}

func (b *OpBuilder) setIn(key, name string, v any) *OpBuilder {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	m, ok := b.metadata[key].(map[string]any)
	if !ok {
		m = make(map[string]any)
		if existing, isMap := field.AsMap(b.metadata[key]); isMap {
			maps.Copy(m, existing)
		}
		b.metadata[key] = m
	}
	m[name] = v
	return b
}

// Summary sets the operation summary.
func (b *OpBuilder) Summary(s string) *OpBuilder {
	return b.set("summary", s)
}

// Description sets the description: a string or a locale -> string mapping.
func (b *OpBuilder) Description(desc any) *OpBuilder {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	b.description = desc
	return b
}

// OperationID overrides the derived operation id.
func (b *OpBuilder) OperationID(id string) *OpBuilder {
	return b.set("operation_id", id)
}

// Tags replaces the tags of the operation.
func (b *OpBuilder) Tags(tags ...string) *OpBuilder {
	return b.set("tags", tags)
}

// Deprecated marks the operation as deprecated.
func (b *OpBuilder) Deprecated() *OpBuilder {
	return b.set("deprecated", true)
}

// Header declares a header parameter.
func (b *OpBuilder) Header(name string, raw any) *OpBuilder {
	return b.setIn("headers", name, raw)
}

// PathParam declares a path parameter.
func (b *OpBuilder) PathParam(name string, raw any) *OpBuilder {
	return b.setIn("path_params", name, raw)
}

// QueryParam declares a query parameter.
func (b *OpBuilder) QueryParam(name string, raw any) *OpBuilder {
	return b.setIn("query_params", name, raw)
}

// Body sets the request body.
func (b *OpBuilder) Body(raw any) *OpBuilder {
	return b.set("body", raw)
}

// Response sets the body of a status code. Pass route.NoBody or nil for a
// response without a body.
func (b *OpBuilder) Response(status int, raw any) *OpBuilder {
	return b.setIn("responses", strconv.Itoa(status), raw)
}

// DefaultResponse sets the catch-all response.
func (b *OpBuilder) DefaultResponse(raw any) *OpBuilder {
	return b.setIn("responses", "default", raw)
}

// NoContent declares a response without a body.
func (b *OpBuilder) NoContent(status int) *OpBuilder {
	return b.Response(status, route.NoBody)
}

// Auth requires a security scheme with the given scopes.
func (b *OpBuilder) Auth(scheme string, scopes ...string) *OpBuilder {
	if scopes == nil {
		scopes = []string{}
	}
	return b.setIn("auth", scheme, scopes)
}

// Meta sets a free-form metadata entry.
func (b *OpBuilder) Meta(key string, v any) *OpBuilder {
	return b.setIn("metadata", key, v)
}

// cloneDeep copies every nested map[string]any so callers cannot reach the
// registry's state. Other values are shared.
func cloneDeep(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = cloneDeep(nested)
		}
		out[k] = v
	}
	return out
}

type annotationsFile struct {
	Annotations map[string]map[string]any `yaml:"annotations"`
}

// LoadAnnotations reads a YAML annotations file from disk.
func LoadAnnotations(path string) (*Annotations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations file: %w", err)
	}
	a, err := ParseAnnotations(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// ParseAnnotations decodes a YAML document of the form
//
//	annotations:
//	  users.show:
//	    description: {en: Show a user, de: Benutzer anzeigen}
//	    path_params:
//	      id: {type: uuid, required: true}
//	    responses:
//	      200: {$ref: responses/UserResponse}
//	      404: null
//
// The description key is split off; every other key is metadata and is
// validated when the route is built.
func ParseAnnotations(data []byte) (*Annotations, error) {
	var file annotationsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse annotations: %w", err)
	}

	a := NewAnnotations()
	for handle, raw := range file.Annotations {
		metadata := maps.Clone(raw)
		desc := metadata["description"]
		delete(metadata, "description")
		a.Set(handle, route.Annotation{Description: desc, Metadata: metadata})
	}
	return a, nil
}
