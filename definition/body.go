package definition

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
)

type rawContent struct {
	schema   any
	examples map[string]any
}

// body is the builder state shared by Response and RequestBody.
type body struct {
	state

	description string
	required    *bool
	// headerSets holds field.Definition values and raw mappings in
	// declaration order.
	headerSets []any
	implicit   map[string]any
	contents   map[string]*rawContent

	shape *BodyShape
}

func newBody(kind field.DefKind, name string) body {
	return body{
		state:    state{kind: kind, name: name},
		contents: make(map[string]*rawContent),
	}
}

func (b *body) content(contentType string) *rawContent {
	c, ok := b.contents[contentType]
	if !ok {
		c = &rawContent{}
		b.contents[contentType] = c
	}
	return c
}

func (b *body) header(name string, raw any) {
	if b.implicit == nil {
		b.implicit = make(map[string]any)
		b.headerSets = append(b.headerSets, b.implicit)
	}
	b.implicit[name] = raw
}

// shapeLocked builds and seals the body. The lock must be held.
func (b *body) shapeLocked() (*BodyShape, error) {
	err := b.seal(func() error {
		shape := &BodyShape{
			Name:        b.name,
			Description: b.description,
			Content:     make(map[string]Content, len(b.contents)),
		}
		if b.kind == field.DefRequestBody {
			shape.Required = b.required == nil || *b.required
		}

		for i, raw := range b.headerSets {
			set, err := b.headerSet(raw, "headers["+strconv.Itoa(i)+"]")
			if err != nil {
				return wrapNormalize(b.kind, b.name, err)
			}
			shape.HeaderSets = append(shape.HeaderSets, set)
		}

		for _, contentType := range slices.Sorted(maps.Keys(b.contents)) {
			c := b.contents[contentType]
			schema, err := field.Normalize(c.schema, b.options()...)
			if err != nil {
				return wrapNormalize(b.kind, b.name, fmt.Errorf("content %s: %w", contentType, err))
			}
			shape.Content[contentType] = Content{Schema: schema, Examples: c.examples}
		}

		b.shape = shape
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.shape, nil
}

func (b *body) headerSet(raw any, path string) (HeaderSet, error) {
	if def, ok := raw.(field.Definition); ok {
		return headerRef(def)
	}

	m, ok := field.AsMap(raw)
	if !ok {
		return HeaderSet{}, &docerrors.NormalizeError{
			Path:    path,
			Message: fmt.Sprintf("expected a mapping or a headers definition, got %T", raw),
		}
	}

	if _, isRef := m["$ref"]; isRef && len(m) == 1 {
		f, err := field.Normalize(m, b.options()...)
		if err != nil {
			return HeaderSet{}, err
		}
		return headerRef(f.Ref)
	}

	inline, err := field.NormalizeMap(m, b.options()...)
	if err != nil {
		return HeaderSet{}, err
	}
	if err := checkHeaders(inline, path); err != nil {
		return HeaderSet{}, err
	}
	return HeaderSet{Inline: inline}, nil
}

func headerRef(def field.Definition) (HeaderSet, error) {
	if def.DefKind() != field.DefHeaders {
		return HeaderSet{}, &docerrors.ReferenceError{
			Kind:    def.DefKind().String(),
			Name:    def.DefName(),
			Message: "header set must reference a headers definition",
		}
	}
	return HeaderSet{Ref: def}, nil
}

// Response is a named response definition.
type Response struct {
	body
}

// NewResponse returns an empty response definition registered under name.
func NewResponse(name string) *Response {
	return &Response{body: newBody(field.DefResponse, name)}
}

// Describe sets the response description.
func (r *Response) Describe(desc string) *Response {
	r.mutate(func() { r.description = desc })
	return r
}

// Content sets the schema of a content type. schema accepts every form
// understood by field.Normalize, including a Schema definition.
func (r *Response) Content(contentType string, schema any) *Response {
	r.mutate(func() { r.content(contentType).schema = schema })
	return r
}

// Example adds a named example to a content type.
func (r *Response) Example(contentType, name string, value any) *Response {
	r.mutate(func() { addExample(r.content(contentType), name, value) })
	return r
}

// Header adds a single header to the response's own inline header set.
func (r *Response) Header(name string, raw any) *Response {
	r.mutate(func() { r.header(name, raw) })
	return r
}

// HeaderSet appends a header set: either an inline name -> raw mapping, a
// {"$ref": "headers/Name"} mapping or a Headers definition.
func (r *Response) HeaderSet(raw any) *Response {
	r.mutate(func() { r.headerSets = append(r.headerSets, raw) })
	return r
}

// HeaderRef appends a reference to a Headers definition.
func (r *Response) HeaderRef(def field.Definition) *Response {
	return r.HeaderSet(def)
}

// ResponseShape returns the canonical form of the response, sealing it.
func (r *Response) ResponseShape() (*BodyShape, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shapeLocked()
}

// RequestBody is a named request body definition.
type RequestBody struct {
	body
}

// NewRequestBody returns an empty request body definition registered under
// name. Request bodies are required unless Required(false) is called.
func NewRequestBody(name string) *RequestBody {
	return &RequestBody{body: newBody(field.DefRequestBody, name)}
}

// Describe sets the request body description.
func (b *RequestBody) Describe(desc string) *RequestBody {
	b.mutate(func() { b.description = desc })
	return b
}

// Required sets whether the request body is required.
func (b *RequestBody) Required(required bool) *RequestBody {
	b.mutate(func() { b.required = &required })
	return b
}

// Content sets the schema of a content type.
func (b *RequestBody) Content(contentType string, schema any) *RequestBody {
	b.mutate(func() { b.content(contentType).schema = schema })
	return b
}

// Example adds a named example to a content type.
func (b *RequestBody) Example(contentType, name string, value any) *RequestBody {
	b.mutate(func() { addExample(b.content(contentType), name, value) })
	return b
}

// Header adds a single header to the body's own inline header set.
func (b *RequestBody) Header(name string, raw any) *RequestBody {
	b.mutate(func() { b.header(name, raw) })
	return b
}

// HeaderSet appends a header set.
func (b *RequestBody) HeaderSet(raw any) *RequestBody {
	b.mutate(func() { b.headerSets = append(b.headerSets, raw) })
	return b
}

// HeaderRef appends a reference to a Headers definition.
func (b *RequestBody) HeaderRef(def field.Definition) *RequestBody {
	return b.HeaderSet(def)
}

// RequestBodyShape returns the canonical form of the request body, sealing
// it.
func (b *RequestBody) RequestBodyShape() (*BodyShape, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shapeLocked()
}

func addExample(c *rawContent, name string, value any) {
	if c.examples == nil {
		c.examples = make(map[string]any)
	}
	c.examples[name] = value
}
