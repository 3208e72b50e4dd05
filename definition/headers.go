package definition

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
)

// Headers is a named, reusable set of headers.
type Headers struct {
	state

	description string
	headers     map[string]any

	shape *HeadersShape
}

// NewHeaders returns an empty headers definition registered under name.
func NewHeaders(name string) *Headers {
	return &Headers{
		state:   state{kind: field.DefHeaders, name: name},
		headers: make(map[string]any),
	}
}

// Describe sets the description of the header set.
func (h *Headers) Describe(desc string) *Headers {
	h.mutate(func() { h.description = desc })
	return h
}

// Header declares a header. raw must normalize to a primitive field.
func (h *Headers) Header(name string, raw any) *Headers {
	h.mutate(func() { h.headers[name] = raw })
	return h
}

// HeadersShape returns the canonical form of the header set, sealing it.
func (h *Headers) HeadersShape() (*HeadersShape, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.seal(func() error {
		headers, err := field.NormalizeMap(h.headers, h.options()...)
		if err != nil {
			return wrapNormalize(h.kind, h.name, err)
		}
		if err := checkHeaders(headers, ""); err != nil {
			return wrapNormalize(h.kind, h.name, err)
		}
		h.shape = &HeadersShape{
			Name:        h.name,
			Description: h.description,
			Headers:     headers,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h.shape, nil
}

// checkHeaders rejects header values that are not primitive-shaped.
func checkHeaders(headers map[string]field.Field, path string) error {
	for _, name := range slices.Sorted(maps.Keys(headers)) {
		f := headers[name]
		if f.Kind == field.KindPrimitive {
			continue
		}
		at := name
		if path != "" {
			at = path + "." + name
		}
		return &docerrors.NormalizeError{
			Path:    at,
			Message: fmt.Sprintf("header must be a primitive, got %s", f.Kind),
		}
	}
	return nil
}
