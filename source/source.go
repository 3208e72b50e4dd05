// Package source provides route and annotation sources: a gorilla/mux
// router adapter, YAML route tables and an annotation registry that can be
// filled from Go code or YAML.
package source

import (
	"context"

	"github.com/vitalvas/refdoc/route"
)

// RouteSource supplies the endpoints to document.
type RouteSource interface {
	Endpoints(ctx context.Context) ([]route.Endpoint, error)
}

// AnnotationSource returns the annotation attached to a handle. A missing
// annotation is not an error: the route is built as undocumented.
type AnnotationSource interface {
	Lookup(handle string) (*route.Annotation, bool)
}

// Chain returns a source that tries each source in order and returns the
// first annotation found.
func Chain(sources ...AnnotationSource) AnnotationSource {
	return chain(sources)
}

type chain []AnnotationSource

func (c chain) Lookup(handle string) (*route.Annotation, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if ann, ok := s.Lookup(handle); ok {
			return ann, true
		}
	}
	return nil, false
}

// DefaultHandle is the handle given to endpoints without an explicit one.
func DefaultHandle(verb, path string) string {
	return verb + " " + path
}
