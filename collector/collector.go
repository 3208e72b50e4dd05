// Package collector discovers every named definition reachable from a set of
// routes.
//
// Collection runs in two passes. The first pass fans out over routes and
// finds the refs each route holds literally, without looking behind them.
// The second pass visits those refs in route order and walks the graph
// depth-first. A definition is inserted into the ReferenceMap before its
// own refs are visited, so cyclic graphs terminate and every definition is
// serialized exactly once.
package collector

import (
	"context"
	"fmt"
	"runtime"

	"github.com/vitalvas/refdoc/definition"
	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
	"github.com/vitalvas/refdoc/route"
	"golang.org/x/sync/errgroup"
)

// Option configures Collect.
type Option func(*collector)

// WithConcurrency bounds the first pass. Values below 1 mean
// runtime.GOMAXPROCS(0).
func WithConcurrency(n int) Option {
	return func(c *collector) {
		c.concurrency = n
	}
}

type collector struct {
	concurrency int
	refs        *ReferenceMap
	names       map[nameKey]field.Definition
}

type nameKey struct {
	kind field.DefKind
	name string
}

// site is a literal ref found in a route, with the position it occupies.
type site struct {
	route *route.Route
	pos   route.Position
	name  string
	def   field.Definition
}

// Collect returns the ReferenceMap of routes. Any reference error fails the
// whole collection.
func Collect(ctx context.Context, routes []route.Route, opts ...Option) (*ReferenceMap, error) {
	c := &collector{
		refs:  NewReferenceMap(),
		names: make(map[nameKey]field.Definition),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.concurrency < 1 {
		c.concurrency = runtime.GOMAXPROCS(0)
	}

	sites, err := c.discover(ctx, routes)
	if err != nil {
		return nil, err
	}

	for _, perRoute := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, s := range perRoute {
			if err := c.visitSite(s); err != nil {
				return nil, err
			}
		}
	}

	return c.refs, nil
}

// discover finds the literal refs of every route concurrently. Results are
// indexed by route so the second pass stays deterministic.
func (c *collector) discover(ctx context.Context, routes []route.Route) ([][]site, error) {
	out := make([][]site, len(routes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i := range routes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := &routes[i]
			var found []site
			r.Fields(func(pos route.Position, name string, f field.Field) {
				for _, def := range field.Refs(f) {
					found = append(found, site{route: r, pos: pos, name: name, def: def})
				}
			})
			out[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *collector) visitSite(s site) error {
	if !accepts(s.pos, s.def.DefKind()) {
		return &docerrors.RouteError{
			Verb:   s.route.Verb,
			Path:   s.route.Path,
			Handle: s.route.Handle,
			Cause: &docerrors.ReferenceError{
				Kind:    s.def.DefKind().String(),
				Name:    s.def.DefName(),
				Message: fmt.Sprintf("cannot be used in %s", where(s.pos, s.name)),
			},
		}
	}
	return c.visit(s.def)
}

// visit inserts def and then walks its nested refs.
func (c *collector) visit(def field.Definition) error {
	if c.refs.Has(def) {
		return nil
	}
	if err := c.claimName(def); err != nil {
		return err
	}

	switch def.DefKind() {
	case field.DefSchema:
		d, ok := def.(definition.SchemaDefinition)
		if !ok {
			return missingCapability(def, "SchemaShape")
		}
		shape, err := d.SchemaShape()
		if err != nil {
			return shapeError(def, err)
		}
		c.refs.Schemas[def] = shape
		return c.visitNested(def, shape.Object, schemaPosition)

	case field.DefResponse:
		d, ok := def.(definition.ResponseDefinition)
		if !ok {
			return missingCapability(def, "ResponseShape")
		}
		shape, err := d.ResponseShape()
		if err != nil {
			return shapeError(def, err)
		}
		c.refs.Responses[def] = shape
		return c.visitBody(def, shape)

	case field.DefRequestBody:
		d, ok := def.(definition.RequestBodyDefinition)
		if !ok {
			return missingCapability(def, "RequestBodyShape")
		}
		shape, err := d.RequestBodyShape()
		if err != nil {
			return shapeError(def, err)
		}
		c.refs.RequestBodies[def] = shape
		return c.visitBody(def, shape)

	case field.DefHeaders:
		d, ok := def.(definition.HeadersDefinition)
		if !ok {
			return missingCapability(def, "HeadersShape")
		}
		shape, err := d.HeadersShape()
		if err != nil {
			return shapeError(def, err)
		}
		// Headers are leaves.
		c.refs.Headers[def] = shape
		return nil
	}

	return &docerrors.ReferenceError{
		Kind:    def.DefKind().String(),
		Name:    def.DefName(),
		Message: "unknown definition kind",
	}
}

func (c *collector) visitBody(owner field.Definition, shape *definition.BodyShape) error {
	for _, contentType := range sortedKeys(shape.Content) {
		if err := c.visitNested(owner, shape.Content[contentType].Schema, contentPosition); err != nil {
			return err
		}
	}
	for _, set := range shape.HeaderSets {
		if set.Ref != nil {
			if err := c.visitNested(owner, field.RefTo(set.Ref), headerSetPosition); err != nil {
				return err
			}
			continue
		}
		for _, name := range sortedKeys(set.Inline) {
			if err := c.visitNested(owner, set.Inline[name], schemaPosition); err != nil {
				return err
			}
		}
	}
	return nil
}

// visitNested checks and visits the refs held by a definition's own shape.
func (c *collector) visitNested(owner field.Definition, f field.Field, allowed func(field.DefKind) bool) error {
	for _, def := range field.Refs(f) {
		if !allowed(def.DefKind()) {
			return &docerrors.ReferenceError{
				Kind:    owner.DefKind().String(),
				Name:    owner.DefName(),
				Message: fmt.Sprintf("references %s %q where it is not allowed", def.DefKind(), def.DefName()),
			}
		}
		if err := c.visit(def); err != nil {
			return err
		}
	}
	return nil
}

// claimName records def under its (kind, name) pair. Two distinct
// definitions sharing a name would render to the same component key.
func (c *collector) claimName(def field.Definition) error {
	k := nameKey{kind: def.DefKind(), name: def.DefName()}
	if k.name == "" {
		return &docerrors.ReferenceError{Kind: k.kind.String(), Message: "definition has no name"}
	}
	if existing, ok := c.names[k]; ok && existing != def {
		return &docerrors.ReferenceError{
			Kind:    k.kind.String(),
			Name:    k.name,
			Message: "name is used by two distinct definitions",
		}
	}
	c.names[k] = def
	return nil
}

func missingCapability(def field.Definition, method string) error {
	return &docerrors.ReferenceError{
		Kind:    def.DefKind().String(),
		Name:    def.DefName(),
		Message: fmt.Sprintf("tagged as %s but %T does not implement %s", def.DefKind(), def, method),
	}
}

func shapeError(def field.Definition, err error) error {
	return &docerrors.ReferenceError{
		Kind:  def.DefKind().String(),
		Name:  def.DefName(),
		Cause: err,
	}
}

// accepts reports whether a ref of kind may appear at pos in a route.
func accepts(pos route.Position, kind field.DefKind) bool {
	switch pos {
	case route.PosBody:
		return kind == field.DefRequestBody || kind == field.DefSchema
	case route.PosResponse:
		return kind == field.DefResponse || kind == field.DefSchema
	default:
		return kind == field.DefSchema
	}
}

func schemaPosition(kind field.DefKind) bool {
	return kind == field.DefSchema
}

func contentPosition(kind field.DefKind) bool {
	return kind == field.DefSchema
}

func headerSetPosition(kind field.DefKind) bool {
	return kind == field.DefHeaders
}

func where(pos route.Position, name string) string {
	if name == "" {
		return pos.String()
	}
	return pos.String() + "." + name
}
