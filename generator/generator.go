// Package generator runs a complete documentation pass: it reads endpoints,
// builds routes, collects their definitions, renders the document and writes
// every output target.
package generator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vitalvas/refdoc/collector"
	"github.com/vitalvas/refdoc/config"
	"github.com/vitalvas/refdoc/definition"
	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
	"github.com/vitalvas/refdoc/openapi"
	"github.com/vitalvas/refdoc/route"
	"github.com/vitalvas/refdoc/source"
	"github.com/vitalvas/refdoc/writer"
	"golang.org/x/sync/errgroup"
)

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithRouteSource supplies endpoints programmatically. It takes precedence
// over the router file of the config.
func WithRouteSource(src source.RouteSource) Option {
	return func(g *Generator) {
		g.routes = src
	}
}

// WithAnnotationSource adds an annotation source. It is consulted before the
// annotations file of the config.
func WithAnnotationSource(src source.AnnotationSource) Option {
	return func(g *Generator) {
		g.annotations = append(g.annotations, src)
	}
}

// WithResolver adds a resolver for textual refs. It is consulted before the
// definitions file of the config.
func WithResolver(r field.Resolver) Option {
	return func(g *Generator) {
		g.resolvers = append(g.resolvers, r)
	}
}

// WithFilters adds route filters on top of the configured ones.
func WithFilters(filters ...route.Filter) Option {
	return func(g *Generator) {
		g.filters = append(g.filters, filters...)
	}
}

// WithTargets adds output targets on top of the configured outputs.
func WithTargets(targets ...writer.Target) Option {
	return func(g *Generator) {
		g.targets = append(g.targets, targets...)
	}
}

// WithStdout sets the stream used by outputs with path "-".
func WithStdout(w io.Writer) Option {
	return func(g *Generator) {
		g.stdout = w
	}
}

// Generator is a configured documentation pipeline. It is safe to call
// Build and Run more than once.
type Generator struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer

	routes      source.RouteSource
	annotations []source.AnnotationSource
	resolvers   []field.Resolver
	filters     []route.Filter
	targets     []writer.Target
}

// New validates cfg and loads the route table, annotations and definitions
// files it names. Configuration problems are reported here, before any
// route is processed. Defaults are applied to a copy; cfg is not modified.
func New(cfg *config.Config, opts ...Option) (*Generator, error) {
	if cfg == nil {
		return nil, &docerrors.ConfigError{Message: "config is required"}
	}

	cfg = cfg.Clone()
	g := &Generator{cfg: cfg, stdout: os.Stdout}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if g.routes == nil {
		if cfg.Router == "" {
			return nil, &docerrors.ConfigError{Field: "router", Message: "is required when no route source is supplied"}
		}
		table, err := source.LoadTable(cfg.Router)
		if err != nil {
			return nil, &docerrors.ConfigError{Field: "router", Cause: err}
		}
		g.routes = table
	}

	if cfg.Annotations != "" {
		ann, err := source.LoadAnnotations(cfg.Annotations)
		if err != nil {
			return nil, &docerrors.ConfigError{Field: "annotations", Cause: err}
		}
		g.annotations = append(g.annotations, ann)
	}

	if cfg.Definitions != "" {
		reg, err := definition.LoadRegistry(cfg.Definitions)
		if err != nil {
			return nil, &docerrors.ConfigError{Field: "definitions", Cause: err}
		}
		g.resolvers = append(g.resolvers, reg)
	}

	filters, err := cfg.RouteFilters()
	if err != nil {
		return nil, err
	}
	g.filters = append(filters, g.filters...)
	g.targets = append(writer.Targets(cfg.Outputs, g.stdout), g.targets...)

	return g, nil
}

// Build renders the document without writing it.
func (g *Generator) Build(ctx context.Context) (*openapi.Document, error) {
	return g.build(ctx, g.runLogger())
}

// Run builds the document and writes it to every target. The returned
// error is the build error, or the joined target failures.
func (g *Generator) Run(ctx context.Context) (writer.Result, error) {
	logger := g.runLogger()

	doc, err := g.build(ctx, logger)
	if err != nil {
		return writer.Result{}, err
	}

	res := writer.Run(ctx, g.targets, func(format string) ([]byte, error) {
		return openapi.Encode(doc, format)
	})
	for _, name := range res.Written {
		logger.Info("document written", "target", name)
	}
	for _, f := range res.Failures {
		logger.Error("failed to write document", "target", f.Target, "op", f.Op, "error", f.Cause)
	}
	return res, res.Err()
}

func (g *Generator) runLogger() *slog.Logger {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return g.logger.With("run_id", id.String())
}

func (g *Generator) build(ctx context.Context, logger *slog.Logger) (*openapi.Document, error) {
	start := time.Now()

	endpoints, err := g.routes.Endpoints(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("endpoints loaded", "count", len(endpoints))

	routes, err := g.buildRoutes(ctx, endpoints)
	if err != nil {
		return nil, err
	}
	routes = route.UniqueIDs(routes)

	documented := make([]route.Route, 0, len(routes))
	for _, r := range routes {
		if !r.Documented && !g.cfg.IncludeUndocumented {
			logger.Debug("skipping undocumented route", "verb", r.Verb, "path", r.Path, "handle", r.Handle)
			continue
		}
		documented = append(documented, r)
	}

	kept := route.Exclude(documented, g.filters)
	if excluded := len(documented) - len(kept); excluded > 0 {
		logger.Debug("routes filtered", "excluded", excluded)
	}

	refs, err := collector.Collect(ctx, kept, collector.WithConcurrency(g.cfg.Concurrency))
	if err != nil {
		return nil, err
	}

	doc, err := openapi.Process(g.cfg, kept, refs)
	if err != nil {
		return nil, err
	}

	if g.cfg.ShouldValidate() {
		if err := openapi.Validate(ctx, doc); err != nil {
			return nil, err
		}
	}

	logger.Info("document built",
		"routes", len(kept),
		"definitions", refs.Len(),
		"paths", len(doc.Paths),
		"duration", time.Since(start),
	)
	return doc, nil
}

// buildRoutes builds every endpoint concurrently. Results keep the
// endpoint order, and the first failure cancels the rest.
func (g *Generator) buildRoutes(ctx context.Context, endpoints []route.Endpoint) ([]route.Route, error) {
	routes := make([]route.Route, len(endpoints))
	annotations := source.Chain(g.annotations...)
	opts := []route.BuildOption{route.WithLocale(g.cfg.Locale)}
	if len(g.resolvers) > 0 {
		opts = append(opts, route.WithResolver(resolverChain(g.resolvers)))
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)

	for i, ep := range endpoints {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ann, _ := annotations.Lookup(ep.Handle)
			r, err := route.Build(ep, ann, g.cfg.Pipelines, opts...)
			if err != nil {
				return err
			}
			routes[i] = r
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return routes, nil
}

// resolverChain resolves through each resolver in order.
type resolverChain []field.Resolver

func (c resolverChain) Resolve(kind field.DefKind, name string) (field.Definition, bool) {
	for _, r := range c {
		if def, ok := r.Resolve(kind, name); ok {
			return def, true
		}
	}
	return nil, false
}

// IsConfigError reports whether err was caused by invalid configuration.
func IsConfigError(err error) bool {
	return errors.Is(err, docerrors.ErrConfig)
}
