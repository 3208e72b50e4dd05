package source

import (
	"context"
	"errors"
	"strings"

	"github.com/gorilla/mux"
	"github.com/vitalvas/refdoc/route"
)

// RouterOption configures a Router source.
type RouterOption func(*Router)

// WithPipelineFunc assigns pipeline memberships per mux route.
func WithPipelineFunc(fn func(r *mux.Route) []string) RouterOption {
	return func(s *Router) {
		s.pipelines = fn
	}
}

// Router reads endpoints from a gorilla/mux router. Routes without a path
// template or without methods are skipped; the handle is the route name,
// or "<VERB> <path>" for unnamed routes.
type Router struct {
	router    *mux.Router
	pipelines func(r *mux.Route) []string
}

// NewRouter returns a RouteSource backed by r.
func NewRouter(r *mux.Router, opts ...RouterOption) *Router {
	s := &Router{router: r}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoints walks the router and returns one endpoint per route and method.
func (s *Router) Endpoints(ctx context.Context) ([]route.Endpoint, error) {
	var out []route.Endpoint

	err := s.router.Walk(func(r *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		tpl, err := r.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := r.GetMethods()
		if err != nil {
			return nil
		}

		var pipelines []string
		if s.pipelines != nil {
			pipelines = s.pipelines(r)
		}

		for _, method := range methods {
			handle := r.GetName()
			if handle == "" {
				handle = DefaultHandle(strings.ToUpper(method), tpl)
			}
			out = append(out, route.Endpoint{
				Path:      tpl,
				Verb:      strings.ToLower(method),
				Handle:    handle,
				Pipelines: pipelines,
			})
		}
		return nil
	})
	if err != nil && !errors.Is(err, mux.SkipRouter) {
		return nil, err
	}

	return out, nil
}
