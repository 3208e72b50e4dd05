package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/refdoc/definition"
	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
	"github.com/vitalvas/refdoc/route"
)

// impostor claims to be a schema without implementing SchemaShape.
type impostor struct{ name string }

func (i *impostor) DefKind() field.DefKind { return field.DefSchema }
func (i *impostor) DefName() string        { return i.name }

func bodyRoute(path string, body field.Field) route.Route {
	return route.Route{Path: path, Verb: "post", Body: body}
}

func TestCollectCycle(t *testing.T) {
	a := definition.NewSchema("A")
	b := definition.NewSchema("B")
	a.Property("b", b)
	b.Property("a", a).Property("self", b).Property("list", []any{a, b})

	refs, err := Collect(context.Background(), []route.Route{bodyRoute("/a", field.RefTo(a))})
	require.NoError(t, err)

	assert.Len(t, refs.Schemas, 2)
	assert.Equal(t, 2, refs.Len())
	assert.Contains(t, refs.Schemas, field.Definition(a))
	assert.Contains(t, refs.Schemas, field.Definition(b))

	names := []string{}
	for _, s := range refs.SortedSchemas() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestCollectDedup(t *testing.T) {
	user := definition.NewSchema("User").Property("id", "uuid")

	var routes []route.Route
	for i := range 10 {
		r := route.Route{
			Path: "/users",
			Verb: route.Verbs[i%len(route.Verbs)],
			Responses: map[string]route.Response{
				"200": {Field: field.ListOf(field.RefTo(user))},
			},
			QueryParams: map[string]field.Field{"filter": field.RefTo(user)},
		}
		routes = append(routes, r)
	}

	refs, err := Collect(context.Background(), routes, WithConcurrency(3))
	require.NoError(t, err)
	assert.Len(t, refs.Schemas, 1)
	assert.Equal(t, 1, refs.Len())
}

func TestCollectBodies(t *testing.T) {
	user := definition.NewSchema("User").Property("id", "uuid")
	address := definition.NewSchema("Address").Property("city", "string")
	rate := definition.NewHeaders("RateLimit").Header("X-Limit", "integer")
	resp := definition.NewResponse("UserResponse").
		HeaderRef(rate).
		Header("X-Owner", "string").
		Content("application/json", user)
	req := definition.NewRequestBody("CreateUser").
		Content("application/json", map[string]any{"user": user, "address": address})

	r := route.Route{
		Path: "/users",
		Verb: "post",
		Body: field.RefTo(req),
		Responses: map[string]route.Response{
			"201": {Field: field.RefTo(resp)},
			"204": {NoBody: true},
		},
	}

	refs, err := Collect(context.Background(), []route.Route{r})
	require.NoError(t, err)

	assert.Len(t, refs.Schemas, 2)
	assert.Len(t, refs.Responses, 1)
	assert.Len(t, refs.RequestBodies, 1)
	assert.Len(t, refs.Headers, 1)
	assert.True(t, refs.Has(rate))

	shape, ok := refs.HeadersOf(rate)
	require.True(t, ok)
	assert.Equal(t, "RateLimit", shape.Name)
}

func TestCollectErrors(t *testing.T) {
	user := definition.NewSchema("User")
	resp := definition.NewResponse("UserResponse")

	tests := []struct {
		name     string
		routes   []route.Route
		contains string
	}{
		{
			name:     "missing capability",
			routes:   []route.Route{bodyRoute("/x", field.RefTo(&impostor{name: "Fake"}))},
			contains: "does not implement SchemaShape",
		},
		{
			name: "response in a parameter",
			routes: []route.Route{{
				Path: "/x", Verb: "get",
				QueryParams: map[string]field.Field{"q": field.RefTo(resp)},
			}},
			contains: "cannot be used in query_params.q",
		},
		{
			name: "request body in a response",
			routes: []route.Route{{
				Path: "/x", Verb: "get",
				Responses: map[string]route.Response{"200": {Field: field.RefTo(definition.NewRequestBody("Req"))}},
			}},
			contains: "cannot be used in responses.200",
		},
		{
			name:     "response nested in a schema",
			routes:   []route.Route{bodyRoute("/x", field.RefTo(definition.NewSchema("Bad").Property("r", resp)))},
			contains: `references response "UserResponse"`,
		},
		{
			name: "name collision",
			routes: []route.Route{
				bodyRoute("/a", field.RefTo(user)),
				bodyRoute("/b", field.RefTo(definition.NewSchema("User"))),
			},
			contains: "two distinct definitions",
		},
		{
			name:     "unsealable shape",
			routes:   []route.Route{bodyRoute("/x", field.RefTo(definition.NewSchema("Broken").Property("n", "strnig")))},
			contains: "unknown type",
		},
		{
			name:     "unnamed definition",
			routes:   []route.Route{bodyRoute("/x", field.RefTo(definition.NewSchema("")))},
			contains: "no name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Collect(context.Background(), tt.routes)
			require.Error(t, err)
			assert.ErrorIs(t, err, docerrors.ErrReference)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, []route.Route{bodyRoute("/x", field.RefTo(definition.NewSchema("A")))})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectEmpty(t *testing.T) {
	refs, err := Collect(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, refs.Len())
}
