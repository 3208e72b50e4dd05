// Package route builds normalized Route records from endpoints, annotation
// metadata and pipeline defaults.
//
// An annotation carries a description and a metadata mapping with the keys
//
//	headers, path_params, query_params  name -> raw field
//	body                                raw field
//	responses                           status -> raw field, or NoBody / nil
//	auth                                scheme -> scopes, or a list of schemes
//	tags                                list of strings
//	metadata                            free-form mapping
//	summary, operation_id               string
//	deprecated                          bool
//
// Pipeline defaults are merged beneath the annotation with Merge, so a route
// inherits everything its pipelines declare and overrides key by key.
package route

import "github.com/vitalvas/refdoc/field"

// Verbs accepted for an endpoint, in rendering order.
var Verbs = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Endpoint is a single path/verb pair supplied by a route source.
type Endpoint struct {
	Path string
	Verb string
	// Handle is the opaque key used to look up the annotation.
	Handle string
	// Pipelines lists the groups the endpoint explicitly belongs to.
	Pipelines []string
}

// Annotation is the documentation attached to a handle.
type Annotation struct {
	// Description is a string or a locale -> string mapping.
	Description any
	Metadata    map[string]any
}

// Pipeline is a named group whose defaults every member route inherits.
type Pipeline struct {
	// Prefixes adds every route whose path starts with one of them.
	Prefixes []string `yaml:"prefixes"`
	// Defaults is a partial annotation metadata mapping.
	Defaults map[string]any `yaml:"defaults"`
}

type noBody struct{}

// NoBody marks a response without a body. A nil response value means the
// same thing, which is how YAML input spells it.
var NoBody any = noBody{}

// Response is a single status entry of a route.
type Response struct {
	NoBody bool
	Field  field.Field
}

// Route is one documented endpoint. It is immutable once built.
type Route struct {
	Path   string
	Verb   string
	ID     string
	Handle string

	Summary     string
	Description string
	Tags        []string
	// Auth maps a security scheme to its required scopes.
	Auth map[string][]string

	Headers     map[string]field.Field
	PathParams  map[string]field.Field
	QueryParams map[string]field.Field
	Body        field.Field
	// Responses is keyed by status code or "default".
	Responses map[string]Response

	Metadata  map[string]any
	Pipelines []string

	Deprecated bool
	// Documented is false when no annotation was found for the handle.
	Documented bool

	handleID bool
}

// Position identifies where a field sits within a route.
type Position int

const (
	PosHeader Position = iota + 1
	PosPathParam
	PosQueryParam
	PosBody
	PosResponse
)

func (p Position) String() string {
	switch p {
	case PosHeader:
		return "headers"
	case PosPathParam:
		return "path_params"
	case PosQueryParam:
		return "query_params"
	case PosBody:
		return "body"
	case PosResponse:
		return "responses"
	}
	return "unknown"
}

// Fields calls fn for every field of the route that may carry refs, in a
// fixed order: headers, path params, query params, body, responses. name is
// the parameter name or status code, and empty for the body.
func (r *Route) Fields(fn func(pos Position, name string, f field.Field)) {
	for _, name := range sortedKeys(r.Headers) {
		fn(PosHeader, name, r.Headers[name])
	}
	for _, name := range sortedKeys(r.PathParams) {
		fn(PosPathParam, name, r.PathParams[name])
	}
	for _, name := range sortedKeys(r.QueryParams) {
		fn(PosQueryParam, name, r.QueryParams[name])
	}
	if !r.Body.IsZero() {
		fn(PosBody, "", r.Body)
	}
	for _, code := range sortedKeys(r.Responses) {
		if resp := r.Responses[code]; !resp.NoBody {
			fn(PosResponse, code, resp.Field)
		}
	}
}
