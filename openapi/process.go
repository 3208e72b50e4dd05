package openapi

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/refdoc/collector"
	"github.com/vitalvas/refdoc/config"
	"github.com/vitalvas/refdoc/definition"
	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
	"github.com/vitalvas/refdoc/route"
)

// macroTypeMap maps path variable macros to OpenAPI type and format.
var macroTypeMap = map[string][2]string{
	"uuid":     {"string", "uuid"},
	"int":      {"integer", ""},
	"float":    {"number", ""},
	"slug":     {"string", ""},
	"alpha":    {"string", ""},
	"alphanum": {"string", ""},
	"date":     {"string", "date"},
	"hex":      {"string", ""},
	"domain":   {"string", "hostname"},
}

// Parameter locations.
const (
	inHeader = "header"
	inPath   = "path"
	inQuery  = "query"
)

type pathVar struct {
	name  string
	macro string
}

type processor struct {
	cfg         *config.Config
	refs        *collector.ReferenceMap
	contentType string
}

// Process renders routes and their collected definitions into a document.
// Every ref held by routes must already be present in refs.
func Process(cfg *config.Config, routes []route.Route, refs *collector.ReferenceMap) (*Document, error) {
	if refs == nil {
		refs = collector.NewReferenceMap()
	}
	p := &processor{cfg: cfg, refs: refs, contentType: cfg.DefaultContentType}
	if p.contentType == "" {
		p.contentType = config.DefaultContentType
	}

	doc := &Document{
		OpenAPI: Version,
		Info: Info{
			Title:       cfg.Title,
			Description: cfg.Description,
			Version:     cfg.Version,
		},
		Paths: make(map[string]*PathItem),
	}
	for _, s := range cfg.Servers {
		doc.Servers = append(doc.Servers, Server{URL: s.URL, Description: s.Description})
	}

	ids := make(map[string]*route.Route)
	for i := range routes {
		r := &routes[i]
		key, vars := parsePath(r.Path)

		if r.ID != "" {
			if prev, ok := ids[r.ID]; ok {
				return nil, routeError(r, fmt.Errorf("operation id %q is already used by %s %s", r.ID, strings.ToUpper(prev.Verb), prev.Path))
			}
			ids[r.ID] = r
		}

		op, err := p.operation(r, vars)
		if err != nil {
			return nil, routeError(r, err)
		}

		item, ok := doc.Paths[key]
		if !ok {
			item = &PathItem{}
			doc.Paths[key] = item
		}
		if !assignOperation(item, r.Verb, op) {
			return nil, routeError(r, errors.New("operation is already defined for "+strings.ToUpper(r.Verb)+" "+key))
		}
	}

	components, err := p.components()
	if err != nil {
		return nil, err
	}
	doc.Components = components
	doc.Tags = mergeTags(cfg.Tags, doc.Paths)

	return doc, nil
}

func routeError(r *route.Route, err error) error {
	return &docerrors.RouteError{Verb: r.Verb, Path: r.Path, Handle: r.Handle, Cause: err}
}

func (p *processor) operation(r *route.Route, vars []pathVar) (*Operation, error) {
	op := &Operation{
		OperationID: r.ID,
		Summary:     r.Summary,
		Description: r.Description,
		Tags:        r.Tags,
		Deprecated:  r.Deprecated,
		Security:    security(r.Auth),
	}

	params, err := p.parameters(r, vars)
	if err != nil {
		return nil, err
	}
	op.Parameters = params
	op.RequestBody = p.requestBody(r.Body)

	responses, err := p.responses(r.Responses)
	if err != nil {
		return nil, err
	}
	op.Responses = responses

	return op, nil
}

// parameters flattens headers, path and query parameters in that order,
// each group sorted by name.
func (p *processor) parameters(r *route.Route, vars []pathVar) ([]*Parameter, error) {
	bodyHeaders, err := p.bodyHeaders(r.Body)
	if err != nil {
		return nil, err
	}
	headers := make(map[string]field.Field, len(r.Headers)+len(bodyHeaders))
	maps.Copy(headers, bodyHeaders)
	maps.Copy(headers, r.Headers)

	var params []*Parameter
	for _, name := range sortedKeys(headers) {
		params = append(params, parameter(name, inHeader, headers[name]))
	}

	pathParams := make(map[string]*Parameter, len(r.PathParams)+len(vars))
	for name, f := range r.PathParams {
		pathParams[name] = parameter(name, inPath, f)
	}
	for _, v := range vars {
		if _, ok := pathParams[v.name]; !ok {
			pathParams[v.name] = macroParameter(v)
		}
	}
	for _, name := range sortedKeys(pathParams) {
		params = append(params, pathParams[name])
	}

	for _, name := range sortedKeys(r.QueryParams) {
		params = append(params, parameter(name, inQuery, r.QueryParams[name]))
	}

	return params, nil
}

// bodyHeaders returns the flattened header sets of a request-body ref.
func (p *processor) bodyHeaders(body field.Field) (map[string]field.Field, error) {
	if body.Kind != field.KindRef || body.Ref.DefKind() != field.DefRequestBody {
		return nil, nil
	}
	shape, ok := p.refs.RequestBodies[body.Ref]
	if !ok {
		return nil, notCollected(body.Ref)
	}
	return p.flattenHeaders(shape.HeaderSets)
}

// parameter lifts the field description to the parameter and drops it from
// the nested schema. Path parameters are always required.
func parameter(name, in string, f field.Field) *Parameter {
	return &Parameter{
		Name:        name,
		In:          in,
		Description: f.Description,
		Required:    f.Required || in == inPath,
		Schema:      withoutDescription(f),
	}
}

func macroParameter(v pathVar) *Parameter {
	param := &Parameter{
		Name:     v.name,
		In:       inPath,
		Required: true,
		Schema:   &Schema{Type: "string"},
	}
	if typeInfo, ok := macroTypeMap[v.macro]; ok {
		param.Schema = &Schema{Type: typeInfo[0], Format: typeInfo[1]}
	}
	return param
}

func (p *processor) requestBody(body field.Field) *RequestBody {
	switch {
	case body.IsZero():
		return nil
	case body.Kind == field.KindRef && body.Ref.DefKind() == field.DefRequestBody:
		return &RequestBody{Ref: RefPath(body.Ref)}
	}
	return &RequestBody{
		Required: true,
		Content:  map[string]*MediaType{p.contentType: {Schema: RenderField(body)}},
	}
}

func (p *processor) responses(in map[string]route.Response) (map[string]*Response, error) {
	out := make(map[string]*Response, len(in))
	for _, code := range sortedKeys(in) {
		resp := in[code]
		switch {
		case resp.NoBody:
			out[code] = &Response{Description: "OK"}
		case resp.Field.Kind == field.KindRef && resp.Field.Ref.DefKind() == field.DefResponse:
			if _, ok := p.refs.Responses[resp.Field.Ref]; !ok {
				return nil, notCollected(resp.Field.Ref)
			}
			out[code] = &Response{Ref: RefPath(resp.Field.Ref)}
		default:
			out[code] = &Response{
				Description: responseDescription(code),
				Content:     map[string]*MediaType{p.contentType: {Schema: RenderField(resp.Field)}},
			}
		}
	}
	if len(out) == 0 {
		out["default"] = &Response{Description: responseDescription("default")}
	}
	return out, nil
}

// responseDescription returns a human-readable description for a response key.
func responseDescription(key string) string {
	if key == "default" {
		return "Default response"
	}
	code, err := strconv.Atoi(key)
	if err == nil {
		if text := http.StatusText(code); text != "" {
			return text
		}
	}
	return key
}

// security renders one requirement per scheme, sorted by scheme name.
func security(auth map[string][]string) []SecurityRequirement {
	if len(auth) == 0 {
		return nil
	}
	reqs := make([]SecurityRequirement, 0, len(auth))
	for _, scheme := range sortedKeys(auth) {
		scopes := auth[scheme]
		if scopes == nil {
			scopes = []string{}
		}
		reqs = append(reqs, SecurityRequirement{scheme: scopes})
	}
	return reqs
}

// flattenHeaders expands header sets in order. A later set overrides an
// earlier one for the same header name.
func (p *processor) flattenHeaders(sets []definition.HeaderSet) (map[string]field.Field, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	out := make(map[string]field.Field)
	for _, set := range sets {
		if set.Ref != nil {
			shape, ok := p.refs.HeadersOf(set.Ref)
			if !ok {
				return nil, notCollected(set.Ref)
			}
			maps.Copy(out, shape.Headers)
			continue
		}
		maps.Copy(out, set.Inline)
	}
	return out, nil
}

func renderHeaders(headers map[string]field.Field) map[string]*Header {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]*Header, len(headers))
	for name, f := range headers {
		out[name] = &Header{
			Description: f.Description,
			Required:    f.Required,
			Schema:      withoutDescription(f),
		}
	}
	return out
}

func notCollected(def field.Definition) error {
	return &docerrors.ReferenceError{
		Kind:    def.DefKind().String(),
		Name:    def.DefName(),
		Message: "was not collected",
	}
}

// buildComponents assembles the Components object from the collected
// definitions and configured security schemes. It returns nil when there
// is nothing to emit.
func (p *processor) components() (*Components, error) {
	comp := &Components{}

	for _, shape := range p.refs.SortedSchemas() {
		if comp.Schemas == nil {
			comp.Schemas = make(map[string]*Schema)
		}
		s := RenderField(shape.Object)
		if shape.Description != "" {
			s.Description = shape.Description
		}
		s.Example = shape.Example
		comp.Schemas[shape.Name] = s
	}

	for _, shape := range p.refs.SortedResponses() {
		if comp.Responses == nil {
			comp.Responses = make(map[string]*Response)
		}
		headers, err := p.flattenHeaders(shape.HeaderSets)
		if err != nil {
			return nil, err
		}
		desc := shape.Description
		if desc == "" {
			desc = shape.Name
		}
		comp.Responses[shape.Name] = &Response{
			Description: desc,
			Headers:     renderHeaders(headers),
			Content:     renderContent(shape.Content),
		}
	}

	for _, shape := range p.refs.SortedRequestBodies() {
		if comp.RequestBodies == nil {
			comp.RequestBodies = make(map[string]*RequestBody)
		}
		comp.RequestBodies[shape.Name] = &RequestBody{
			Description: shape.Description,
			Required:    shape.Required,
			Content:     renderContent(shape.Content),
		}
	}

	for _, name := range sortedKeys(p.cfg.SecuritySchemes) {
		if comp.SecuritySchemes == nil {
			comp.SecuritySchemes = make(map[string]*SecurityScheme)
		}
		comp.SecuritySchemes[name] = securityScheme(p.cfg.SecuritySchemes[name])
	}

	if comp.Schemas == nil && comp.Responses == nil && comp.RequestBodies == nil && comp.SecuritySchemes == nil {
		return nil, nil
	}
	return comp, nil
}

func renderContent(content map[string]definition.Content) map[string]*MediaType {
	if len(content) == 0 {
		return nil
	}
	out := make(map[string]*MediaType, len(content))
	for ct, c := range content {
		mt := &MediaType{}
		if !c.Schema.IsZero() {
			mt.Schema = RenderField(c.Schema)
		}
		for _, name := range sortedKeys(c.Examples) {
			if mt.Examples == nil {
				mt.Examples = make(map[string]*Example, len(c.Examples))
			}
			mt.Examples[name] = &Example{Value: c.Examples[name]}
		}
		out[ct] = mt
	}
	return out
}

func securityScheme(s config.SecurityScheme) *SecurityScheme {
	out := &SecurityScheme{
		Type:             s.Type,
		Description:      s.Description,
		Name:             s.Name,
		In:               s.In,
		Scheme:           s.Scheme,
		BearerFormat:     s.BearerFormat,
		OpenIDConnectURL: s.OpenIDConnectURL,
	}
	if s.Flows != nil {
		out.Flows = &OAuthFlows{
			Implicit:          oauthFlow(s.Flows.Implicit),
			Password:          oauthFlow(s.Flows.Password),
			ClientCredentials: oauthFlow(s.Flows.ClientCredentials),
			AuthorizationCode: oauthFlow(s.Flows.AuthorizationCode),
		}
	}
	return out
}

func oauthFlow(f *config.OAuthFlow) *OAuthFlow {
	if f == nil {
		return nil
	}
	scopes := f.Scopes
	if scopes == nil {
		scopes = map[string]string{}
	}
	return &OAuthFlow{
		AuthorizationURL: f.AuthorizationURL,
		TokenURL:         f.TokenURL,
		RefreshURL:       f.RefreshURL,
		Scopes:           scopes,
	}
}

// mergeTags combines tags collected from operations with configured tags.
// Configured tags keep their description. Configured tags not used by any
// operation are still included. The result is sorted by name.
func mergeTags(configured []config.Tag, paths map[string]*PathItem) []Tag {
	userTags := make(map[string]config.Tag, len(configured))
	for _, tag := range configured {
		userTags[tag.Name] = tag
	}

	seen := make(map[string]bool)
	var tags []Tag
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		tags = append(tags, Tag{Name: name, Description: userTags[name].Description})
	}

	for _, item := range paths {
		for _, op := range item.Operations() {
			for _, name := range op.Tags {
				add(name)
			}
		}
	}
	for _, tag := range configured {
		add(tag.Name)
	}

	slices.SortFunc(tags, func(a, b Tag) int { return cmp.Compare(a.Name, b.Name) })
	return tags
}

// assignOperation assigns an operation to the verb field of the path item.
// It reports false when the verb is already taken.
func assignOperation(item *PathItem, verb string, op *Operation) bool {
	var slot **Operation
	switch verb {
	case "get":
		slot = &item.Get
	case "put":
		slot = &item.Put
	case "post":
		slot = &item.Post
	case "delete":
		slot = &item.Delete
	case "options":
		slot = &item.Options
	case "head":
		slot = &item.Head
	case "patch":
		slot = &item.Patch
	case "trace":
		slot = &item.Trace
	default:
		return false
	}
	if *slot != nil {
		return false
	}
	*slot = op
	return true
}

// parsePath converts a route path to OpenAPI form and returns its
// variables in order. It accepts :name and *name segments and {name} or
// {name:pattern} placeholders; braces inside the pattern must balance.
func parsePath(tpl string) (string, []pathVar) {
	var vars []pathVar

	segments := strings.Split(tpl, "/")
	for i, seg := range segments {
		if len(seg) > 1 && (seg[0] == ':' || seg[0] == '*') {
			vars = append(vars, pathVar{name: seg[1:]})
			segments[i] = "{" + seg[1:] + "}"
			continue
		}
		segments[i], vars = replaceVars(seg, vars)
	}

	return strings.Join(segments, "/"), vars
}

// replaceVars rewrites every {name:pattern} placeholder of seg to {name}.
// An unterminated placeholder is kept as-is.
func replaceVars(seg string, vars []pathVar) (string, []pathVar) {
	var b strings.Builder
	for {
		start := strings.IndexByte(seg, '{')
		if start < 0 {
			break
		}
		end := closingBrace(seg, start)
		if end < 0 || end == start+1 {
			break
		}

		name, macro, _ := strings.Cut(seg[start+1:end], ":")
		vars = append(vars, pathVar{name: name, macro: macro})
		b.WriteString(seg[:start])
		b.WriteString("{" + name + "}")
		seg = seg[end+1:]
	}
	b.WriteString(seg)
	return b.String(), vars
}

// closingBrace returns the index of the brace closing the one at open, or
// -1.
func closingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
