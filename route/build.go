package route

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLocale is used to pick a description from a per-locale mapping.
const DefaultLocale = "en"

var (
	identPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	statusPattern = regexp.MustCompile(`^[1-5]([0-9]{2}|XX)$`)
	wordSplit     = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// BuildOption configures Build.
type BuildOption func(*builder)

// WithResolver sets the resolver for textual refs in annotation metadata.
func WithResolver(r field.Resolver) BuildOption {
	return func(b *builder) {
		b.resolver = r
	}
}

// WithLocale selects the description locale. Defaults to DefaultLocale.
func WithLocale(locale string) BuildOption {
	return func(b *builder) {
		if locale != "" {
			b.locale = locale
		}
	}
}

type builder struct {
	resolver field.Resolver
	locale   string
}

func (b *builder) options() []field.Option {
	if b.resolver == nil {
		return nil
	}
	return []field.Option{field.WithResolver(b.resolver)}
}

// Build constructs the route for ep. ann may be nil, which yields an
// undocumented route that still inherits its pipeline defaults. Malformed
// metadata fails with a *docerrors.RouteError.
func Build(ep Endpoint, ann *Annotation, pipelines map[string]Pipeline, opts ...BuildOption) (Route, error) {
	b := &builder{locale: DefaultLocale}
	for _, opt := range opts {
		opt(b)
	}

	r, err := b.build(ep, ann, pipelines)
	if err != nil {
		return Route{}, &docerrors.RouteError{
			Verb:   ep.Verb,
			Path:   ep.Path,
			Handle: ep.Handle,
			Cause:  err,
		}
	}
	return r, nil
}

func (b *builder) build(ep Endpoint, ann *Annotation, pipelines map[string]Pipeline) (Route, error) {
	verb := strings.ToLower(ep.Verb)
	if !slices.Contains(Verbs, verb) {
		return Route{}, fmt.Errorf("unsupported verb %q", ep.Verb)
	}
	if !strings.HasPrefix(ep.Path, "/") {
		return Route{}, fmt.Errorf("path %q must start with /", ep.Path)
	}

	members, err := membership(ep, pipelines)
	if err != nil {
		return Route{}, err
	}

	merged := map[string]any{}
	for _, name := range members {
		merged = Merge(merged, pipelines[name].Defaults)
	}

	r := Route{
		Path:       ep.Path,
		Verb:       verb,
		Handle:     ep.Handle,
		Pipelines:  members,
		Documented: ann != nil,
	}

	if ann != nil {
		merged = Merge(merged, ann.Metadata)
		desc, err := b.description(ann.Description)
		if err != nil {
			return Route{}, err
		}
		r.Description = desc
	}

	for _, key := range sortedKeys(merged) {
		if err := b.apply(&r, key, merged[key]); err != nil {
			return Route{}, err
		}
	}

	if r.ID == "" {
		r.ID = operationID(verb, ep.Path, ep.Handle)
		r.handleID = r.ID == ep.Handle
	}

	return r, nil
}

// membership returns the endpoint's explicit pipelines followed by every
// pipeline whose prefixes match the path, without duplicates.
func membership(ep Endpoint, pipelines map[string]Pipeline) ([]string, error) {
	var members []string
	for _, name := range ep.Pipelines {
		if _, ok := pipelines[name]; !ok {
			return nil, fmt.Errorf("unknown pipeline %q", name)
		}
		if !slices.Contains(members, name) {
			members = append(members, name)
		}
	}
	for _, name := range sortedKeys(pipelines) {
		if slices.Contains(members, name) {
			continue
		}
		for _, prefix := range pipelines[name].Prefixes {
			if strings.HasPrefix(ep.Path, prefix) {
				members = append(members, name)
				break
			}
		}
	}
	return members, nil
}

func (b *builder) description(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	m, ok := field.AsMap(raw)
	if !ok {
		return "", fmt.Errorf("description: expected a string or a locale mapping, got %T", raw)
	}
	pick := func(locale string) (string, bool, error) {
		v, ok := m[locale]
		if !ok {
			return "", false, nil
		}
		s, isString := v.(string)
		if !isString {
			return "", false, fmt.Errorf("description.%s: expected a string, got %T", locale, v)
		}
		return s, true, nil
	}
	for _, locale := range []string{b.locale, DefaultLocale} {
		s, ok, err := pick(locale)
		if err != nil || ok {
			return s, err
		}
	}
	if keys := sortedKeys(m); len(keys) > 0 {
		s, _, err := pick(keys[0])
		return s, err
	}
	return "", nil
}

func (b *builder) apply(r *Route, key string, raw any) error {
	var err error
	switch key {
	case "headers":
		r.Headers, err = field.NormalizeMap(raw, b.options()...)
	case "path_params":
		r.PathParams, err = field.NormalizeMap(raw, b.options()...)
	case "query_params":
		r.QueryParams, err = field.NormalizeMap(raw, b.options()...)
	case "body":
		r.Body, err = field.Normalize(raw, b.options()...)
	case "responses":
		r.Responses, err = b.responses(raw)
	case "auth":
		r.Auth, err = parseAuth(raw)
	case "tags":
		r.Tags, err = stringList(raw)
	case "metadata":
		if raw != nil {
			m, ok := field.AsMap(raw)
			if !ok {
				err = fmt.Errorf("expected a mapping, got %T", raw)
			}
			r.Metadata = m
		}
	case "summary":
		r.Summary, err = stringValue(raw)
	case "operation_id":
		r.ID, err = stringValue(raw)
	case "deprecated":
		var ok bool
		if r.Deprecated, ok = raw.(bool); !ok && raw != nil {
			err = fmt.Errorf("expected a boolean, got %T", raw)
		}
	default:
		return fmt.Errorf("unknown annotation key %q", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (b *builder) responses(raw any) (map[string]Response, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := field.AsMap(raw)
	if !ok {
		return nil, fmt.Errorf("expected a status -> body mapping, got %T", raw)
	}
	out := make(map[string]Response, len(m))
	for _, code := range sortedKeys(m) {
		if code != "default" && !statusPattern.MatchString(code) {
			return nil, fmt.Errorf("invalid status code %q", code)
		}
		v := m[code]
		if v == nil || v == NoBody {
			out[code] = Response{NoBody: true}
			continue
		}
		f, err := field.Normalize(v, b.options()...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", code, err)
		}
		if f.IsZero() {
			out[code] = Response{NoBody: true}
			continue
		}
		out[code] = Response{Field: f}
	}
	return out, nil
}

func parseAuth(raw any) (map[string][]string, error) {
	if raw == nil {
		return nil, nil
	}
	if list, ok := field.AsSlice(raw); ok {
		out := make(map[string][]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("[%d]: expected a scheme name, got %T", i, item)
			}
			out[s] = []string{}
		}
		return out, nil
	}
	m, ok := field.AsMap(raw)
	if !ok {
		return nil, fmt.Errorf("expected a scheme -> scopes mapping, got %T", raw)
	}
	out := make(map[string][]string, len(m))
	for _, scheme := range sortedKeys(m) {
		scopes, err := stringList(m[scheme])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", scheme, err)
		}
		if scopes == nil {
			scopes = []string{}
		}
		out[scheme] = scopes
	}
	return out, nil
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return slices.Clone(v), nil
	}
	list, ok := field.AsSlice(raw)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings, got %T", raw)
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("[%d]: expected a string, got %T", i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func stringValue(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	return "", fmt.Errorf("expected a string, got %T", raw)
}

// operationID returns handle when it is a plain identifier, otherwise an
// identifier derived from verb and path: GET /users/:id -> getUsersId.
func operationID(verb, path, handle string) string {
	if identPattern.MatchString(handle) {
		return handle
	}

	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	b.WriteString(verb)
	for _, segment := range strings.Split(path, "/") {
		if name, _, ok := strings.Cut(strings.Trim(segment, "{}"), ":"); ok && strings.HasPrefix(segment, "{") {
			segment = name
		}
		for _, word := range wordSplit.Split(segment, -1) {
			if word != "" {
				b.WriteString(title.String(word))
			}
		}
	}
	if b.Len() == len(verb) {
		b.WriteString("Root")
	}
	return b.String()
}

// UniqueIDs returns routes with every id taken from a handle shared by
// more than one route replaced by the id derived from verb and path. A
// handle bound to several verbs would otherwise name each operation the
// same.
func UniqueIDs(routes []Route) []Route {
	uses := make(map[string]int)
	for _, r := range routes {
		if r.handleID {
			uses[r.Handle]++
		}
	}

	out := make([]Route, len(routes))
	for i, r := range routes {
		if r.handleID && uses[r.Handle] > 1 {
			r.ID = operationID(r.Verb, r.Path, "")
			r.handleID = false
		}
		out[i] = r
	}
	return out
}

// StatusCode parses a numeric response key. ok is false for "default" and
// range keys such as "2XX".
func StatusCode(key string) (int, bool) {
	code, err := strconv.Atoi(key)
	return code, err == nil
}
