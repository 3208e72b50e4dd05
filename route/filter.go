package route

import (
	"fmt"
	"path"
	"reflect"
	"slices"
	"strings"

	"github.com/vitalvas/refdoc/docerrors"
	"github.com/vitalvas/refdoc/field"
)

// Filter selects routes to exclude from the document.
type Filter interface {
	Match(r Route) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(r Route) bool

// Match calls f(r).
func (f FilterFunc) Match(r Route) bool {
	return f(r)
}

// MatchFields is a structural filter. A route matches when every set
// criterion matches.
type MatchFields struct {
	// Path is a path.Match pattern, or a prefix when it ends in "*".
	Path string
	// Verb matches case-insensitively.
	Verb string
	ID   string
	// Tags must all be present on the route.
	Tags []string
	// Pipelines must all be memberships of the route.
	Pipelines  []string
	Documented *bool
	// Metadata must be a subset of the route metadata.
	Metadata map[string]any
}

// ParseFilter builds a MatchFields from a mapping with the keys path, verb,
// id, tags, pipelines, documented and metadata.
func ParseFilter(raw map[string]any) (*MatchFields, error) {
	if len(raw) == 0 {
		return nil, &docerrors.ConfigError{Message: "empty filter would exclude every route"}
	}

	m := &MatchFields{}
	for _, key := range sortedKeys(raw) {
		v := raw[key]
		var err error
		switch key {
		case "path":
			m.Path, err = stringValue(v)
			if err == nil {
				_, err = path.Match(m.Path, "/")
			}
		case "verb":
			m.Verb, err = stringValue(v)
		case "id":
			m.ID, err = stringValue(v)
		case "tags":
			m.Tags, err = stringList(v)
		case "pipelines":
			m.Pipelines, err = stringList(v)
		case "documented":
			b, ok := v.(bool)
			if !ok {
				err = fmt.Errorf("expected a boolean, got %T", v)
			}
			m.Documented = &b
		case "metadata":
			mm, ok := field.AsMap(v)
			if !ok {
				err = fmt.Errorf("expected a mapping, got %T", v)
			}
			m.Metadata = mm
		default:
			return nil, &docerrors.ConfigError{Field: key, Message: "unknown filter key"}
		}
		if err != nil {
			return nil, &docerrors.ConfigError{Field: key, Cause: err}
		}
	}
	return m, nil
}

// Match reports whether r satisfies every set criterion.
func (m *MatchFields) Match(r Route) bool {
	if m.Path != "" && !matchPath(m.Path, r.Path) {
		return false
	}
	if m.Verb != "" && !strings.EqualFold(m.Verb, r.Verb) {
		return false
	}
	if m.ID != "" && m.ID != r.ID {
		return false
	}
	for _, tag := range m.Tags {
		if !slices.Contains(r.Tags, tag) {
			return false
		}
	}
	for _, p := range m.Pipelines {
		if !slices.Contains(r.Pipelines, p) {
			return false
		}
	}
	if m.Documented != nil && *m.Documented != r.Documented {
		return false
	}
	for key, want := range m.Metadata {
		got, ok := r.Metadata[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func matchPath(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok && !strings.ContainsAny(prefix, "*?[") {
		return strings.HasPrefix(p, prefix)
	}
	ok, err := path.Match(pattern, p)
	return err == nil && ok
}

// Exclude returns the routes that match none of the filters. The input
// slice is not modified.
func Exclude(routes []Route, filters []Filter) []Route {
	if len(filters) == 0 {
		return routes
	}
	out := make([]Route, 0, len(routes))
	for _, r := range routes {
		excluded := slices.ContainsFunc(filters, func(f Filter) bool { return f.Match(r) })
		if !excluded {
			out = append(out, r)
		}
	}
	return out
}
