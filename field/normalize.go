package field

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/vitalvas/refdoc/docerrors"
)

// scalarTags maps every accepted scalar tag to its canonical spelling.
var scalarTags = map[string]string{
	"string":    "string",
	"integer":   "integer",
	"number":    "number",
	"float":     "number",
	"boolean":   "boolean",
	"uuid":      "uuid",
	"email":     "email",
	"date":      "date",
	"datetime":  "datetime",
	"date-time": "datetime",
	"time":      "time",
	"byte":      "byte",
	"binary":    "binary",
	"password":  "password",
	"uri":       "uri",
	"url":       "uri",
	"hostname":  "hostname",
	"ipv4":      "ipv4",
	"ipv6":      "ipv6",
}

// structuralTags maps the container type tags to their kind.
var structuralTags = map[string]Kind{
	"object": KindObject,
	"list":   KindList,
	"array":  KindList,
	"one_of": KindOneOf,
}

// refPrefixes maps the textual ref prefixes to the definition kind.
var refPrefixes = map[string]DefKind{
	"schemas":        DefSchema,
	"responses":      DefResponse,
	"request_bodies": DefRequestBody,
	"requestBodies":  DefRequestBody,
	"headers":        DefHeaders,
}

// IsScalarTag reports whether tag names a primitive type.
func IsScalarTag(tag string) bool {
	_, ok := scalarTags[tag]
	return ok
}

// Option configures Normalize.
type Option func(*normalizer)

// WithResolver sets the resolver used for textual {"$ref": ...} input.
func WithResolver(r Resolver) Option {
	return func(n *normalizer) {
		n.resolver = r
	}
}

type normalizer struct {
	resolver Resolver
}

// Normalize converts raw input into a canonical Field. It is a pure function
// of its input: normalizing a Field returns it unchanged.
func Normalize(input any, opts ...Option) (Field, error) {
	n := &normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n.normalize(input, "")
}

// NormalizeMap normalizes every value of a name -> raw mapping, as used for
// parameter and header maps. Nil input yields a nil map, and names whose
// descriptor is absent are left out.
func NormalizeMap(input any, opts ...Option) (map[string]Field, error) {
	if input == nil {
		return nil, nil
	}
	m, ok := AsMap(input)
	if !ok {
		return nil, &docerrors.NormalizeError{Message: fmt.Sprintf("expected a mapping, got %T", input)}
	}
	n := &normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	out := make(map[string]Field, len(m))
	for _, name := range sortedKeys(m) {
		f, err := n.normalize(m[name], name)
		if err != nil {
			return nil, err
		}
		if f.IsZero() {
			continue
		}
		out[name] = f
	}
	return out, nil
}

func (n *normalizer) normalize(input any, path string) (Field, error) {
	switch v := input.(type) {
	case nil:
		return Field{}, nil
	case Definition:
		if nilDefinition(v) {
			return Field{}, fail(path, "nil %T definition", v)
		}
		return RefTo(v), nil
	case Field:
		return v, nil
	case *Field:
		if v == nil {
			return Field{}, nil
		}
		return *v, nil
	case string:
		return n.fromTag(v, path)
	}

	if m, ok := AsMap(input); ok {
		return n.fromMap(m, path)
	}
	if s, ok := AsSlice(input); ok {
		return n.members(KindList, s, path)
	}

	return Field{}, fail(path, "unsupported input of type %T", input)
}

func (n *normalizer) fromTag(tag string, path string) (Field, error) {
	if canonical, ok := scalarTags[tag]; ok {
		return Field{Kind: KindPrimitive, Type: canonical}, nil
	}
	switch structuralTags[tag] {
	case KindObject:
		return Object(nil), nil
	case KindList:
		return ListOf(), nil
	case KindOneOf:
		return OneOf(), nil
	}
	return Field{}, fail(path, "unknown type %q", tag)
}

func (n *normalizer) fromMap(m map[string]any, path string) (Field, error) {
	if len(m) == 0 {
		return Field{}, nil
	}

	if raw, ok := m["$ref"]; ok {
		def, err := n.resolveRef(raw, join(path, "$ref"))
		if err != nil {
			return Field{}, err
		}
		f := RefTo(def)
		if err := applyMeta(&f, m, path, "description", "required"); err != nil {
			return Field{}, err
		}
		return f, nil
	}

	typ, hasType := m["type"]
	if !hasType {
		return n.object(m, path, "")
	}

	switch t := typ.(type) {
	case Definition:
		if nilDefinition(t) {
			return Field{}, fail(join(path, "type"), "nil %T definition", t)
		}
		f := RefTo(t)
		if err := applyMeta(&f, m, path, "description", "required"); err != nil {
			return Field{}, err
		}
		return f, nil
	case string:
		if canonical, ok := scalarTags[t]; ok {
			f := Field{Kind: KindPrimitive, Type: canonical}
			if err := applyMeta(&f, m, path, "description", "default", "enum", "minimum", "maximum", "required", "format"); err != nil {
				return Field{}, err
			}
			return f, nil
		}
		switch kind, ok := structuralTags[t]; {
		case !ok:
		case kind == KindObject:
			return n.typedObject(m, path)
		default:
			return n.typedMembers(kind, m, path)
		}
	}

	// A "type" key that is not a recognized tag is just a property name.
	return n.object(m, path, "")
}

func (n *normalizer) typedObject(m map[string]any, path string) (Field, error) {
	var f Field
	switch props := m["properties"].(type) {
	case nil:
		f = Object(nil)
	default:
		pm, ok := AsMap(props)
		if !ok {
			return Field{}, fail(join(path, "properties"), "expected a mapping, got %T", props)
		}
		var err error
		if f, err = n.object(pm, path, "properties"); err != nil {
			return Field{}, err
		}
	}
	if err := applyMeta(&f, m, path, "description", "required"); err != nil {
		return Field{}, err
	}
	return f, nil
}

func (n *normalizer) typedMembers(kind Kind, m map[string]any, path string) (Field, error) {
	var members []any
	switch of := m["of"].(type) {
	case nil:
	default:
		if s, ok := AsSlice(of); ok {
			members = s
		} else {
			members = []any{of}
		}
	}
	f, err := n.members(kind, members, join(path, "of"))
	if err != nil {
		return Field{}, err
	}
	if err := applyMeta(&f, m, path, "description", "required"); err != nil {
		return Field{}, err
	}
	return f, nil
}

func (n *normalizer) object(props map[string]any, path, segment string) (Field, error) {
	out := make(map[string]Field, len(props))
	base := join(path, segment)
	for _, name := range sortedKeys(props) {
		child, err := n.normalize(props[name], join(base, name))
		if err != nil {
			return Field{}, err
		}
		if child.IsZero() {
			continue
		}
		out[name] = child
	}
	return Object(out), nil
}

func (n *normalizer) members(kind Kind, raw []any, path string) (Field, error) {
	out := make([]Field, 0, len(raw))
	for i, item := range raw {
		child, err := n.normalize(item, path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return Field{}, err
		}
		if child.IsZero() {
			continue
		}
		out = append(out, child)
	}
	return Field{Kind: kind, Of: out}, nil
}

func (n *normalizer) resolveRef(raw any, path string) (Definition, error) {
	if def, ok := raw.(Definition); ok {
		if nilDefinition(def) {
			return nil, fail(path, "nil %T definition", def)
		}
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fail(path, "expected a string, got %T", raw)
	}
	prefix, name, found := strings.Cut(strings.TrimPrefix(s, "#/components/"), "/")
	kind, known := refPrefixes[prefix]
	if !found || !known || name == "" {
		return nil, fail(path, "malformed ref %q (want <kind>/<Name>)", s)
	}
	if n.resolver == nil {
		return nil, &docerrors.NormalizeError{
			Path:    path,
			Message: "textual ref used without a resolver",
			Cause:   &docerrors.ReferenceError{Kind: kind.String(), Name: name},
		}
	}
	def, ok := n.resolver.Resolve(kind, name)
	if !ok || def == nil || nilDefinition(def) {
		return nil, &docerrors.NormalizeError{
			Path:  path,
			Cause: &docerrors.ReferenceError{Kind: kind.String(), Name: name, Message: "not defined"},
		}
	}
	return def, nil
}

// applyMeta copies the allowed metadata keys from m onto f, validating each.
// Keys outside allowed are dropped.
func applyMeta(f *Field, m map[string]any, path string, allowed ...string) error {
	for _, key := range allowed {
		raw, ok := m[key]
		if !ok || raw == nil {
			continue
		}
		at := join(path, key)
		switch key {
		case "description":
			s, ok := raw.(string)
			if !ok {
				return fail(at, "expected a string, got %T", raw)
			}
			f.Description = s
		case "format":
			s, ok := raw.(string)
			if !ok {
				return fail(at, "expected a string, got %T", raw)
			}
			f.Format = s
		case "required":
			b, ok := raw.(bool)
			if !ok {
				return fail(at, "expected a boolean, got %T", raw)
			}
			f.Required = b
		case "enum":
			s, ok := AsSlice(raw)
			if !ok {
				return fail(at, "expected a sequence, got %T", raw)
			}
			f.Enum = s
		case "minimum", "maximum":
			v, ok := toFloat(raw)
			if !ok {
				return fail(at, "expected a number, got %T", raw)
			}
			if key == "minimum" {
				f.Minimum = &v
			} else {
				f.Maximum = &v
			}
		case "default":
			if f.Type == "uuid" {
				s, ok := raw.(string)
				if !ok {
					return fail(at, "expected a uuid string, got %T", raw)
				}
				if _, err := uuid.Parse(s); err != nil {
					return &docerrors.NormalizeError{Path: at, Message: "invalid uuid default", Cause: err}
				}
			}
			f.Default = raw
		}
	}
	if f.Minimum != nil && f.Maximum != nil && *f.Minimum > *f.Maximum {
		return fail(path, "minimum %v exceeds maximum %v", *f.Minimum, *f.Maximum)
	}
	return nil
}

// AsMap converts any mapping value to map[string]any. Non-string keys are
// formatted with fmt, so YAML status-code keys such as 200 become "200".
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		var key string
		if k.Kind() == reflect.String {
			key = k.String()
		} else {
			key = fmt.Sprint(k.Interface())
		}
		out[key] = iter.Value().Interface()
	}
	return out, true
}

// AsSlice converts any slice or array value (other than []byte) to []any.
func AsSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func join(path, segment string) string {
	switch {
	case segment == "":
		return path
	case path == "":
		return segment
	}
	return path + "." + segment
}

// nilDefinition reports whether def is a nil pointer wrapped in the
// interface.
func nilDefinition(def Definition) bool {
	v := reflect.ValueOf(def)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func fail(path, format string, args ...any) error {
	return &docerrors.NormalizeError{Path: path, Message: fmt.Sprintf(format, args...)}
}
