package field

// Kind identifies the shape of a Field.
type Kind int

const (
	// KindNone is the empty descriptor produced by nil or empty input.
	// Callers treat it as "absent", never as an object with no properties.
	KindNone Kind = iota
	KindPrimitive
	KindObject
	KindList
	KindOneOf
	KindRef
)

var kindNames = [...]string{
	KindNone:      "none",
	KindPrimitive: "primitive",
	KindObject:    "object",
	KindList:      "list",
	KindOneOf:     "one_of",
	KindRef:       "ref",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// DefKind is the discriminant tag carried by every named definition.
type DefKind int

const (
	DefSchema DefKind = iota + 1
	DefResponse
	DefRequestBody
	DefHeaders
)

func (k DefKind) String() string {
	switch k {
	case DefSchema:
		return "schema"
	case DefResponse:
		return "response"
	case DefRequestBody:
		return "request_body"
	case DefHeaders:
		return "headers"
	}
	return "unknown"
}

// Definition is implemented by every named, reusable definition a ref field
// can point at. The value itself is the definition's identity.
type Definition interface {
	DefKind() DefKind
	DefName() string
}

// Resolver looks up a definition by kind and registered name. It backs the
// textual {"$ref": "schemas/User"} form used in YAML input.
type Resolver interface {
	Resolve(kind DefKind, name string) (Definition, bool)
}

// Field is the canonical representation of a type description. A Field is a
// value: once built it is never modified, and the maps and slices it holds
// must not be mutated by callers.
type Field struct {
	Kind Kind

	// Type is the scalar tag of a primitive field (e.g. "uuid", "integer").
	Type string

	Description string
	Default     any
	Enum        []any
	Minimum     *float64
	Maximum     *float64
	Format      string

	// Required marks the field as required within its parent object or, for
	// parameters and headers, as a required parameter.
	Required bool

	// Properties holds the children of an object field.
	Properties map[string]Field

	// Of holds the members of a list or the alternatives of a one_of field.
	Of []Field

	// Ref is the target of a ref field.
	Ref Definition
}

// IsZero reports whether the field is the empty descriptor.
func (f Field) IsZero() bool {
	return f.Kind == KindNone
}

// Primitive returns a primitive field for a scalar tag. The tag is
// canonicalized the same way Normalize does; unknown tags are kept as-is.
func Primitive(tag string) Field {
	if canonical, ok := scalarTags[tag]; ok {
		tag = canonical
	}
	return Field{Kind: KindPrimitive, Type: tag}
}

// Object returns an object field over the given properties.
func Object(props map[string]Field) Field {
	if props == nil {
		props = map[string]Field{}
	}
	return Field{Kind: KindObject, Properties: props}
}

// ListOf returns a list field with the given member types.
func ListOf(members ...Field) Field {
	if members == nil {
		members = []Field{}
	}
	return Field{Kind: KindList, Of: members}
}

// OneOf returns a polymorphic field with the given alternatives.
func OneOf(members ...Field) Field {
	if members == nil {
		members = []Field{}
	}
	return Field{Kind: KindOneOf, Of: members}
}

// RefTo returns a ref field pointing at def.
func RefTo(def Definition) Field {
	return Field{Kind: KindRef, Ref: def}
}

// Describe returns a copy of f with the description set.
func (f Field) Describe(desc string) Field {
	f.Description = desc
	return f
}

// Require returns a copy of f marked as required.
func (f Field) Require() Field {
	f.Required = true
	return f
}

// Walk visits f and its descendants depth-first. Ref fields are visited but
// never followed into their target. Returning false from fn skips the
// children of the current field.
func Walk(f Field, fn func(Field) bool) {
	if !fn(f) {
		return
	}
	switch f.Kind {
	case KindObject:
		for _, name := range sortedKeys(f.Properties) {
			Walk(f.Properties[name], fn)
		}
	case KindList, KindOneOf:
		for _, m := range f.Of {
			Walk(m, fn)
		}
	}
}

// Refs returns the distinct ref targets reachable from f without crossing a
// ref boundary, in first-seen order. f itself is included when it is a ref.
func Refs(f Field) []Definition {
	var (
		out  []Definition
		seen map[Definition]struct{}
	)
	Walk(f, func(n Field) bool {
		if n.Kind != KindRef || n.Ref == nil {
			return true
		}
		if seen == nil {
			seen = make(map[Definition]struct{})
		}
		if _, ok := seen[n.Ref]; !ok {
			seen[n.Ref] = struct{}{}
			out = append(out, n.Ref)
		}
		return false
	})
	return out
}
