// Package field converts heterogeneous type declarations into the canonical
// Field tree that the rest of refdoc works on.
//
// # Input forms
//
// Normalize accepts raw input as it appears in Go literals or decoded YAML:
//
//	"uuid"                                       // primitive
//	map[string]any{"type": "integer", "minimum": 1, "required": true}
//	map[string]any{"id": "uuid", "name": "string"} // object shorthand
//	[]any{"uuid", userSchema}                    // list shorthand
//	map[string]any{"type": "one_of", "of": []any{catSchema, dogSchema}}
//	userSchema                                   // any Definition -> ref
//	map[string]any{"$ref": "schemas/User"}       // textual ref, needs a Resolver
//
// Ref detection takes precedence over every other rule, and normalizing an
// already normalized Field returns it unchanged, so raw and canonical values
// may be mixed freely inside one structure.
//
// # Empty input
//
// nil and empty mappings normalize to the zero Field (KindNone). Callers must
// treat it as absent rather than as an object with no properties.
package field
