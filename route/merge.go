package route

import (
	"maps"
	"slices"

	"github.com/vitalvas/refdoc/field"
)

// Merge deep-merges src over dst and returns a new mapping. Nested mappings
// merge key by key; every other value, lists included, is replaced by src.
// Neither input is modified.
func Merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	maps.Copy(out, dst)

	for key, sv := range src {
		dv, ok := out[key]
		if !ok {
			out[key] = sv
			continue
		}
		dm, dIsMap := field.AsMap(dv)
		sm, sIsMap := field.AsMap(sv)
		if dIsMap && sIsMap {
			out[key] = Merge(dm, sm)
			continue
		}
		out[key] = sv
	}

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
