package helper

import (
	"fmt"
	"sort"
	"strings"
)

// PathValue is one leaf of a flattened JSON document.
type PathValue struct {
	Path  string
	Value string
	Depth int
}

// Flatten walks a schema-less JSON document and returns its leaves as
// dot-separated (path, value) pairs, up to maxDepth levels of nesting.
// Map keys are visited in sorted order so the output is deterministic.
func Flatten(doc map[string]interface{}, maxDepth int) []PathValue {
	var out []PathValue
	flattenValue(doc, "", 0, maxDepth, &out)
	return out
}

func flattenValue(value interface{}, path string, depth int, maxDepth int, out *[]PathValue) {
	if depth > maxDepth {
		return
	}

	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			flattenValue(v[key], childPath, depth+1, maxDepth, out)
		}
	case []interface{}:
		// Arrays of scalars collapse to one joined leaf; nested values
		// recurse with their index in the path.
		var scalars []string
		for i, item := range v {
			switch item.(type) {
			case map[string]interface{}, []interface{}:
				flattenValue(item, fmt.Sprintf("%v.%v", path, i), depth+1, maxDepth, out)
			default:
				scalars = append(scalars, formatScalar(item))
			}
		}
		if len(scalars) > 0 && path != "" {
			*out = append(*out, PathValue{Path: path, Value: strings.Join(scalars, ", "), Depth: depth})
		}
	case nil:
		// Skip null leaves
	default:
		if path != "" {
			*out = append(*out, PathValue{Path: path, Value: formatScalar(v), Depth: depth})
		}
	}
}

func formatScalar(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
