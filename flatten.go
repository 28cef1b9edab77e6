// File: confspec/flatten.go

package confspec

import "strings"

// flattenMap converts a nested map[string]any to a flat map whose keys are
// separator-joined paths. List values are kept in place, but each dict
// element of a list is flattened independently so lists of tables survive
// the round trip.
func flattenMap(nested map[string]any, separator, prefix string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		newPath := key
		if prefix != "" {
			newPath = prefix + separator + key
		}

		switch v := value.(type) {
		case map[string]any:
			for subPath, subValue := range flattenMap(v, separator, newPath) {
				flat[subPath] = subValue
			}
		case []any:
			elements := make([]any, 0, len(v))
			for _, element := range v {
				if m, isMap := element.(map[string]any); isMap {
					elements = append(elements, flattenMap(m, separator, ""))
				} else {
					elements = append(elements, element)
				}
			}
			flat[newPath] = elements
		default:
			flat[newPath] = value
		}
	}

	return flat
}

// setNestedValue sets a value in a nested map using a separator-joined path,
// creating intermediate maps as needed. A non-map value found at an
// intermediate segment is overwritten by a new map.
func setNestedValue(nested map[string]any, path, separator string, value any) {
	segments := strings.Split(path, separator)
	current := nested

	for i := 0; i < len(segments)-1; i++ {
		segment := segments[i]

		next, exists := current[segment]
		if !exists {
			newMap := make(map[string]any)
			current[segment] = newMap
			current = newMap
			continue
		}

		if nextMap, isMap := next.(map[string]any); isMap {
			current = nextMap
		} else {
			newMap := make(map[string]any)
			current[segment] = newMap
			current = newMap
		}
	}

	current[segments[len(segments)-1]] = value
}

// searchNested walks a nested map by a separator-joined path and returns the
// value at the leaf, or nil if any segment is missing or not a map.
func searchNested(nested map[string]any, path, separator string) any {
	segments := strings.Split(path, separator)
	current := nested

	for i, segment := range segments {
		if i == len(segments)-1 {
			return current[segment]
		}
		next, exists := current[segment]
		if !exists {
			return nil
		}
		nextMap, isMap := next.(map[string]any)
		if !isMap {
			return nil
		}
		current = nextMap
	}
	return nil
}

// deepCopyMap returns an independent copy of a nested map. Maps and slices
// are copied recursively; leaf values are shared.
func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = deepCopyValue(value)
	}
	return dst
}

func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyMap(v)
	case []any:
		elements := make([]any, len(v))
		for i, element := range v {
			elements[i] = deepCopyValue(element)
		}
		return elements
	default:
		return value
	}
}
