// FILE: confspec/config.go

package confspec

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is the result of a load: a nested mapping of resolved values with
// typed accessors. A Config is an immutable snapshot; accessors never mutate
// it and Map returns a deep copy.
type Config struct {
	data      map[string]any
	separator string
}

func newConfig(data map[string]any, separator string) Config {
	return Config{data: data, separator: separator}
}

// Map returns a deep copy of the resolved configuration.
func (c Config) Map() map[string]any {
	return deepCopyMap(c.data)
}

// Get returns the value at a separator-joined path and whether it exists.
func (c Config) Get(path string) (any, bool) {
	if value := searchNested(c.data, path, c.separator); value != nil {
		return value, true
	}
	// Distinguish a stored nil from an absent path.
	segments := splitPath(path, c.separator)
	current := any(c.data)
	for _, segment := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String returns the value at path as a string.
func (c Config) String(path string) (string, error) {
	value, found := c.Get(path)
	if !found {
		return "", fmt.Errorf("%w: no value at path %s", ErrItemNotFound, path)
	}
	if value == nil {
		return "", nil
	}
	return toString(value), nil
}

// Int64 returns the value at path as an int64.
func (c Config) Int64(path string) (int64, error) {
	value, found := c.Get(path)
	if !found {
		return 0, fmt.Errorf("%w: no value at path %s", ErrItemNotFound, path)
	}
	result, err := toInt64(value)
	if err != nil {
		return 0, fmt.Errorf("value at path %s: %w", path, err)
	}
	return result.(int64), nil
}

// Float64 returns the value at path as a float64.
func (c Config) Float64(path string) (float64, error) {
	value, found := c.Get(path)
	if !found {
		return 0, fmt.Errorf("%w: no value at path %s", ErrItemNotFound, path)
	}
	result, err := toFloat64(value)
	if err != nil {
		return 0, fmt.Errorf("value at path %s: %w", path, err)
	}
	return result.(float64), nil
}

// Bool returns the value at path as a bool.
func (c Config) Bool(path string) (bool, error) {
	value, found := c.Get(path)
	if !found {
		return false, fmt.Errorf("%w: no value at path %s", ErrItemNotFound, path)
	}
	result, err := toBool(value)
	if err != nil {
		return false, fmt.Errorf("value at path %s: %w", path, err)
	}
	return result.(bool), nil
}

// Slice returns the value at path as a []any.
func (c Config) Slice(path string) ([]any, error) {
	value, found := c.Get(path)
	if !found {
		return nil, fmt.Errorf("%w: no value at path %s", ErrItemNotFound, path)
	}
	result, err := asSlice(value)
	if err != nil {
		return nil, fmt.Errorf("value at path %s: %w", path, err)
	}
	return result, nil
}

// Scan decodes the section at basePath into target, which must be a non-nil
// struct pointer. Fields are matched by the "conf" tag, falling back to
// case-insensitive field names. An empty basePath decodes the whole config.
func (c Config) Scan(basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: scan target must be a non-nil pointer, got %T",
			ErrValue, target)
	}

	section := any(c.data)
	if basePath != "" {
		section = searchNested(c.data, basePath, c.separator)
	}
	sectionMap, ok := section.(map[string]any)
	if !ok {
		if section == nil {
			sectionMap = map[string]any{}
		} else {
			return fmt.Errorf("%w: path %q refers to a non-map value (type %T)",
				ErrValue, basePath, section)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "conf",
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("%w: decoding path %q: %v", ErrValue, basePath, err)
	}
	return nil
}

func splitPath(path, separator string) []string {
	if path == "" {
		return nil
	}
	var segments []string
	for _, segment := range strings.Split(path, separator) {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
