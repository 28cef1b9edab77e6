// FILE: confspec/flatten_test.go

package confspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenMap(t *testing.T) {
	nested := map[string]any{
		"db": map[string]any{
			"name": "mydb",
			"port": 5432,
		},
		"hosts": []any{"a", "b"},
		"servers": []any{
			map[string]any{"host": "x", "deep": map[string]any{"k": 1}},
		},
		"top": "value",
	}

	flat := flattenMap(nested, ".", "")

	assert.Equal(t, "mydb", flat["db.name"])
	assert.Equal(t, 5432, flat["db.port"])
	assert.Equal(t, "value", flat["top"])
	assert.Equal(t, []any{"a", "b"}, flat["hosts"])

	// Dict elements of lists are flattened in place.
	servers, ok := flat["servers"].([]any)
	require.True(t, ok)
	require.Len(t, servers, 1)
	assert.Equal(t, map[string]any{"host": "x", "deep.k": 1}, servers[0])

	_, hasNested := flat["db"]
	assert.False(t, hasNested)
}

func TestSetNestedValue(t *testing.T) {
	nested := make(map[string]any)
	setNestedValue(nested, "db.pool.size", ".", 10)
	setNestedValue(nested, "db.name", ".", "mydb")
	setNestedValue(nested, "debug", ".", true)

	assert.Equal(t, map[string]any{
		"db": map[string]any{
			"pool": map[string]any{"size": 10},
			"name": "mydb",
		},
		"debug": true,
	}, nested)

	// Overwriting a scalar with a deeper path replaces it with a map.
	setNestedValue(nested, "debug.level", ".", 3)
	assert.Equal(t, map[string]any{"level": 3}, nested["debug"])
}

func TestSearchNested(t *testing.T) {
	nested := map[string]any{
		"db": map[string]any{"port": 5432},
		"x":  1,
	}

	assert.Equal(t, 5432, searchNested(nested, "db.port", "."))
	assert.Equal(t, 1, searchNested(nested, "x", "."))
	assert.Nil(t, searchNested(nested, "db.missing", "."))
	assert.Nil(t, searchNested(nested, "x.port", "."))
	assert.Nil(t, searchNested(nested, "missing.port", "."))
}

func TestDeepCopyMap(t *testing.T) {
	src := map[string]any{
		"db":   map[string]any{"port": 5432},
		"list": []any{map[string]any{"k": "v"}},
	}
	dst := deepCopyMap(src)
	require.Equal(t, src, dst)

	dst["db"].(map[string]any)["port"] = 9999
	dst["list"].([]any)[0].(map[string]any)["k"] = "changed"

	assert.Equal(t, 5432, src["db"].(map[string]any)["port"])
	assert.Equal(t, "v", src["list"].([]any)[0].(map[string]any)["k"])
}
