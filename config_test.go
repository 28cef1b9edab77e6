// FILE: confspec/config_test.go

package confspec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return newConfig(map[string]any{
		"db": map[string]any{
			"name":    "mydb",
			"port":    int64(5432),
			"timeout": "5s",
		},
		"rate":  2.5,
		"debug": true,
		"hosts": []any{"a", "b"},
		"empty": nil,
	}, ".")
}

func TestConfigAccessors(t *testing.T) {
	cfg := testConfig()

	t.Run("String", func(t *testing.T) {
		value, err := cfg.String("db.name")
		require.NoError(t, err)
		assert.Equal(t, "mydb", value)

		// Non-strings are formatted.
		value, err = cfg.String("db.port")
		require.NoError(t, err)
		assert.Equal(t, "5432", value)

		// Stored nil reads as empty.
		value, err = cfg.String("empty")
		require.NoError(t, err)
		assert.Equal(t, "", value)

		_, err = cfg.String("missing")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("Int64", func(t *testing.T) {
		value, err := cfg.Int64("db.port")
		require.NoError(t, err)
		assert.Equal(t, int64(5432), value)

		_, err = cfg.Int64("db.name")
		assert.ErrorIs(t, err, ErrValue)
	})

	t.Run("Float64", func(t *testing.T) {
		value, err := cfg.Float64("rate")
		require.NoError(t, err)
		assert.Equal(t, 2.5, value)
	})

	t.Run("Bool", func(t *testing.T) {
		value, err := cfg.Bool("debug")
		require.NoError(t, err)
		assert.True(t, value)
	})

	t.Run("Slice", func(t *testing.T) {
		value, err := cfg.Slice("hosts")
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, value)
	})

	t.Run("Get", func(t *testing.T) {
		value, found := cfg.Get("db.port")
		assert.True(t, found)
		assert.Equal(t, int64(5432), value)

		value, found = cfg.Get("empty")
		assert.True(t, found)
		assert.Nil(t, value)

		_, found = cfg.Get("db.missing")
		assert.False(t, found)
	})
}

func TestConfigMapIsACopy(t *testing.T) {
	cfg := testConfig()
	m := cfg.Map()
	m["db"].(map[string]any)["name"] = "mutated"

	name, err := cfg.String("db.name")
	require.NoError(t, err)
	assert.Equal(t, "mydb", name)
}

func TestConfigScan(t *testing.T) {
	cfg := testConfig()

	t.Run("Section", func(t *testing.T) {
		var db struct {
			Name    string        `conf:"name"`
			Port    int64         `conf:"port"`
			Timeout time.Duration `conf:"timeout"`
		}
		require.NoError(t, cfg.Scan("db", &db))
		assert.Equal(t, "mydb", db.Name)
		assert.Equal(t, int64(5432), db.Port)
		assert.Equal(t, 5*time.Second, db.Timeout)
	})

	t.Run("WholeConfig", func(t *testing.T) {
		var root struct {
			Rate  float64 `conf:"rate"`
			Debug bool    `conf:"debug"`
		}
		require.NoError(t, cfg.Scan("", &root))
		assert.Equal(t, 2.5, root.Rate)
		assert.True(t, root.Debug)
	})

	t.Run("NonPointerTarget", func(t *testing.T) {
		var db struct{}
		assert.ErrorIs(t, cfg.Scan("db", db), ErrValue)
	})

	t.Run("NonMapPath", func(t *testing.T) {
		var out struct{}
		assert.ErrorIs(t, cfg.Scan("db.name", &out), ErrValue)
	})
}
