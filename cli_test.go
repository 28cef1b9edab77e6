// FILE: confspec/cli_test.go

package confspec

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlagSet(t *testing.T, spec *Spec, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	spec.AddFlags(fs, false)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestBoolFlagPair(t *testing.T) {
	spec, err := New(Schema{
		"my_bool": {Type: "bool", Required: boolp(false)},
	})
	require.NoError(t, err)

	t.Run("FlagNamesGenerated", func(t *testing.T) {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		spec.AddFlags(fs, false)
		assert.NotNil(t, fs.Lookup("my-bool"))
		assert.NotNil(t, fs.Lookup("no-my-bool"))
	})

	t.Run("PositiveFlag", func(t *testing.T) {
		fs := newTestFlagSet(t, spec, "--my-bool")
		overrides, err := spec.FlagOverrides(fs)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"my_bool": true}, overrides)
	})

	t.Run("NegativeFlag", func(t *testing.T) {
		fs := newTestFlagSet(t, spec, "--no-my-bool")
		overrides, err := spec.FlagOverrides(fs)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"my_bool": false}, overrides)
	})

	t.Run("NeitherFlagYieldsNothing", func(t *testing.T) {
		fs := newTestFlagSet(t, spec)
		overrides, err := spec.FlagOverrides(fs)
		require.NoError(t, err)
		assert.Empty(t, overrides)
	})

	t.Run("BothFlagsRejected", func(t *testing.T) {
		fs := newTestFlagSet(t, spec, "--my-bool", "--no-my-bool")
		_, err := spec.FlagOverrides(fs)
		assert.ErrorIs(t, err, ErrLoad)
	})
}

func TestBoolFlagToggle(t *testing.T) {
	spec, err := New(Schema{
		"verify":  {Type: "bool", Default: true},
		"verbose": {Type: "bool", Default: false},
	})
	require.NoError(t, err)

	// With a default set only the inverting flag is registered.
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	spec.AddFlags(fs, false)
	assert.NotNil(t, fs.Lookup("no-verify"))
	assert.Nil(t, fs.Lookup("verify"))
	assert.NotNil(t, fs.Lookup("verbose"))
	assert.Nil(t, fs.Lookup("no-verbose"))

	fs = newTestFlagSet(t, spec, "--no-verify", "--verbose")
	overrides, err := spec.FlagOverrides(fs)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"verify": false, "verbose": true}, overrides)
}

func TestNestedFlagNames(t *testing.T) {
	spec, err := New(Schema{
		"db": {Type: "dict", Items: Schema{
			"logLevel": {Default: "info"},
			"port":     {Type: "int", Default: 5432},
			"verify":   {Type: "bool", Required: boolp(false)},
		}},
	})
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	spec.AddFlags(fs, false)
	assert.NotNil(t, fs.Lookup("db-log-level"))
	assert.NotNil(t, fs.Lookup("db-port"))
	assert.NotNil(t, fs.Lookup("db-verify"))
	assert.NotNil(t, fs.Lookup("db-no-verify"))

	fs = newTestFlagSet(t, spec, "--db-log-level", "warn", "--db-port", "6432")
	overrides, err := spec.FlagOverrides(fs)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"db": map[string]any{
			"logLevel": "warn",
			"port":     int64(6432),
		},
	}, overrides)

	// Flag values resolve through the normal conversion pipeline.
	cfg, err := spec.LoadConfig(overrides)
	require.NoError(t, err)
	port, err := cfg.Int64("db.port")
	require.NoError(t, err)
	assert.Equal(t, int64(6432), port)
}

func TestRepeatableListFlags(t *testing.T) {
	spec, err := New(Schema{
		"hosts": {Type: "list", Items: Schema{
			"host": {Default: "localhost"},
		}},
	})
	require.NoError(t, err)

	fs := newTestFlagSet(t, spec, "--hosts", "a", "--hosts", "b")
	overrides, err := spec.FlagOverrides(fs)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"hosts": []any{"a", "b"}}, overrides)
}

func TestBoolListFlags(t *testing.T) {
	spec, err := New(Schema{
		"toggles": {Type: "list", Items: Schema{
			"toggle": {Type: "bool", Required: boolp(false)},
		}},
	})
	require.NoError(t, err)

	fs := newTestFlagSet(t, spec, "--toggles", "--no-toggles", "--toggles")
	overrides, err := spec.FlagOverrides(fs)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"toggles": []any{true, false, true}}, overrides)
}

func TestShortNameAndChoices(t *testing.T) {
	spec, err := New(Schema{
		"level": {
			Default:      "info",
			CLIShortName: "l",
			CLIChoices:   []any{"info", "debug"},
		},
	})
	require.NoError(t, err)

	t.Run("ShortFlag", func(t *testing.T) {
		fs := newTestFlagSet(t, spec, "-l", "debug")
		overrides, err := spec.FlagOverrides(fs)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"level": "debug"}, overrides)
	})

	t.Run("CLIChoiceRejected", func(t *testing.T) {
		fs := newTestFlagSet(t, spec, "--level", "trace")
		_, err := spec.FlagOverrides(fs)
		assert.ErrorIs(t, err, ErrValue)
	})
}

func TestCLIExposeAndBootstrap(t *testing.T) {
	spec, err := New(Schema{
		"hidden":  {Default: "x", CLIExpose: boolp(false)},
		"visible": {Default: "y", Bootstrap: true},
		"late":    {Default: "z"},
	})
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	spec.AddFlags(fs, false)
	assert.Nil(t, fs.Lookup("hidden"))
	assert.NotNil(t, fs.Lookup("visible"))
	assert.NotNil(t, fs.Lookup("late"))

	bootstrapSet := pflag.NewFlagSet("bootstrap", pflag.ContinueOnError)
	spec.AddFlags(bootstrapSet, true)
	assert.NotNil(t, bootstrapSet.Lookup("visible"))
	assert.Nil(t, bootstrapSet.Lookup("late"))
}

func TestBootstrapFlagsInsideDicts(t *testing.T) {
	spec, err := New(Schema{
		"sec": {Type: "dict", Items: Schema{
			"cfgfile": {Default: "a.json", Bootstrap: true},
			"token":   {Default: ""},
		}},
		"store": {Type: "dict", Bootstrap: true, Items: Schema{
			"path": {Default: "/var/lib/app"},
		}},
	})
	require.NoError(t, err)

	t.Run("BootstrapChildOfPlainDict", func(t *testing.T) {
		fs := pflag.NewFlagSet("bootstrap", pflag.ContinueOnError)
		spec.AddFlags(fs, true)
		assert.NotNil(t, fs.Lookup("sec-cfgfile"))
		assert.Nil(t, fs.Lookup("sec-token"))

		require.NoError(t, fs.Parse([]string{"--sec-cfgfile", "b.json"}))
		overrides, err := spec.FlagOverrides(fs)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"sec": map[string]any{"cfgfile": "b.json"},
		}, overrides)
	})

	t.Run("BootstrapDictExposesSubtree", func(t *testing.T) {
		fs := pflag.NewFlagSet("bootstrap", pflag.ContinueOnError)
		spec.AddFlags(fs, true)
		assert.NotNil(t, fs.Lookup("store-path"))
	})

	// The flag set and the bootstrap load expose the same items.
	t.Run("AgreesWithBootstrapLoad", func(t *testing.T) {
		cfg, err := spec.LoadBootstrapConfig()
		require.NoError(t, err)
		val, err := cfg.String("sec.cfgfile")
		require.NoError(t, err)
		assert.Equal(t, "a.json", val)
	})
}
