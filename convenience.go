// FILE: confspec/convenience.go

package confspec

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Quick compiles a schema and loads configuration with the standard
// precedence in one call: CLI flags, then the environment, then a
// discovered config file, then defaults. appName drives config file
// discovery and the environment prefix.
func Quick(schema any, appName string) (Config, error) {
	return QuickArgs(schema, appName, os.Args[1:])
}

// QuickArgs is Quick with explicit command-line arguments.
func QuickArgs(schema any, appName string, args []string) (Config, error) {
	spec, err := New(schema, WithEnvPrefix(appName+"_"))
	if err != nil {
		return Config{}, err
	}

	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	spec.AddFlags(fs, false)
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: parsing command line: %v", ErrLoad, err)
	}
	cli, err := spec.FlagOverrides(fs)
	if err != nil {
		return Config{}, err
	}

	overrides := []any{cli, Environment}
	if path := DiscoverConfigFile(DefaultDiscoveryOptions(appName)); path != "" {
		overrides = append(overrides, path)
	}
	return spec.LoadConfig(overrides...)
}

// MustQuick is Quick, panicking on error. Intended for program
// initialization where a bad config is unrecoverable.
func MustQuick(schema any, appName string) Config {
	cfg, err := Quick(schema, appName)
	if err != nil {
		panic(fmt.Sprintf("confspec: initialization failed: %v", err))
	}
	return cfg
}
