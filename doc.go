// File: confspec/doc.go

// Package confspec resolves application configuration from a declarative
// specification. A specification describes named, typed items (optionally
// nested into lists and dicts); confspec compiles it into an item tree and
// resolves each item's value by searching an ordered list of candidate
// sources: in-memory maps, JSON/YAML/TOML files, the process environment,
// parsed command-line flags, and pluggable remote sources.
//
// Features:
//   - Declarative schemas supplied as Schema literals, map[string]any, or a file
//   - Ordered override precedence: earlier sources win
//   - Type conversion and validation (choices, custom validators)
//   - Environment variable and kebab-case CLI flag name derivation
//   - Boolean --flag/--no-flag pairs and repeatable list flags via pflag
//   - Config file migration: renames, changed defaults, stale-default upgrades
//   - Change watching with per-item and whole-config callbacks
//
// Quick Start:
//
//	spec, err := confspec.New(confspec.Schema{
//	    "db": {Type: "dict", Items: confspec.Schema{
//	        "name": {Default: "mydb"},
//	        "port": {Type: "int", Default: 5432},
//	    }},
//	}, confspec.WithEnvPrefix("MYAPP_"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := spec.LoadConfig("/etc/myapp/config.yaml", confspec.Environment)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	port, _ := cfg.Int64("db.port")
//
// Precedence is the argument order of LoadConfig (first wins), with the
// compiled defaults appended as a final synthetic source so that fallback
// references between items can be satisfied.
//
// Thread Safety:
// A Spec is safe for concurrent use once built. Resolution itself is
// synchronous; watching spawns one goroutine per watched source and the
// change handler serializes snapshot updates internally.
package confspec
