// File: confspec/example/main.go

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"confspec"
)

const configFileName = "app-config.yaml"

func main() {
	dir, err := os.MkdirTemp("", "confspec-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	configPath := filepath.Join(dir, configFileName)

	// A small application schema: a db section, a log level with choices,
	// and a debug toggle.
	schema := confspec.Schema{
		"db": {Type: "dict", Items: confspec.Schema{
			"name": {Default: "myapp", Description: "database name"},
			"host": {Default: "localhost", Description: "database host"},
			"port": {Type: "int", Default: 5432, Description: "database port"},
		}},
		"log_level": {
			Default:     "info",
			Choices:     []any{"debug", "info", "warn", "error"},
			Description: "log verbosity",
		},
		"debug": {Type: "bool", Description: "enable debug mode"},
	}

	spec, err := confspec.New(schema, confspec.WithEnvPrefix("MYAPP_"))
	if err != nil {
		log.Fatal(err)
	}

	// Write a config file carrying a partial override.
	file := []byte("db:\n  host: db.internal\nlog_level: warn\n")
	if err := os.WriteFile(configPath, file, 0644); err != nil {
		log.Fatal(err)
	}

	// Environment beats the file when listed first.
	os.Setenv("MYAPP_DB_PORT", "6432")
	defer os.Unsetenv("MYAPP_DB_PORT")

	// CLI flags beat everything.
	fs := pflag.NewFlagSet("example", pflag.ExitOnError)
	spec.AddFlags(fs, false)
	if err := fs.Parse([]string{"--debug", "--log-level", "error"}); err != nil {
		log.Fatal(err)
	}
	cli, err := spec.FlagOverrides(fs)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := spec.LoadConfig(cli, confspec.Environment, configPath)
	if err != nil {
		log.Fatal(err)
	}

	host, _ := cfg.String("db.host")
	port, _ := cfg.Int64("db.port")
	level, _ := cfg.String("log_level")
	debug, _ := cfg.Bool("debug")

	fmt.Printf("db.host   = %s (from file)\n", host)
	fmt.Printf("db.port   = %d (from environment)\n", port)
	fmt.Printf("log_level = %s (from command line)\n", level)
	fmt.Printf("debug     = %v (from command line)\n", debug)

	// Decode a section into a struct.
	var db struct {
		Name string `conf:"name"`
		Host string `conf:"host"`
		Port int64  `conf:"port"`
	}
	if err := cfg.Scan("db", &db); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("scanned   = %+v\n", db)

	// Rewrite the file so it carries every current key and default.
	migrated, err := spec.MigrateConfigFile(configPath, confspec.DefaultMigrateOptions())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("migrated  = %v\n", migrated.Map())
}
