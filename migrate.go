// FILE: confspec/migrate.go

package confspec

import (
	"fmt"

	"go.uber.org/zap"
)

// MigrateOptions controls MigrateConfigFile. The zero value migrates in
// place without creating a missing file; DefaultMigrateOptions matches the
// common upgrade path.
type MigrateOptions struct {
	// AlwaysUpdate replaces every value with the schema default, even
	// values the user changed by hand.
	AlwaysUpdate bool

	// UpdateDefaults replaces values that match one of the item's
	// previous defaults with the current default.
	UpdateDefaults bool

	// Create writes the migrated file, creating it if missing. When
	// false a missing input file is an error and nothing is written.
	Create bool

	// CurrentFileType overrides the encoding of the input file. Defaults
	// to the spec's file type.
	CurrentFileType FileType

	// OutputPath names the file to write. Defaults to the input path.
	OutputPath string

	// OutputFileType overrides the encoding of the output file. Defaults
	// to the spec's file type.
	OutputFileType FileType
}

// DefaultMigrateOptions returns the usual migration settings: create the
// file if missing and upgrade stale defaults.
func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		UpdateDefaults: true,
		Create:         true,
	}
}

// MigrateConfigFile upgrades a configuration file to the current schema.
// Values are looked up under each item's current and previous names; absent
// values and stale previous defaults are replaced with the current default,
// while values the user changed are preserved. The migrated mapping is
// returned and, when opts.Create is set, written back atomically.
func (s *Spec) MigrateConfigFile(path string, opts MigrateOptions) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	currentType := opts.CurrentFileType
	if currentType == "" {
		currentType = s.fileType
	}
	outputType := opts.OutputFileType
	if outputType == "" {
		outputType = s.fileType
	}
	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = path
	}

	current, err := s.readConfigIfExists(path, currentType, opts.Create)
	if err != nil {
		return Config{}, err
	}

	migrated := make(map[string]any)
	for _, name := range s.itemOrder {
		s.items[name].migrate(current, migrated, opts.AlwaysUpdate, opts.UpdateDefaults)
	}

	if opts.Create {
		if err := writeMapToFile(migrated, outputPath, outputType); err != nil {
			return Config{}, err
		}
		s.logger.Info("migrated config file",
			zap.String("input", path),
			zap.String("output", outputPath))
	}

	return newConfig(migrated, s.separator), nil
}

func (s *Spec) readConfigIfExists(path string, fileType FileType, create bool) (map[string]any, error) {
	if !fileExists(path) {
		if create {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("%w: cannot migrate %s: file does not exist "+
			"and Create is not set", ErrLoad, path)
	}
	return loadFileToMap(path, fileType, ErrLoad)
}

// migrate carries this item's value from current into out, applying the
// default-upgrade rules. Dict items recurse; every other variant is treated
// as an opaque value. A nil value is indistinguishable from an absent one.
func (it *Item) migrate(current, out map[string]any, alwaysUpdate, updateDefaults bool) {
	if it.itemType == TypeDict {
		sub, ok := out[it.name].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			out[it.name] = sub
		}
		for _, name := range it.childOrder {
			it.children[name].migrate(current, sub, alwaysUpdate, updateDefaults)
		}
		return
	}

	value := it.searchForPossibleNames(current)
	switch {
	case value == nil:
		it.logger.Debug("key not found in current config, using default",
			zap.String("item", it.fqName),
			zap.Any("default", it.defaultValue))
		out[it.name] = it.defaultValue

	case alwaysUpdate:
		it.logger.Debug("always_update set, replacing value with default",
			zap.String("item", it.fqName),
			zap.Any("old", value),
			zap.Any("new", it.defaultValue))
		out[it.name] = it.defaultValue

	case updateDefaults && containsValue(it.previousDefaults, value):
		it.logger.Debug("value matches a previous default, upgrading",
			zap.String("item", it.fqName),
			zap.Any("old", value),
			zap.Any("new", it.defaultValue))
		out[it.name] = it.defaultValue

	default:
		out[it.name] = value
	}
}

// searchForPossibleNames finds this item's value in a nested config by its
// current fully-qualified name, falling back to historical aliases.
func (it *Item) searchForPossibleNames(config map[string]any) any {
	for _, name := range it.possibleNames() {
		if value := searchNested(config, name, it.separator); value != nil {
			return value
		}
	}
	return nil
}
