// FILE: confspec/compile.go

package confspec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Schema is a declarative configuration specification: a mapping of item
// name to item attributes, nested recursively through Items for list and
// dict types.
type Schema map[string]ItemSchema

// ItemSchema declares the attributes of a single configuration item. The
// mapstructure tags define the recognized keys when a schema is supplied as
// a map[string]any or loaded from a JSON/YAML/TOML file. Validator and
// WatchTarget are function-valued and can only be supplied on literal
// Schema values.
type ItemSchema struct {
	Type             string        `mapstructure:"type"`
	Default          any           `mapstructure:"default"`
	Required         *bool         `mapstructure:"required"`
	Bootstrap        bool          `mapstructure:"bootstrap"`
	Description      string        `mapstructure:"description"`
	LongDescription  string        `mapstructure:"long_description"`
	Choices          []any         `mapstructure:"choices"`
	Fallback         string        `mapstructure:"fallback"`
	PreviousNames    []string      `mapstructure:"previous_names"`
	PreviousDefaults []any         `mapstructure:"previous_defaults"`
	EnvName          string        `mapstructure:"env_name"`
	AltEnvNames      []string      `mapstructure:"alt_env_names"`
	ApplyEnvPrefix   *bool         `mapstructure:"apply_env_prefix"`
	FormatEnv        *bool         `mapstructure:"format_env"`
	FormatCLI        *bool         `mapstructure:"format_cli"`
	CLIName          string        `mapstructure:"cli_name"`
	CLIShortName     string        `mapstructure:"cli_short_name"`
	CLIExpose        *bool         `mapstructure:"cli_expose"`
	CLIChoices       []any         `mapstructure:"cli_choices"`
	Validator        ValidatorFunc `mapstructure:"-"`
	WatchTarget      WatchFunc     `mapstructure:"-"`
	Items            Schema        `mapstructure:"items"`
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

// normalizeSchema accepts a Schema literal, a raw map, or a filename and
// produces a typed Schema. Raw maps and file contents are decoded with
// mapstructure using the recognized keys.
func normalizeSchema(input any, fileType FileType) (Schema, error) {
	switch v := input.(type) {
	case Schema:
		return v, nil
	case map[string]ItemSchema:
		return Schema(v), nil
	case map[string]any:
		return decodeSchema(v)
	case string:
		raw, err := loadFileToMap(v, fileType, ErrSpec)
		if err != nil {
			return nil, err
		}
		return decodeSchema(raw)
	default:
		return nil, fmt.Errorf("%w: schema must be a Schema, map, or filename, got %T",
			ErrSpec, input)
	}
}

func decodeSchema(raw map[string]any) (Schema, error) {
	var schema Schema
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &schema,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpec, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpec, err)
	}
	return schema, nil
}

// validateSchema enforces the structural rules: items only on list/dict
// declarations, list/dict declarations never empty, exactly one child
// template per list.
func validateSchema(schema Schema) error {
	for name, info := range schema {
		itemType := ItemType(info.Type)
		if itemType == "" {
			itemType = TypeString
		}
		isContainer := itemType == TypeList || itemType == TypeDict

		if len(info.Items) > 0 && !isContainer {
			return fmt.Errorf("%w: %s is a %q item but declares children; "+
				"did you mean type 'list' or 'dict'?", ErrSpec, name, itemType)
		}
		if isContainer && len(info.Items) == 0 {
			return fmt.Errorf("%w: %s is a %q item but has no children",
				ErrSpec, name, itemType)
		}
		if itemType == TypeList && len(info.Items) > 1 {
			return fmt.Errorf("%w: list item %s declares %d child templates, "+
				"exactly one is allowed", ErrSpec, name, len(info.Items))
		}
		if isContainer {
			if err := validateSchema(info.Items); err != nil {
				return err
			}
		}
	}
	return nil
}

// compileSchema turns a validated schema into a tree of items. Names are
// returned sorted for deterministic iteration.
func compileSchema(schema Schema, envPrefix, separator string, parentNames []string, logger *zap.Logger) (map[string]*Item, []string, error) {
	items := make(map[string]*Item, len(schema))
	order := make([]string, 0, len(schema))

	for name, info := range schema {
		item, err := newItem(name, info, envPrefix, separator, parentNames, logger)
		if err != nil {
			return nil, nil, err
		}
		items[name] = item
		order = append(order, name)
	}

	sort.Strings(order)
	return items, order, nil
}

func newItem(name string, info ItemSchema, envPrefix, separator string, parentNames []string, logger *zap.Logger) (*Item, error) {
	itemType := ItemType(info.Type)
	if itemType == "" {
		itemType = TypeString
	}

	it := &Item{
		name:             name,
		itemType:         itemType,
		separator:        separator,
		defaultValue:     info.Default,
		required:         boolOr(info.Required, true),
		bootstrap:        info.Bootstrap,
		description:      info.Description,
		longDescription:  info.LongDescription,
		choices:          info.Choices,
		validator:        info.Validator,
		fallback:         info.Fallback,
		previousNames:    info.PreviousNames,
		previousDefaults: info.PreviousDefaults,
		envPrefix:        envPrefix,
		applyEnvPrefix:   boolOr(info.ApplyEnvPrefix, true),
		formatEnv:        boolOr(info.FormatEnv, true),
		formatCLI:        boolOr(info.FormatCLI, true),
		cliName:          info.CLIName,
		cliShortName:     info.CLIShortName,
		cliExpose:        boolOr(info.CLIExpose, true),
		cliChoices:       info.CLIChoices,
		watchTarget:      info.WatchTarget,
		logger:           logger,
	}

	// Container items cannot carry CLI choices.
	if itemType == TypeList || itemType == TypeDict {
		it.cliChoices = nil
	}

	if len(parentNames) > 0 {
		it.prefix = strings.Join(parentNames, separator)
		it.fqName = it.prefix + separator + name
	} else {
		it.fqName = name
	}

	if err := it.setupEnvNames(info.EnvName, info.AltEnvNames); err != nil {
		return nil, err
	}

	if err := it.compileChildren(info.Items, parentNames); err != nil {
		return nil, err
	}

	it.cliSupport = it.hasCLISupport(false)
	if !it.cliSupport && it.cliExpose {
		logger.Info("item cannot be represented on the command line, disabling cli exposure",
			zap.String("item", it.fqName))
		it.cliExpose = false
	}

	if err := it.validate(); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Item) compileChildren(items Schema, parentNames []string) error {
	if len(items) == 0 {
		return nil
	}

	switch it.itemType {
	case TypeList:
		// The child template's own name is irrelevant to storage; the list's
		// name is reused so flattened lookups stay consistent.
		for _, template := range items {
			child, err := newItem(it.name, template, it.envPrefix, it.separator,
				parentNames, it.logger)
			if err != nil {
				return err
			}
			it.child = child
		}
	case TypeDict:
		childParents := append(append([]string{}, parentNames...), it.name)
		children, order, err := compileSchema(items, it.envPrefix, it.separator,
			childParents, it.logger)
		if err != nil {
			return err
		}
		it.children = children
		it.childOrder = order
	}
	return nil
}

// setupEnvNames derives the environment variable names. Lists and dicts are
// never read from the environment; for scalars the fully-qualified name is
// case-split, underscore-joined, upper-cased, and prefixed unless an
// explicit name or formatting overrides are given.
func (it *Item) setupEnvNames(explicit string, alternates []string) error {
	if it.itemType == TypeList || it.itemType == TypeDict {
		if explicit != "" {
			return fmt.Errorf("%w: %s items cannot declare an environment name",
				ErrItem, it.itemType)
		}
		return nil
	}

	it.envName = it.deriveEnvName(explicit)
	for _, alternate := range alternates {
		it.altEnvNames = append(it.altEnvNames, it.deriveEnvName(alternate))
	}
	return nil
}

func (it *Item) deriveEnvName(explicit string) string {
	if explicit != "" {
		if it.applyEnvPrefix {
			return it.envPrefix + explicit
		}
		return explicit
	}
	segments := strings.Split(it.fqName, it.separator)
	if !it.formatEnv {
		return strings.Join(segments, "")
	}
	joined := it.envPrefix + strings.Join(segments, "_")
	return strings.ToUpper(changeCase(joined, "_"))
}
