// FILE: confspec/item.go

package confspec

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
)

// EnvironmentLabel is the override label treated as a snapshot of the
// process environment during resolution.
const EnvironmentLabel = "ENVIRONMENT"

// ValidatorFunc validates a converted configuration value.
type ValidatorFunc func(value any) bool

// WatchFunc is invoked by a ChangeHandler when a watched item's value
// changes between two configuration snapshots.
type WatchFunc func(oldValue, newValue any)

// override is one candidate configuration snapshot: a label plus a
// flattened key-value mapping. The order of overrides is the precedence
// order; earlier entries win.
type override struct {
	label string
	data  map[string]any
}

// Item is a compiled node in the configuration tree. The Type tag selects
// the variant behavior: scalars and booleans are leaves, a list wraps
// exactly one child template, and a dict wraps one or more named children.
type Item struct {
	name      string
	itemType  ItemType
	prefix    string
	fqName    string
	separator string

	defaultValue any
	required     bool
	bootstrap    bool

	description     string
	longDescription string

	choices   []any
	validator ValidatorFunc
	fallback  string

	previousNames    []string
	previousDefaults []any

	envPrefix      string
	applyEnvPrefix bool
	formatEnv      bool
	envName        string
	altEnvNames    []string

	formatCLI    bool
	cliName      string
	cliShortName string
	cliExpose    bool
	cliChoices   []any
	cliSupport   bool

	watchTarget WatchFunc

	child      *Item            // list variant only
	children   map[string]*Item // dict variant only
	childOrder []string

	logger *zap.Logger
}

// Name returns the item's local name.
func (it *Item) Name() string { return it.name }

// FQName returns the item's fully-qualified, separator-joined name.
func (it *Item) FQName() string { return it.fqName }

// Type returns the item's declared type.
func (it *Item) Type() ItemType { return it.itemType }

// Default returns the item's current default value.
func (it *Item) Default() any { return it.defaultValue }

// Required reports whether resolution fails when no value and no default
// can be found.
func (it *Item) Required() bool { return it.required }

// Bootstrap reports whether the item participates in the bootstrap pass.
func (it *Item) Bootstrap() bool { return it.bootstrap }

// EnvName returns the primary environment variable name, or "" for items
// that cannot be read from the environment (lists and dicts).
func (it *Item) EnvName() string { return it.envName }

// AllEnvNames returns the primary and alternate environment names consulted
// during resolution, in search order.
func (it *Item) AllEnvNames() []string {
	if it.envName == "" {
		return nil
	}
	return append([]string{it.envName}, it.altEnvNames...)
}

// PreviousNames returns the historical fully-qualified aliases consulted
// during migration.
func (it *Item) PreviousNames() []string { return it.previousNames }

// Children returns a dict item's named children, nil for other variants.
func (it *Item) Children() map[string]*Item { return it.children }

// Child returns a list item's child template, nil for other variants.
func (it *Item) Child() *Item { return it.child }

// UpdateDefault replaces the item's default. A nil newDefault is ignored
// unless respectNone is set, which allows clearing the default.
func (it *Item) UpdateDefault(newDefault any, respectNone bool) {
	if newDefault != nil {
		it.defaultValue = newDefault
	} else if respectNone {
		it.defaultValue = nil
	}
}

// possibleNames returns the current name followed by historical aliases,
// in migration search order.
func (it *Item) possibleNames() []string {
	return append([]string{it.fqName}, it.previousNames...)
}

// resolve searches the ordered override list for this item's value,
// converts it, and validates it. Dict items recurse into their children
// against the same override list; list items never consult the environment.
func (it *Item) resolve(overrides []override) (any, error) {
	if it.itemType == TypeDict {
		return it.resolveDict(overrides)
	}

	skipEnvironment := it.itemType == TypeList
	label, data, key, found := it.searchOverrides(overrides, skipEnvironment)

	if !found && it.defaultValue == nil && it.required {
		return nil, &ItemNotFoundError{Item: it}
	}

	var value any
	if !found {
		it.logger.Debug("config value not found, falling back to default",
			zap.String("item", it.fqName))
		value = it.defaultValue
		if it.itemType == TypeList {
			// Compiled list defaults were validated at construction and are
			// used verbatim.
			return value, nil
		}
	} else {
		value = data[key]
	}

	if value == nil {
		return nil, nil
	}

	converted, err := it.convertValue(value, label)
	if err != nil {
		return nil, err
	}
	if err := it.validateValue(converted); err != nil {
		return nil, err
	}
	return converted, nil
}

func (it *Item) resolveDict(overrides []override) (any, error) {
	resolved := make(map[string]any, len(it.children))
	for _, name := range it.childOrder {
		value, err := it.children[name].resolve(overrides)
		if err != nil {
			return nil, err
		}
		resolved[name] = value
	}
	if err := it.validateValue(resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// searchOverrides scans the override list in precedence order. Environment
// entries are matched against the item's environment names with empty-string
// values treated as absent; all other entries are matched by fully-qualified
// name. A fallback reference is remembered from the earliest entry that
// carries it and used only when no direct match exists.
func (it *Item) searchOverrides(overrides []override, skipEnvironment bool) (string, map[string]any, string, bool) {
	var fbLabel string
	var fbData map[string]any
	var fbKey string

	for _, o := range overrides {
		if o.label == EnvironmentLabel {
			if skipEnvironment {
				continue
			}
			if name := it.nameInEnvironment(o.data); name != "" {
				it.logger.Debug("found config value",
					zap.String("item", it.fqName), zap.String("label", o.label))
				return o.label, o.data, name, true
			}
			continue
		}

		if value, present := o.data[it.fqName]; present && value != nil {
			it.logger.Debug("found config value",
				zap.String("item", it.fqName), zap.String("label", o.label))
			return o.label, o.data, it.fqName, true
		}

		if it.fallback != "" && fbData == nil {
			if value, present := o.data[it.fallback]; present && value != nil {
				it.logger.Debug("found fallback value",
					zap.String("item", it.fqName), zap.String("label", o.label))
				fbLabel, fbData, fbKey = o.label, o.data, it.fallback
			}
		}
	}

	if fbData != nil {
		return fbLabel, fbData, fbKey, true
	}
	return "", nil, "", false
}

func (it *Item) nameInEnvironment(env map[string]any) string {
	for _, name := range it.AllEnvNames() {
		value, present := env[name]
		if !present || value == nil {
			continue
		}
		if s, isString := value.(string); isString && s == "" {
			continue
		}
		return name
	}
	return ""
}

// convertValue converts a raw value found in an override to the item's
// declared type.
func (it *Item) convertValue(value any, label string) (any, error) {
	switch it.itemType {
	case TypeList:
		return it.convertList(value, label)
	case TypeDict:
		return it.convertDict(value, label)
	case TypeBool:
		converted, err := toBool(value)
		if err != nil {
			return nil, newValueError(it.fqName, value,
				fmt.Sprintf("not a recognized boolean (found in %s)", label))
		}
		return converted, nil
	default:
		converted, err := convertScalar(value, it.itemType)
		if err != nil {
			return nil, fmt.Errorf("converting %s found in %s: %w", it.fqName, label, err)
		}
		return converted, nil
	}
}

func (it *Item) convertList(value any, label string) (any, error) {
	elements, err := asSlice(value)
	if err != nil {
		return nil, newValueError(it.fqName, value,
			fmt.Sprintf("cannot iterate over value found in %s", label))
	}

	converted := make([]any, 0, len(elements))
	for _, element := range elements {
		convertedElement, err := it.child.convertValue(element, label)
		if err != nil {
			return nil, fmt.Errorf("converting element of list %s: %w", it.fqName, err)
		}
		if err := it.child.validateValue(convertedElement); err != nil {
			return nil, fmt.Errorf("validating element of list %s: %w", it.fqName, err)
		}
		converted = append(converted, convertedElement)
	}
	return converted, nil
}

// convertDict converts an extracted mapping (a list element, or a nested
// value inside one) by matching children against their local names. A
// missing child falls back to its default or fails if required.
func (it *Item) convertDict(value any, label string) (any, error) {
	mapping, isMap := value.(map[string]any)
	if !isMap {
		return nil, newValueError(it.fqName, value,
			fmt.Sprintf("expected a mapping in %s, got %T", label, value))
	}

	converted := make(map[string]any, len(it.children))
	for _, name := range it.childOrder {
		child := it.children[name]
		raw, present := mapping[name]
		if !present || raw == nil {
			if child.defaultValue == nil && child.required {
				return nil, &ItemNotFoundError{Item: child}
			}
			raw = child.defaultValue
		}
		if raw == nil {
			converted[name] = nil
			continue
		}
		childValue, err := child.convertValue(raw, label)
		if err != nil {
			return nil, err
		}
		if err := child.validateValue(childValue); err != nil {
			return nil, err
		}
		converted[name] = childValue
	}

	if err := it.validateValue(converted); err != nil {
		return nil, err
	}
	return converted, nil
}

func asSlice(value any) ([]any, error) {
	if elements, ok := value.([]any); ok {
		return elements, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("value of type %T is not iterable", value)
	}
	elements := make([]any, rv.Len())
	for i := range elements {
		elements[i] = rv.Index(i).Interface()
	}
	return elements, nil
}

// validateValue enforces choices membership and the custom validator.
func (it *Item) validateValue(value any) error {
	if len(it.choices) > 0 && !containsValue(it.choices, value) {
		return newValueError(it.fqName, value,
			fmt.Sprintf("valid values are %v", it.choices))
	}
	if it.validator != nil && !it.validator(value) {
		return newValueError(it.fqName, value, "rejected by validator")
	}
	return nil
}

// validate performs construction-time consistency checks.
func (it *Item) validate() error {
	if strings.Contains(it.name, it.separator) {
		return fmt.Errorf("%w: item name %q contains the separator %q",
			ErrItem, it.name, it.separator)
	}
	if !validItemType(it.itemType) {
		return fmt.Errorf("%w: invalid type %q for %s (valid types: %v)",
			ErrItem, it.itemType, it.name, itemTypes)
	}
	if it.cliShortName != "" && len(it.cliShortName) != 1 {
		return fmt.Errorf("%w: CLI short name %q for %s must be a single character",
			ErrItem, it.cliShortName, it.name)
	}
	if it.cliShortName == "-" {
		return fmt.Errorf("%w: CLI short name for %s cannot be '-'", ErrItem, it.name)
	}

	switch it.itemType {
	case TypeList:
		if it.child == nil {
			return fmt.Errorf("%w: %s must have exactly one child template",
				ErrListItem, it.name)
		}
	case TypeDict:
		if len(it.choices) > 0 {
			return fmt.Errorf("%w: %s cannot declare choices because dict values "+
				"are not comparable", ErrDictItem, it.name)
		}
		if len(it.children) < 1 {
			return fmt.Errorf("%w: %s must have children", ErrDictItem, it.name)
		}
	case TypeBool:
		if it.defaultValue != nil {
			if _, err := toBool(it.defaultValue); err != nil {
				return newValueError(it.fqName, it.defaultValue,
					"bool default is not convertible to bool")
			}
		}
	}

	if it.defaultValue != nil {
		if err := it.validateValue(it.defaultValue); err != nil {
			return err
		}
	}
	return nil
}

// hasCLISupport reports whether the item can be represented on the command
// line. Lists and dicts nested under a list item cannot be flattened to
// flags, and their absence of support propagates upward.
func (it *Item) hasCLISupport(childOfList bool) bool {
	switch it.itemType {
	case TypeList:
		if childOfList {
			return false
		}
		return it.child.hasCLISupport(true)
	case TypeDict:
		if childOfList {
			return false
		}
		for _, name := range it.childOrder {
			if !it.children[name].hasCLISupport(false) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// itemFilter selects a subset of the item tree. Include and exclude match
// fully-qualified names; bootstrap selects only bootstrap-flagged items.
type itemFilter struct {
	include          []string
	exclude          []string
	bootstrap        bool
	excludeBootstrap bool
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// applyFilter returns the item if it passes the filter, a pruned copy for
// dict items with surviving children, or nil.
func (it *Item) applyFilter(filter itemFilter) *Item {
	if it.itemType != TypeDict {
		switch {
		case len(filter.include) > 0:
			if containsName(filter.include, it.fqName) {
				return it
			}
			return nil
		case len(filter.exclude) > 0:
			if containsName(filter.exclude, it.fqName) {
				return nil
			}
			return it
		case filter.bootstrap:
			if it.bootstrap {
				return it
			}
			return nil
		case filter.excludeBootstrap:
			if it.bootstrap {
				return nil
			}
			return it
		}
		return it
	}

	switch {
	case len(filter.include) > 0 && containsName(filter.include, it.fqName):
		return it
	case len(filter.exclude) > 0 && containsName(filter.exclude, it.fqName):
		return nil
	case filter.bootstrap && it.bootstrap:
		return it
	case filter.excludeBootstrap && it.bootstrap:
		return nil
	}

	filtered := make(map[string]*Item)
	order := make([]string, 0, len(it.childOrder))
	for _, name := range it.childOrder {
		if result := it.children[name].applyFilter(filter); result != nil {
			filtered[name] = result
			order = append(order, name)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	pruned := *it
	pruned.children = filtered
	pruned.childOrder = order
	return &pruned
}
