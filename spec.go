// File: confspec/spec.go

package confspec

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Environment is the LoadConfig argument selecting the process environment
// as an override source. Environment entries are matched by derived
// environment variable names rather than fully-qualified item names.
const Environment = EnvironmentLabel

// Override is an explicitly labeled override source for LoadConfig, for
// callers that want control over the label reported in errors and logs.
// Exactly one of Data and Filename must be set.
type Override struct {
	Label    string
	Data     map[string]any
	Filename string

	// FileType overrides extension detection for Filename entries.
	FileType FileType
}

// Option configures a Spec during New.
type Option func(*Spec)

// WithEnvPrefix sets a prefix applied to derived environment variable
// names. The prefix participates in case formatting, so "myapp_" and
// "MYAPP_" are equivalent.
func WithEnvPrefix(prefix string) Option {
	return func(s *Spec) { s.envPrefix = prefix }
}

// WithSeparator sets the string joining nested item names into
// fully-qualified names. Defaults to ".".
func WithSeparator(separator string) Option {
	return func(s *Spec) { s.separator = separator }
}

// WithFileType sets the default encoding for schema and config files whose
// type is not otherwise known. Defaults to JSON.
func WithFileType(fileType FileType) Option {
	return func(s *Spec) { s.fileType = fileType }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Spec) { s.logger = logger }
}

// Spec is a compiled configuration specification. It is safe for concurrent
// use once built.
type Spec struct {
	items     map[string]*Item
	itemOrder []string

	fileType  FileType
	envPrefix string
	separator string

	sources map[string]Source
	logger  *zap.Logger

	mu sync.RWMutex
}

// New compiles a schema into a Spec. The schema may be a Schema literal, a
// map[string]any with the documented keys, or a filename whose contents are
// parsed according to the spec's file type.
func New(schema any, opts ...Option) (*Spec, error) {
	s := &Spec{
		fileType:  FileTypeJSON,
		separator: ".",
		sources:   make(map[string]Source),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if !validFileType(s.fileType) {
		return nil, fmt.Errorf("%w: unsupported file type %q (supported: %v)",
			ErrSpec, s.fileType, FileTypes)
	}
	if s.separator == "" {
		return nil, fmt.Errorf("%w: separator must not be empty", ErrSpec)
	}

	normalized, err := normalizeSchema(schema, s.fileType)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(normalized); err != nil {
		return nil, err
	}

	items, order, err := compileSchema(normalized, s.envPrefix, s.separator, nil, s.logger)
	if err != nil {
		return nil, err
	}
	s.items = items
	s.itemOrder = order
	return s, nil
}

// Separator returns the fully-qualified name separator.
func (s *Spec) Separator() string { return s.separator }

// EnvPrefix returns the environment variable prefix.
func (s *Spec) EnvPrefix() string { return s.envPrefix }

// Items returns the top-level items in deterministic order.
func (s *Spec) Items() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]*Item, 0, len(s.itemOrder))
	for _, name := range s.itemOrder {
		items = append(items, s.items[name])
	}
	return items
}

// GetItem returns the top-level item with the given name.
func (s *Spec) GetItem(name string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[name]
	return item, ok
}

// FindItem returns the item at a separator-joined fully-qualified name,
// descending through dict children, or nil when no such item exists.
func (s *Spec) FindItem(fqName string) *Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findItemLocked(fqName)
}

// Defaults returns the nested default values of every item.
func (s *Spec) Defaults() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultsLocked()
}

func (s *Spec) defaultsLocked() map[string]any {
	defaults := make(map[string]any)
	for _, name := range s.itemOrder {
		s.items[name].addDefault(defaults)
	}
	return defaults
}

func (it *Item) addDefault(out map[string]any) {
	if it.itemType == TypeDict {
		sub := make(map[string]any)
		for _, name := range it.childOrder {
			it.children[name].addDefault(sub)
		}
		out[it.name] = sub
		return
	}
	out[it.name] = deepCopyValue(it.defaultValue)
}

// UpdateDefaults replaces item defaults from a nested mapping of new
// values. Keys that do not correspond to items are an error. A nil value is
// ignored unless respectNone is set, which clears the default.
func (s *Spec) UpdateDefaults(newDefaults map[string]any, respectNone bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flat := flattenMap(newDefaults, s.separator, "")
	for fqName, value := range flat {
		item := s.findItemLocked(fqName)
		if item == nil {
			return fmt.Errorf("%w: cannot update default for %q: no such item",
				ErrItemNotFound, fqName)
		}
		item.UpdateDefault(value, respectNone)
	}
	return nil
}

func (s *Spec) findItemLocked(fqName string) *Item {
	segments := strings.Split(fqName, s.separator)
	item, ok := s.items[segments[0]]
	if !ok {
		return nil
	}
	for _, segment := range segments[1:] {
		if item.itemType != TypeDict {
			return nil
		}
		item, ok = item.children[segment]
		if !ok {
			return nil
		}
	}
	return item
}

// AddSource registers a named source for use as a LoadConfig argument or a
// watch target. The label must not collide with the Environment sentinel.
func (s *Spec) AddSource(label string, sourceType SourceType, opts SourceOptions) error {
	if label == "" {
		return fmt.Errorf("%w: source label must not be empty", ErrSource)
	}
	source, err := NewSource(sourceType, opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[label] = source
	return nil
}

// GetSource returns a registered source by label.
func (s *Spec) GetSource(label string) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	source, ok := s.sources[label]
	return source, ok
}

// LoadConfig resolves every item against the given override sources, in
// argument order, earliest first. Each argument may be:
//
//   - the Environment constant, selecting the process environment
//   - the label of a source registered with AddSource
//   - any other string, treated as a config file path
//   - a map[string]any of nested values
//   - an Override value
//   - a Source
//
// The compiled defaults are appended as a final synthetic source.
func (s *Spec) LoadConfig(args ...any) (Config, error) {
	return s.LoadConfigContext(context.Background(), args...)
}

// LoadConfigContext is LoadConfig with a context passed through to any
// Source arguments.
func (s *Spec) LoadConfigContext(ctx context.Context, args ...any) (Config, error) {
	return s.loadConfig(ctx, itemFilter{}, args)
}

// LoadBootstrapConfig resolves only the items flagged as bootstrap. It is
// intended for a first pass that loads just enough configuration to locate
// the remaining sources.
func (s *Spec) LoadBootstrapConfig(args ...any) (Config, error) {
	return s.loadConfig(context.Background(), itemFilter{bootstrap: true}, args)
}

// LoadFiltered resolves only the items whose fully-qualified names are in
// include, or all but those in exclude. Dict items are pruned to their
// surviving children.
func (s *Spec) LoadFiltered(include, exclude []string, args ...any) (Config, error) {
	return s.loadConfig(context.Background(), itemFilter{include: include, exclude: exclude}, args)
}

func (s *Spec) loadConfig(ctx context.Context, filter itemFilter, args []any) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overrides, err := s.generateOverrides(ctx, args)
	if err != nil {
		return Config{}, err
	}

	resolved := make(map[string]any)
	for _, name := range s.itemOrder {
		item := s.items[name].applyFilter(filter)
		if item == nil {
			continue
		}
		value, err := item.resolve(overrides)
		if err != nil {
			return Config{}, err
		}
		resolved[item.name] = value
	}
	return newConfig(resolved, s.separator), nil
}

// generateOverrides normalizes LoadConfig arguments into the ordered
// override list, appending the flattened defaults as the lowest-precedence
// entry so fallback references can resolve.
func (s *Spec) generateOverrides(ctx context.Context, args []any) ([]override, error) {
	overrides := make([]override, 0, len(args)+1)
	for index, arg := range args {
		entry, err := s.normalizeOverride(ctx, index, arg)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, entry)
	}

	overrides = append(overrides, override{
		label: "defaults",
		data:  flattenMap(s.defaultsLocked(), s.separator, ""),
	})
	return overrides, nil
}

func (s *Spec) normalizeOverride(ctx context.Context, index int, arg any) (override, error) {
	switch v := arg.(type) {
	case string:
		if v == EnvironmentLabel {
			return override{label: EnvironmentLabel, data: environSnapshot()}, nil
		}
		if source, ok := s.sources[v]; ok {
			data, err := source.GetData(ctx)
			if err != nil {
				return override{}, err
			}
			return override{label: v, data: flattenMap(data, s.separator, "")}, nil
		}
		fileType := detectFileType(v)
		if fileType == "" {
			fileType = s.fileType
		}
		data, err := loadFileToMap(v, fileType, ErrLoad)
		if err != nil {
			return override{}, err
		}
		return override{label: v, data: flattenMap(data, s.separator, "")}, nil

	case map[string]any:
		return override{
			label: fmt.Sprintf("dict-%d", index),
			data:  flattenMap(v, s.separator, ""),
		}, nil

	case Override:
		return s.normalizeExplicit(ctx, v)

	case Source:
		data, err := v.GetData(ctx)
		if err != nil {
			return override{}, err
		}
		return override{
			label: fmt.Sprintf("source-%d", index),
			data:  flattenMap(data, s.separator, ""),
		}, nil

	default:
		return override{}, fmt.Errorf("%w: unsupported override argument %d "+
			"of type %T", ErrLoad, index, arg)
	}
}

func (s *Spec) normalizeExplicit(_ context.Context, v Override) (override, error) {
	if v.Label == "" {
		return override{}, fmt.Errorf("%w: override label must not be empty", ErrLoad)
	}
	switch {
	case v.Data != nil && v.Filename != "":
		return override{}, fmt.Errorf("%w: override %q sets both Data and Filename",
			ErrLoad, v.Label)
	case v.Data != nil:
		if v.Label == EnvironmentLabel {
			return override{label: v.Label, data: v.Data}, nil
		}
		return override{label: v.Label, data: flattenMap(v.Data, s.separator, "")}, nil
	case v.Filename != "":
		fileType := v.FileType
		if fileType == "" {
			fileType = detectFileType(v.Filename)
		}
		if fileType == "" {
			fileType = s.fileType
		}
		data, err := loadFileToMap(v.Filename, fileType, ErrLoad)
		if err != nil {
			return override{}, err
		}
		return override{label: v.Label, data: flattenMap(data, s.separator, "")}, nil
	default:
		return override{}, fmt.Errorf("%w: override %q sets neither Data nor Filename",
			ErrLoad, v.Label)
	}
}
