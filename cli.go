// FILE: confspec/cli.go

package confspec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// cliLabel is the override label reported for flag-derived values.
const cliLabel = "command line"

// flagReg is one planned flag registration. Bool items without a default
// get a mutually exclusive positive/negative pair; bool items with a
// default get a single toggle whose parsed value is the default's inverse.
type flagReg struct {
	item *Item

	name     string // positive flag name, without dashes
	negName  string // negative flag name for bool pairs and bool lists
	short    string
	pair     bool // both name and negName registered
	toggle   bool // single bool flag, Changed means toggleValue
	toggleTo bool
}

// AddFlags registers a flag for every CLI-supported item onto fs. When
// bootstrap is set only bootstrap-flagged items are registered. Flag names
// are the kebab-cased fully-qualified names, one segment per ancestor dict.
func (s *Spec) AddFlags(fs *pflag.FlagSet, bootstrap bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, reg := range s.flagRegistrations(bootstrap) {
		reg.register(fs)
	}
}

// FlagOverrides inspects a parsed flag set and returns the nested mapping
// of explicitly set values, keyed by item names. Pass the result to
// LoadConfig, typically as the highest-precedence override.
func (s *Spec) FlagOverrides(fs *pflag.FlagSet) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nested := make(map[string]any)
	for _, reg := range s.flagRegistrations(false) {
		value, present, err := reg.collect(fs)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		if err := reg.item.checkCLIChoices(value); err != nil {
			return nil, err
		}
		setNestedValue(nested, reg.item.fqName, reg.item.separator, value)
	}
	return nested, nil
}

func (s *Spec) flagRegistrations(bootstrap bool) []flagReg {
	var regs []flagReg
	for _, name := range s.itemOrder {
		s.items[name].appendFlagRegs(&regs, bootstrap)
	}
	return regs
}

func (it *Item) appendFlagRegs(regs *[]flagReg, bootstrap bool) {
	if !it.cliSupport || !it.cliExpose {
		return
	}

	if it.itemType == TypeDict {
		// A bootstrap-flagged dict exposes its whole subtree; otherwise
		// each child is filtered on its own flag, matching applyFilter.
		childBootstrap := bootstrap && !it.bootstrap
		for _, name := range it.childOrder {
			it.children[name].appendFlagRegs(regs, childBootstrap)
		}
		return
	}

	if bootstrap && !it.bootstrap {
		return
	}

	switch it.itemType {
	case TypeList:
		// The flag is named after the child template; repeated occurrences
		// accumulate into the list value.
		reg := flagReg{
			item:  it,
			name:  it.child.cliFlagName(),
			short: it.child.cliShortName,
		}
		if it.child.itemType == TypeBool {
			reg.pair = true
			reg.negName = it.child.cliNegFlagName()
		}
		*regs = append(*regs, reg)

	case TypeBool:
		reg := flagReg{
			item:  it,
			name:  it.cliFlagName(),
			short: it.cliShortName,
		}
		if it.defaultValue == nil {
			reg.pair = true
			reg.negName = it.cliNegFlagName()
		} else {
			// Compilation rejects bool defaults that do not convert.
			on, _ := toBool(it.defaultValue)
			reg.toggle = true
			reg.toggleTo = !on.(bool)
			if on.(bool) {
				reg.name = it.cliNegFlagName()
			}
		}
		*regs = append(*regs, reg)

	default:
		*regs = append(*regs, flagReg{
			item:  it,
			name:  it.cliFlagName(),
			short: it.cliShortName,
		})
	}
}

// cliFlagName derives the dash-joined flag name: kebab-cased prefix
// segments followed by the kebab-cased item (or explicit CLI) name.
func (it *Item) cliFlagName() string {
	return strings.Join(append(it.cliPrefixSegments(), it.cliBaseName()), "-")
}

// cliNegFlagName inserts "no" between the prefix and the name, producing
// names like "db-no-verify".
func (it *Item) cliNegFlagName() string {
	return strings.Join(append(it.cliPrefixSegments(), "no", it.cliBaseName()), "-")
}

func (it *Item) cliPrefixSegments() []string {
	if it.prefix == "" {
		return nil
	}
	segments := strings.Split(it.prefix, it.separator)
	for i, segment := range segments {
		segments[i] = changeCase(segment, "-")
	}
	return segments
}

func (it *Item) cliBaseName() string {
	name := it.cliName
	if name == "" {
		name = it.name
	}
	if it.formatCLI {
		return changeCase(name, "-")
	}
	return name
}

func (r flagReg) register(fs *pflag.FlagSet) {
	usage := r.item.description

	switch {
	case r.item.itemType == TypeList && r.pair:
		// Bool lists share one accumulator so occurrence order across both
		// flags is preserved.
		acc := &boolListValue{}
		positive := fs.VarPF(&boolListFlag{acc: acc, constant: true}, r.name, r.short, usage)
		positive.NoOptDefVal = "true"
		negative := fs.VarPF(&boolListFlag{acc: acc, constant: false}, r.negName, "", usage)
		negative.NoOptDefVal = "true"

	case r.item.itemType == TypeList:
		fs.StringArrayP(r.name, r.short, nil, usage)

	case r.pair:
		fs.BoolP(r.name, r.short, false, usage)
		fs.Bool(r.negName, false, usage)

	case r.toggle:
		fs.BoolP(r.name, r.short, false, usage)

	case r.item.itemType == TypeInt || r.item.itemType == TypeLong:
		fs.Int64P(r.name, r.short, 0, usage)

	case r.item.itemType == TypeFloat:
		fs.Float64P(r.name, r.short, 0, usage)

	default:
		fs.StringP(r.name, r.short, "", usage)
	}
}

// collect reads one registration's value out of a parsed flag set,
// reporting whether the user explicitly set it.
func (r flagReg) collect(fs *pflag.FlagSet) (any, bool, error) {
	switch {
	case r.item.itemType == TypeList && r.pair:
		if !fs.Changed(r.name) && !fs.Changed(r.negName) {
			return nil, false, nil
		}
		flag := fs.Lookup(r.name)
		acc := flag.Value.(*boolListFlag).acc
		return append([]any(nil), acc.values...), true, nil

	case r.item.itemType == TypeList:
		if !fs.Changed(r.name) {
			return nil, false, nil
		}
		raw, err := fs.GetStringArray(r.name)
		if err != nil {
			return nil, false, err
		}
		values := make([]any, len(raw))
		for i, v := range raw {
			values[i] = v
		}
		return values, true, nil

	case r.pair:
		positive := fs.Changed(r.name)
		negative := fs.Changed(r.negName)
		switch {
		case positive && negative:
			return nil, false, fmt.Errorf("%w: --%s and --%s are mutually exclusive",
				ErrLoad, r.name, r.negName)
		case positive:
			return true, true, nil
		case negative:
			return false, true, nil
		default:
			return nil, false, nil
		}

	case r.toggle:
		if !fs.Changed(r.name) {
			return nil, false, nil
		}
		return r.toggleTo, true, nil

	case r.item.itemType == TypeInt || r.item.itemType == TypeLong:
		if !fs.Changed(r.name) {
			return nil, false, nil
		}
		value, err := fs.GetInt64(r.name)
		return value, err == nil, err

	case r.item.itemType == TypeFloat:
		if !fs.Changed(r.name) {
			return nil, false, nil
		}
		value, err := fs.GetFloat64(r.name)
		return value, err == nil, err

	default:
		if !fs.Changed(r.name) {
			return nil, false, nil
		}
		value, err := fs.GetString(r.name)
		return value, err == nil, err
	}
}

// checkCLIChoices enforces the CLI-only choice restriction on scalar
// values. Schema-level choices are still enforced during resolution.
func (it *Item) checkCLIChoices(value any) error {
	if len(it.cliChoices) == 0 {
		return nil
	}
	if it.itemType == TypeList || it.itemType == TypeDict {
		return nil
	}
	converted, err := it.convertValue(value, cliLabel)
	if err != nil {
		return err
	}
	if !containsValue(it.cliChoices, converted) {
		return newValueError(it.fqName, value,
			fmt.Sprintf("not an allowed command-line value (choices: %v)", it.cliChoices))
	}
	return nil
}

// boolListValue accumulates true/false constants in occurrence order.
type boolListValue struct {
	values []any
}

// boolListFlag is a pflag.Value that appends a fixed constant to its
// accumulator each time the flag appears.
type boolListFlag struct {
	acc      *boolListValue
	constant bool
}

func (f *boolListFlag) Set(string) error {
	f.acc.values = append(f.acc.values, f.constant)
	return nil
}

func (f *boolListFlag) String() string {
	return strconv.FormatBool(f.constant)
}

func (f *boolListFlag) Type() string { return "bool" }
