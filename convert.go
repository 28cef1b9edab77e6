// File: confspec/convert.go

package confspec

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// ItemType is the declared type of a configuration item.
type ItemType string

// Supported item types. The zero value is treated as TypeString.
const (
	TypeString  ItemType = "str"
	TypeInt     ItemType = "int"
	TypeLong    ItemType = "long"
	TypeFloat   ItemType = "float"
	TypeBool    ItemType = "bool"
	TypeComplex ItemType = "complex"
	TypeList    ItemType = "list"
	TypeDict    ItemType = "dict"
)

var itemTypes = []ItemType{
	TypeString, TypeInt, TypeLong, TypeFloat,
	TypeBool, TypeComplex, TypeDict, TypeList,
}

func validItemType(t ItemType) bool {
	for _, known := range itemTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Values interpreted as true and false during boolean conversion. String
// comparison is case-insensitive; the rule applies to raw strings, numbers,
// and values that are already booleans.
var (
	truthyStrings = []string{"y", "yes", "t", "true", "1"}
	falsyStrings  = []string{"n", "no", "f", "false", "0"}
)

// convertScalar converts a raw value to the declared scalar type. A value
// the type cannot represent returns an error wrapping ErrValue; an
// unrecognized declared type returns an error wrapping ErrItem since that is
// a construction-time defect surfacing late.
func convertScalar(value any, declared ItemType) (any, error) {
	switch declared {
	case TypeString, "":
		return toString(value), nil
	case TypeInt:
		return toInt64(value)
	case TypeLong:
		return toBigInt(value)
	case TypeFloat:
		return toFloat64(value)
	case TypeComplex:
		return toComplex(value)
	case TypeBool:
		return toBool(value)
	default:
		return nil, fmt.Errorf("%w: cannot convert to type %q", ErrItem, declared)
	}
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toInt64(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint64:
		if v > uint64(1<<63-1) {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrValue, v)
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as int: %v", ErrValue, v, err)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %T to int", ErrValue, value)
	}
}

func toBigInt(value any) (any, error) {
	switch v := value.(type) {
	case *big.Int:
		return v, nil
	case string:
		b, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
		if !ok {
			return nil, fmt.Errorf("%w: cannot parse %q as long", ErrValue, v)
		}
		return b, nil
	default:
		i, err := toInt64(value)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot convert %T to long", ErrValue, value)
		}
		return big.NewInt(i.(int64)), nil
	}
}

func toFloat64(value any) (any, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as float: %v", ErrValue, v, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %T to float", ErrValue, value)
	}
}

func toComplex(value any) (any, error) {
	switch v := value.(type) {
	case complex64:
		return complex128(v), nil
	case complex128:
		return v, nil
	case string:
		c, err := strconv.ParseComplex(strings.TrimSpace(v), 128)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse %q as complex: %v", ErrValue, v, err)
		}
		return c, nil
	default:
		f, err := toFloat64(value)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot convert %T to complex", ErrValue, value)
		}
		return complex(f.(float64), 0), nil
	}
}

func toBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		lowered := strings.ToLower(v)
		for _, t := range truthyStrings {
			if lowered == t {
				return true, nil
			}
		}
		for _, f := range falsyStrings {
			if lowered == f {
				return false, nil
			}
		}
	case int, int32, int64, uint, uint64, float32, float64:
		f, _ := toFloat64(value)
		if f == float64(1) {
			return true, nil
		}
		if f == float64(0) {
			return false, nil
		}
	}
	return nil, fmt.Errorf(
		"%w: refusing to interpret %v (%T) as a boolean", ErrValue, value, value)
}

// valueEqual reports semantic equality between a converted value and a value
// declared in the schema (choices, previous defaults). Numeric values compare
// by magnitude so an int64(3) resolved value matches an int 3 choice.
func valueEqual(a, b any) bool {
	if af, aok := numericValue(a); aok {
		if bf, bok := numericValue(b); bok {
			return af == bf
		}
		if bb, ok := b.(*big.Int); ok {
			return new(big.Float).SetInt(bb).Cmp(big.NewFloat(af)) == 0
		}
		return false
	}
	if ab, ok := a.(*big.Int); ok {
		if bb, ok := b.(*big.Int); ok {
			return ab.Cmp(bb) == 0
		}
		if bf, ok := numericValue(b); ok {
			return new(big.Float).SetInt(ab).Cmp(big.NewFloat(bf)) == 0
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// containsValue reports membership of value in a declared value set using
// valueEqual semantics.
func containsValue(set []any, value any) bool {
	for _, candidate := range set {
		if valueEqual(value, candidate) {
			return true
		}
	}
	return false
}
