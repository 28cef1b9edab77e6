// FILE: confspec/errors.go

package confspec

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds surfaced by this package. Callers
// should test with errors.Is; messages carry the offending names and values.
var (
	// ErrSpec indicates the specification itself is structurally invalid.
	ErrSpec = errors.New("invalid specification")

	// ErrItem indicates an item's declared attributes are self-contradictory.
	ErrItem = errors.New("invalid item definition")

	// ErrListItem is an ErrItem raised by list item construction.
	ErrListItem = fmt.Errorf("%w (list)", ErrItem)

	// ErrDictItem is an ErrItem raised by dict item construction.
	ErrDictItem = fmt.Errorf("%w (dict)", ErrItem)

	// ErrItemNotFound indicates a required value could not be found anywhere.
	ErrItemNotFound = errors.New("config value not found")

	// ErrValue indicates a value was found but failed conversion or validation.
	ErrValue = errors.New("invalid config value")

	// ErrLoad indicates an override argument or config file could not be
	// loaded or interpreted.
	ErrLoad = errors.New("failed to load config")

	// ErrSource indicates a config source is misconfigured.
	ErrSource = errors.New("invalid config source")
)

// ItemNotFoundError carries a reference to the item whose value could not be
// resolved, for caller introspection. It unwraps to ErrItemNotFound.
type ItemNotFoundError struct {
	Item *Item
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrItemNotFound, e.Item.FQName())
}

func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }

func newValueError(fqName string, value any, reason string) error {
	return fmt.Errorf("%w: %v for %s: %s", ErrValue, value, fqName, reason)
}
