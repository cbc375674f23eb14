// Package memerr defines the sentinel error kinds shared across the memory
// core. Callers use errors.Is against these sentinels; every wrapped error
// keeps a human-readable detail via fmt.Errorf's %w verb.
package memerr

import "errors"

var (
	// InvalidInput marks a malformed or structurally inconsistent argument:
	// mismatched attribute keys in a union, an unparsable condition string,
	// an empty variable name.
	InvalidInput = errors.New("memerr: invalid input")

	// NotFound marks a lookup that found nothing: an unknown concept or
	// schema name, a query context that has already expired.
	NotFound = errors.New("memerr: not found")

	// CapacityPolicy marks a rejection driven by a store's bounded-size
	// policy rather than bad input; stores otherwise prefer silently
	// evicting over raising this, and surface it through Stats() counters.
	CapacityPolicy = errors.New("memerr: capacity policy")

	// Timeout marks an expired query context or working-memory deadline.
	Timeout = errors.New("memerr: timeout")
)
