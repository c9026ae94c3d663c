package model

import "fmt"

// IDScheme selects how new record ids are derived.
type IDScheme string

const (
	// IDSchemeCounter hands out ids from a persisted counter that only grows,
	// so an id is never reused after its record is deleted.
	IDSchemeCounter IDScheme = "counter"

	// IDSchemeLength derives the id from the current sequence length plus one.
	// Deleting a record and creating another can reproduce a live id.
	IDSchemeLength IDScheme = "length"
)

// ParseIDScheme validates a scheme name. The empty string selects the counter.
func ParseIDScheme(s string) (IDScheme, error) {
	switch IDScheme(s) {
	case "", IDSchemeCounter:
		return IDSchemeCounter, nil
	case IDSchemeLength:
		return IDSchemeLength, nil
	default:
		return "", fmt.Errorf("unknown id scheme %q (want %q or %q)", s, IDSchemeCounter, IDSchemeLength)
	}
}
