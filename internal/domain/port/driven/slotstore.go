package driven

import (
	"context"
	"errors"
)

// ErrSlotNotFound is returned by SlotStore.Read when the named slot has never
// been written or has been cleared.
var ErrSlotNotFound = errors.New("slot not found")

// ErrEncryptionKeyInvalid is returned when a sealed slot cannot be opened with
// the configured key, or a sealed slot is read without any key.
var ErrEncryptionKeyInvalid = errors.New("slot sealed with a different key: check KEYLEDGER_SECRET_KEY")

// SlotStore defines the driven port for a named, whole-value persistence slot.
// Every write replaces the previous value entirely.
type SlotStore interface {
	// Read returns the current value of the named slot.
	// Returns ErrSlotNotFound if the slot does not exist.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the value of the named slot.
	Write(ctx context.Context, name string, value []byte) error

	// Clear removes the named slot. Clearing a missing slot is not an error.
	Clear(ctx context.Context, name string) error
}
