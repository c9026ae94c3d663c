package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrPersist marks a mutation that was applied in memory but could not be
// written to the persisted slot.
var ErrPersist = errors.New("persist record slot")

// ErrRecordNotFound is returned when an operation names an id that is not in
// the record sequence.
var ErrRecordNotFound = errors.New("record not found")

// idWidth is the minimum number of digits in a record id.
const idWidth = 4

// Record is one managed credential entry. Records are never edited after
// creation; CreatedAt and ExpiresAt are fixed when the record is built.
type Record struct {
	ID           string
	Username     string
	Key          string
	DurationDays int
	Notes        string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// NewRecord builds a record created at createdAt whose expiry is durationDays
// calendar days later.
func NewRecord(id, username, key string, durationDays int, notes string, createdAt time.Time) Record {
	return Record{
		ID:           id,
		Username:     username,
		Key:          key,
		DurationDays: durationDays,
		Notes:        notes,
		CreatedAt:    createdAt,
		ExpiresAt:    ExpiryDate(createdAt, durationDays),
	}
}

// ExpiryDate adds durationDays calendar days to createdAt. Month and year
// rollover follow the calendar of createdAt's location, so a duration of one
// day always lands on the next calendar date at the same wall-clock time.
func ExpiryDate(createdAt time.Time, durationDays int) time.Time {
	return createdAt.AddDate(0, 0, durationDays)
}

// IsExpired reports whether now is strictly after the record's expiry.
// A record expiring exactly at now is still valid.
func (r Record) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// FormatID renders a sequence number as a zero-padded record id. Numbers
// wider than four digits are rendered in full.
func FormatID(seq int) string {
	return fmt.Sprintf("%0*d", idWidth, seq)
}
