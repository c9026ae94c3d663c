package application

import (
	"sort"
	"strconv"
	"strings"
)

// CreateInput carries the raw values a presentation layer collects for a new
// record. The store itself does not validate; drivers call Validate first.
type CreateInput struct {
	Username     string
	Key          string
	DurationDays int
	Notes        string
}

// FieldErrors maps an input field name to a human-readable message.
type FieldErrors map[string]string

// Fields returns the offending field names in a stable order.
func (fe FieldErrors) Fields() []string {
	names := make([]string, 0, len(fe))
	for name := range fe {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the required-field and minimum-value rules. It returns nil
// when the input is acceptable.
func (in CreateInput) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(in.Username) == "" {
		errs["username"] = "Le pseudo est obligatoire."
	}
	if strings.TrimSpace(in.Key) == "" {
		errs["key"] = "La clé utilisateur est obligatoire."
	}
	if in.DurationDays < 1 {
		errs["duration_days"] = "La durée doit être d'au moins 1 jour."
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ParseDurationDays converts a form value to a day count. Anything that is
// not a base-10 integer yields 0, which Validate rejects.
func ParseDurationDays(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
