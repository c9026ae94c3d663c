// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// RecordCardViewModel holds presentation-ready data for one record in the list.
type RecordCardViewModel struct {
	ID            string
	Username      string
	Key           string
	NotesHTML     string
	CreatedLabel  string
	ExpiresLabel  string
	Status        string // "active", "expiring_soon" or "expired"
	Expired       bool
	DaysRemaining int

	// PendingDelete is true when this record awaits delete confirmation.
	PendingDelete bool
	DeleteURL     string
}

// FormViewModel holds the creation form's current field values and any
// validation messages keyed by field name.
type FormViewModel struct {
	Username     string
	Key          string
	DurationDays string
	Notes        string
	Errors       map[string]string
}

// HasError reports whether field has a validation message.
func (f FormViewModel) HasError(field string) bool {
	_, ok := f.Errors[field]
	return ok
}

// RecordsPageViewModel is everything the single page renders.
type RecordsPageViewModel struct {
	Form      FormViewModel
	Records   []RecordCardViewModel
	CSRFToken string

	// Warning is a banner shown above the form, e.g. after a failed save.
	Warning string

	ConfirmDeleteURL string
	CancelDeleteURL  string
	CreateURL        string
}
