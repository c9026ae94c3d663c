package web

import (
	"net/url"
	"strconv"
	"time"

	vm "github.com/ericfisherdev/keyledger/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/keyledger/internal/application"
	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

// toRecordCardViewModel converts a domain Record to a RecordCardViewModel with
// expiry evaluated at now.
func toRecordCardViewModel(r model.Record, now time.Time, soonWindow time.Duration, pendingID string) vm.RecordCardViewModel {
	status := model.ComputeExpiryStatus(r, now, soonWindow)

	return vm.RecordCardViewModel{
		ID:            r.ID,
		Username:      r.Username,
		Key:           r.Key,
		NotesHTML:     RenderNotes(r.Notes),
		CreatedLabel:  model.FormatDate(r.CreatedAt),
		ExpiresLabel:  model.FormatDate(r.ExpiresAt),
		Status:        string(status.Status),
		Expired:       status.Expired(),
		DaysRemaining: status.DaysRemaining,
		PendingDelete: pendingID != "" && pendingID == r.ID,
		DeleteURL:     "/records/" + url.PathEscape(r.ID) + "/delete",
	}
}

// toRecordsPageViewModel assembles the full page from a store snapshot.
func toRecordsPageViewModel(
	snap application.Snapshot,
	now time.Time,
	soonWindow time.Duration,
	form vm.FormViewModel,
	csrf string,
	warning string,
) vm.RecordsPageViewModel {
	cards := make([]vm.RecordCardViewModel, 0, len(snap.Records))
	for _, r := range snap.Records {
		cards = append(cards, toRecordCardViewModel(r, now, soonWindow, snap.PendingID))
	}

	return vm.RecordsPageViewModel{
		Form:             form,
		Records:          cards,
		CSRFToken:        csrf,
		Warning:          warning,
		CreateURL:        "/records",
		ConfirmDeleteURL: "/records/delete/confirm",
		CancelDeleteURL:  "/records/delete/cancel",
	}
}

// formFromInput echoes submitted values back into the form after a failed
// validation.
func formFromInput(in application.CreateInput, rawDuration string, errs application.FieldErrors) vm.FormViewModel {
	duration := rawDuration
	if duration == "" && in.DurationDays != 0 {
		duration = strconv.Itoa(in.DurationDays)
	}

	return vm.FormViewModel{
		Username:     in.Username,
		Key:          in.Key,
		DurationDays: duration,
		Notes:        in.Notes,
		Errors:       errs,
	}
}
