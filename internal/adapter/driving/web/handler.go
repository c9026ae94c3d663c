// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/keyledger/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/keyledger/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/keyledger/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/keyledger/internal/application"
	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

const (
	pageTitle = "Gestion des Utilisateurs"

	// warnParam carries a one-shot banner across the post/redirect/get cycle.
	warnParam   = "warn"
	warnPersist = "persist"

	maxFormBytes = 64 << 10

	persistWarning = "Les modifications n'ont pas pu être enregistrées. Elles seront perdues au redémarrage."
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	store      *application.RecordStore
	soonWindow time.Duration
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(store *application.RecordStore, soonWindow time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		soonWindow: soonWindow,
		logger:     logger,
	}
}

// Records renders the creation form and the record list.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	var warning string
	if r.URL.Query().Get(warnParam) == warnPersist {
		warning = persistWarning
	}

	h.render(w, r, http.StatusOK, vm.FormViewModel{}, warning)
}

// CreateRecord validates the submitted form and appends a record. Invalid
// input re-renders the page with the submitted values.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	if !h.checkForm(w, r) {
		return
	}

	rawDuration := r.PostFormValue("duration_days")
	input := application.CreateInput{
		Username:     r.PostFormValue("username"),
		Key:          r.PostFormValue("key"),
		DurationDays: application.ParseDurationDays(rawDuration),
		Notes:        r.PostFormValue("notes"),
	}

	if fieldErrs := input.Validate(); fieldErrs != nil {
		h.render(w, r, http.StatusBadRequest, formFromInput(input, rawDuration, fieldErrs), "")
		return
	}

	rec, err := h.store.Create(r.Context(), input.Username, input.Key, input.DurationDays, input.Notes)
	h.redirectAfter(w, r, err, "failed to save record", "id", rec.ID)
}

// RequestDelete marks a record for deletion pending confirmation.
func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	if !h.checkForm(w, r) {
		return
	}

	id := r.PathValue("id")
	if err := h.store.RequestDelete(id); err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to request delete", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ConfirmDelete removes the pending record, if any.
func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	if !h.checkForm(w, r) {
		return
	}

	id, _, err := h.store.ConfirmDelete(r.Context())
	h.redirectAfter(w, r, err, "failed to save deletion", "id", id)
}

// CancelDelete clears the pending marker.
func (h *Handler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	if !h.checkForm(w, r) {
		return
	}

	h.store.CancelDelete()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// checkForm parses the POST body and enforces the CSRF token. It writes the
// error response itself and returns false when the request must stop.
func (h *Handler) checkForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return false
	}
	if !validateCSRF(r) {
		h.logger.Warn("csrf validation failed", "path", r.URL.Path)
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return false
	}
	return true
}

// redirectAfter sends the browser back to the list. A persistence failure
// adds the warning banner; any other error is a 500.
func (h *Handler) redirectAfter(w http.ResponseWriter, r *http.Request, err error, msg string, args ...any) {
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, model.ErrPersist):
		h.logger.Warn(msg, append(args, "error", err)...)
		http.Redirect(w, r, "/?"+warnParam+"="+warnPersist, http.StatusSeeOther)
	default:
		h.logger.Error(msg, append(args, "error", err)...)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, form vm.FormViewModel, warning string) {
	token := csrfToken(w, r)
	page := toRecordsPageViewModel(h.store.Snapshot(), h.store.Now(), h.soonWindow, form, token, warning)

	h.renderComponent(w, r, status, templates.Layout(pageTitle, pages.RecordsPage(page)))
}

func (h *Handler) renderComponent(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := c.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}
