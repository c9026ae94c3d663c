package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/keyledger/internal/application"
	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// Handler is the HTTP driving adapter that serves the REST API.
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

// RegisterAPIRoutes registers all JSON API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/records", h.ListRecords)
	mux.Handle("POST /api/v1/records", mutationGuard(h.CreateRecord))
	mux.HandleFunc("GET /api/v1/records/pending-delete", h.GetPendingDelete)
	mux.Handle("POST /api/v1/records/{id}/delete-request", mutationGuard(h.RequestDelete))
	mux.Handle("POST /api/v1/records/delete-confirm", mutationGuard(h.ConfirmDelete))
	mux.Handle("POST /api/v1/records/delete-cancel", mutationGuard(h.CancelDelete))
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// ApplyMiddleware wraps the mux with request id, logging and recovery middleware.
func ApplyMiddleware(mux http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)
	return wrapped
}

// ListRecords returns all records in creation order.
func (h *Handler) ListRecords(w http.ResponseWriter, _ *http.Request) {
	now := h.store.Now()
	records := h.store.Records()

	resp := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, toRecordResponse(r, now, h.soonWindow))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateRecord validates the body and appends a new record.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	input := application.CreateInput{
		Username:     req.Username,
		Key:          req.Key,
		DurationDays: req.DurationDays,
		Notes:        req.Notes,
	}
	if fieldErrs := input.Validate(); fieldErrs != nil {
		writeJSON(w, http.StatusBadRequest, validationErrorResponse{
			Error:  "invalid record: " + strings.Join(fieldErrs.Fields(), ", "),
			Fields: fieldErrs,
		})
		return
	}

	rec, err := h.store.Create(r.Context(), input.Username, input.Key, input.DurationDays, input.Notes)
	resp := CreateRecordResponse{Record: toRecordResponse(rec, h.store.Now(), h.soonWindow)}
	if err != nil {
		if !errors.Is(err, model.ErrPersist) {
			h.logger.Error("failed to create record", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.logger.Warn("record created but not persisted", "id", rec.ID, "error", err)
		resp.Warning = "record kept in memory but could not be saved"
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetPendingDelete reports the id awaiting delete confirmation.
func (h *Handler) GetPendingDelete(w http.ResponseWriter, _ *http.Request) {
	id, ok := h.store.PendingDelete()
	writeJSON(w, http.StatusOK, PendingDeleteResponse{Pending: ok, ID: id})
}

// RequestDelete marks a record for deletion pending confirmation.
func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.RequestDelete(id); err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		h.logger.Error("failed to request delete", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, PendingDeleteResponse{Pending: true, ID: id})
}

// ConfirmDelete removes the pending record.
func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, removed, err := h.store.ConfirmDelete(r.Context())
	if id == "" {
		writeError(w, http.StatusConflict, "no delete pending")
		return
	}

	resp := DeleteResponse{ID: id, Removed: removed}
	if err != nil {
		if !errors.Is(err, model.ErrPersist) {
			h.logger.Error("failed to confirm delete", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.logger.Warn("record deleted but not persisted", "id", id, "error", err)
		resp.Warning = "record removed in memory but the change could not be saved"
	}

	writeJSON(w, http.StatusOK, resp)
}

// CancelDelete clears the pending marker.
func (h *Handler) CancelDelete(w http.ResponseWriter, _ *http.Request) {
	h.store.CancelDelete()
	w.WriteHeader(http.StatusNoContent)
}

// Health reports whether the record slot can be read and written. A slot
// that could not be read at load, or no longer decodes, answers 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Records: len(h.store.Records()),
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.store.Check(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		resp.Status = "degraded"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
