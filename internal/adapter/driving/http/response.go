package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// validationErrorResponse adds per-field messages to an error response.
type validationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// RecordResponse is the JSON representation of a record.
type RecordResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Key           string `json:"key"`
	DurationDays  int    `json:"duration_days"`
	Notes         string `json:"notes"`
	CreatedAt     string `json:"created_at"`
	ExpiresAt     string `json:"expires_at"`
	Expired       bool   `json:"expired"`
	Status        string `json:"status"`
	DaysRemaining int    `json:"days_remaining"`
}

// CreateRecordRequest is the JSON body for the create endpoint.
type CreateRecordRequest struct {
	Username     string `json:"username"`
	Key          string `json:"key"`
	DurationDays int    `json:"duration_days"`
	Notes        string `json:"notes"`
}

// CreateRecordResponse wraps the created record. Warning is set when the
// record could not be persisted.
type CreateRecordResponse struct {
	Record  RecordResponse `json:"record"`
	Warning string         `json:"warning,omitempty"`
}

// PendingDeleteResponse describes the delete confirmation marker.
type PendingDeleteResponse struct {
	Pending bool   `json:"pending"`
	ID      string `json:"id,omitempty"`
}

// DeleteResponse reports the outcome of a confirmed delete.
type DeleteResponse struct {
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
	Warning string `json:"warning,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
	Time    string `json:"time"`
}

// toRecordResponse converts a domain Record to its JSON representation with
// expiry status evaluated at now.
func toRecordResponse(r model.Record, now time.Time, soonWindow time.Duration) RecordResponse {
	status := model.ComputeExpiryStatus(r, now, soonWindow)

	return RecordResponse{
		ID:            r.ID,
		Username:      r.Username,
		Key:           r.Key,
		DurationDays:  r.DurationDays,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:     r.ExpiresAt.UTC().Format(time.RFC3339),
		Expired:       status.Expired(),
		Status:        string(status.Status),
		DaysRemaining: status.DaysRemaining,
	}
}
