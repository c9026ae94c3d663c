package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", h.Records)
	mux.HandleFunc("POST /records", h.CreateRecord)
	mux.HandleFunc("POST /records/{id}/delete", h.RequestDelete)
	mux.HandleFunc("POST /records/delete/confirm", h.ConfirmDelete)
	mux.HandleFunc("POST /records/delete/cancel", h.CancelDelete)
}
