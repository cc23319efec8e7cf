// Package api exposes the note service over HTTP. Identity comes from
// the X-User-ID header set by the trusted front proxy; every handler
// scopes its work to that owner.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/impetus-notes/note-service/internal/categories"
	"github.com/impetus-notes/note-service/internal/db"
	"github.com/impetus-notes/note-service/internal/errs"
	"github.com/impetus-notes/note-service/internal/notes"
	"github.com/impetus-notes/note-service/internal/obs"
	"github.com/impetus-notes/note-service/internal/pipeline"
)

// OwnerHeader carries the authenticated user id, set upstream.
const OwnerHeader = "X-User-ID"

// Handler wraps the domain stores and provides HTTP handlers.
type Handler struct {
	notes      *notes.Store
	categories *categories.Store
	pipeline   *pipeline.Pipeline
	store      *db.Store

	// pdfMaxBytes caps PDF upload size. Zero means the default.
	pdfMaxBytes int64
}

// DefaultPDFMaxBytes caps PDF uploads at 10 MiB.
const DefaultPDFMaxBytes = 10 << 20

// NewHandler creates an API handler over the domain stores.
func NewHandler(notesStore *notes.Store, categoryStore *categories.Store, p *pipeline.Pipeline, store *db.Store, pdfMaxBytes int64) *Handler {
	if pdfMaxBytes <= 0 {
		pdfMaxBytes = DefaultPDFMaxBytes
	}
	return &Handler{
		notes:       notesStore,
		categories:  categoryStore,
		pipeline:    p,
		store:       store,
		pdfMaxBytes: pdfMaxBytes,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("POST /api/categories", h.CreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", h.RenameCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.DeleteCategory)

	mux.HandleFunc("GET /api/notes", h.ListNotes)
	mux.HandleFunc("POST /api/notes", h.CreateNote)
	mux.HandleFunc("GET /api/notes/archived", h.ListArchivedNotes)
	mux.HandleFunc("GET /api/notes/starred", h.ListStarredNotes)
	mux.HandleFunc("GET /api/notes/{docId}", h.GetNote)
	mux.HandleFunc("PUT /api/notes/{docId}", h.UpdateNote)
	mux.HandleFunc("GET /api/notes/{docId}/html", h.GetNoteHTML)
	mux.HandleFunc("DELETE /api/notes/{id}", h.DeleteNote)
	mux.HandleFunc("PUT /api/notes/{id}/category", h.SetNoteCategory)
	mux.HandleFunc("POST /api/notes/{id}/archive", h.ToggleArchive)
	mux.HandleFunc("POST /api/notes/{id}/star", h.ToggleStar)

	mux.HandleFunc("POST /api/pipelines/pdf", h.ImportPDF)
	mux.HandleFunc("POST /api/pipelines/summary/{docId}", h.SummarizeNote)
	mux.HandleFunc("POST /api/pipelines/quiz/{docId}", h.QuizNote)

	mux.HandleFunc("GET /api/activities", h.ListActivities)
	mux.HandleFunc("GET /healthz", h.Health)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownerID extracts the authenticated owner from the request. A missing
// header writes a 401 and returns false.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return "", false
	}
	return owner, true
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps a coded error onto the HTTP response and logs
// unexpected failures with the request's correlation fields.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	if code == errs.Internal {
		obs.From(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, errs.HTTPStatus(code), errs.MessageOf(err))
}
