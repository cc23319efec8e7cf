package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/impetus-notes/note-service/internal/db"
	"github.com/impetus-notes/note-service/internal/obs"
)

// ImportPDF handles POST /api/pipelines/pdf. The request is a
// multipart form with the document under the "file" field.
func (h *Handler) ImportPDF(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.pdfMaxBytes)
	if err := r.ParseMultipartForm(h.pdfMaxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PDF exceeds the upload size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PDF exceeds the upload size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	obs.From(r.Context()).Info("pdf upload received",
		"filename", header.Filename, "size_bytes", len(pdf))

	note, err := h.pipeline.ImportPDF(r.Context(), owner, header.Filename, pdf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// SummarizeNote handles POST /api/pipelines/summary/{docId}.
func (h *Handler) SummarizeNote(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	note, err := h.pipeline.Summarize(r.Context(), owner, r.PathValue("docId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// QuizNote handles POST /api/pipelines/quiz/{docId}.
func (h *Handler) QuizNote(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	note, err := h.pipeline.Quiz(r.Context(), owner, r.PathValue("docId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// ListActivities handles GET /api/activities. The limit query
// parameter caps the result; the store default applies otherwise.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	activities, err := h.store.ListActivities(r.Context(), owner, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if activities == nil {
		activities = []db.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}
