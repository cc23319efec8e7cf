package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/impetus-notes/note-service/internal/notes"
)

// ListNotes handles GET /api/notes. Optional query parameters category
// and tag narrow the result.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var filter notes.ListFilter
	if r.URL.Query().Has("category") {
		category := r.URL.Query().Get("category")
		filter.Category = &category
	}
	filter.Tag = r.URL.Query().Get("tag")

	found, err := h.notes.ListByOwner(r.Context(), owner, filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if found == nil {
		found = []notes.Note{}
	}
	writeJSON(w, http.StatusOK, found)
}

// ListArchivedNotes handles GET /api/notes/archived.
func (h *Handler) ListArchivedNotes(w http.ResponseWriter, r *http.Request) {
	listFlagged(w, r, h.notes.ListArchived)
}

// ListStarredNotes handles GET /api/notes/starred.
func (h *Handler) ListStarredNotes(w http.ResponseWriter, r *http.Request) {
	listFlagged(w, r, h.notes.ListStarred)
}

func listFlagged(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, ownerID string) ([]notes.Note, error)) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	found, err := list(r.Context(), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if found == nil {
		found = []notes.Note{}
	}
	writeJSON(w, http.StatusOK, found)
}

// GetNote handles GET /api/notes/{docId}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	note, err := h.notes.GetByDocID(r.Context(), owner, r.PathValue("docId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetNoteHTML handles GET /api/notes/{docId}/html, returning the note
// content rendered to sanitized HTML.
func (h *Handler) GetNoteHTML(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	note, err := h.notes.GetByDocID(r.Context(), owner, r.PathValue("docId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(notes.RenderHTML(note))
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var params notes.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	params.OwnerID = owner

	if params.Category != nil && *params.Category != "" {
		if ok, err := h.requireCategory(w, r, owner, *params.Category); err != nil || !ok {
			return
		}
	}

	note, err := h.notes.Create(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{docId}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var params notes.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if params.Category != nil && *params.Category != "" {
		if ok, err := h.requireCategory(w, r, owner, *params.Category); err != nil || !ok {
			return
		}
	}

	note, err := h.notes.Update(r.Context(), owner, r.PathValue("docId"), params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := h.notes.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCategoryRequest is the body of PUT /api/notes/{id}/category. A
// null category clears the assignment.
type SetCategoryRequest struct {
	Category *string `json:"category"`
}

// SetNoteCategory handles PUT /api/notes/{id}/category.
func (h *Handler) SetNoteCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req SetCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	category := req.Category
	if category != nil && *category == "" {
		category = nil
	}
	if category != nil {
		if ok, err := h.requireCategory(w, r, owner, *category); err != nil || !ok {
			return
		}
	}

	note, err := h.notes.SetCategory(r.Context(), owner, r.PathValue("id"), category)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ToggleArchive handles POST /api/notes/{id}/archive.
func (h *Handler) ToggleArchive(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	note, err := h.notes.ToggleArchive(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ToggleStar handles POST /api/notes/{id}/star.
func (h *Handler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	note, err := h.notes.ToggleStar(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// requireCategory verifies the named category exists for the owner. It
// writes the response itself on failure.
func (h *Handler) requireCategory(w http.ResponseWriter, r *http.Request, owner, name string) (bool, error) {
	exists, err := h.categories.Exists(r.Context(), owner, name)
	if err != nil {
		writeDomainError(w, r, err)
		return false, err
	}
	if !exists {
		writeError(w, http.StatusNotFound, "category not found")
		return false, nil
	}
	return true, nil
}
