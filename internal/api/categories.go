package api

import (
	"encoding/json"
	"net/http"

	"github.com/impetus-notes/note-service/internal/categories"
)

// CategoryRequest is the body of category create and rename calls.
type CategoryRequest struct {
	Name string `json:"name"`
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	cats, err := h.categories.List(r.Context(), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if cats == nil {
		cats = []categories.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	cat, err := h.categories.Create(r.Context(), owner, req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// RenameCategory handles PUT /api/categories/{id}. The response
// includes how many notes had their reference rewritten.
func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	result, err := h.categories.Rename(r.Context(), owner, r.PathValue("id"), req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteCategory handles DELETE /api/categories/{id}. Deleting a
// category deletes the notes filed under it; the response reports the
// count.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	result, err := h.categories.Delete(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
