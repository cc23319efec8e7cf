package notes

import (
	"time"

	"github.com/impetus-notes/note-service/internal/blocks"
)

// Generated-note category names. The pipeline files its output under
// these, creating them on demand.
const (
	CategoryGenerated        = "Generated"
	CategoryGeneratedSummary = "Generated Summary"
	CategoryGeneratedQuiz    = "Generated Quiz"
)

// Note is a user's note. DocID is the client-facing document id; ID is
// the storage id. Category references a Category by name, not id; the
// category stores keep the reference consistent on rename and delete.
type Note struct {
	ID         string         `json:"id"`
	DocID      string         `json:"docId"`
	OwnerID    string         `json:"ownerId"`
	Title      string         `json:"title"`
	Content    []blocks.Block `json:"content"`
	Preview    string         `json:"preview"`
	Category   *string        `json:"category"`
	Tags       []string       `json:"tags"`
	IsArchived bool           `json:"isArchived"`
	IsStarred  bool           `json:"isStarred"`
	SourceKey  string         `json:"-"`
	UpdatedAt  time.Time      `json:"timestamp"`
}

// CreateParams contains parameters for creating a note.
type CreateParams struct {
	DocID    string         `json:"docId"`
	OwnerID  string         `json:"ownerId"`
	Title    string         `json:"title"`
	Content  []blocks.Block `json:"content"`
	Preview  string         `json:"preview,omitempty"`
	Category *string        `json:"category,omitempty"`
	Tags     []string       `json:"tags,omitempty"`

	// SourceKey points at the archived original upload in the file
	// store, when there is one.
	SourceKey string `json:"-"`
}

// UpdateParams contains parameters for updating a note by docId.
// Title and Content are required; the other fields are applied only
// when present. OwnerID never changes on update.
type UpdateParams struct {
	Title    string         `json:"title"`
	Content  []blocks.Block `json:"content"`
	Preview  *string        `json:"preview,omitempty"`
	Category *string        `json:"category,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

// ListFilter narrows ListByOwner results.
type ListFilter struct {
	Category *string // exact category name
	Tag      string  // notes carrying this tag
}
