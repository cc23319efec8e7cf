// Package notes implements the note store: validated CRUD scoped by
// owner, archive/star toggles, and the category-reference cascades used
// by the category coordinator. Every mutation rewrites the timestamp
// and publishes a domain event.
package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/impetus-notes/note-service/internal/blocks"
	"github.com/impetus-notes/note-service/internal/db"
	"github.com/impetus-notes/note-service/internal/errs"
	"github.com/impetus-notes/note-service/internal/events"
)

// Store provides note persistence on the shared database handle.
type Store struct {
	store *db.Store
	bus   *events.Bus
}

// NewStore creates a note store. The bus may be nil, in which case no
// events are published.
func NewStore(store *db.Store, bus *events.Bus) *Store {
	return &Store{store: store, bus: bus}
}

const noteColumns = `id, doc_id, owner_id, title, content, preview, category, tags, is_archived, is_starred, source_key, updated_at`

// Create inserts a new note. DocID, OwnerID, Title and Content are
// required; Preview defaults to the sentinel when absent. A duplicate
// DocID is a conflict, detected authoritatively by the unique index.
func (s *Store) Create(ctx context.Context, p CreateParams) (*Note, error) {
	if p.DocID == "" || p.Title == "" || p.Content == nil || p.OwnerID == "" {
		return nil, errs.New(errs.InvalidArgument, "docId, title, content, and owner id are required")
	}

	preview := p.Preview
	if preview == "" {
		preview = blocks.NoPreview
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	contentJSON, err := blocks.Encode(p.Content)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to encode note content", err)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to encode note tags", err)
	}

	note := &Note{
		ID:        uuid.NewString(),
		DocID:     p.DocID,
		OwnerID:   p.OwnerID,
		Title:     p.Title,
		Content:   p.Content,
		Preview:   preview,
		Category:  p.Category,
		Tags:      tags,
		SourceKey: p.SourceKey,
		UpdatedAt: time.Now(),
	}

	_, err = s.store.DB().ExecContext(ctx, `
		INSERT INTO notes (id, doc_id, owner_id, title, content, preview, category, tags, source_key, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, note.ID, note.DocID, note.OwnerID, note.Title, string(contentJSON), note.Preview,
		note.Category, string(tagsJSON), nullableString(note.SourceKey), note.UpdatedAt.UnixMilli())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errs.Wrap(errs.Conflict, "a note with this docId already exists", err)
		}
		return nil, errs.Wrap(errs.Internal, "failed to create note", err)
	}

	s.publish(ctx, events.Event{
		Kind: events.NoteCreated, OwnerID: note.OwnerID, NoteID: note.ID,
		DocID: note.DocID, Title: note.Title, Category: derefOrEmpty(note.Category), Tags: note.Tags,
	})
	return note, nil
}

// GetByDocID returns the owner's note with the given document id.
func (s *Store) GetByDocID(ctx context.Context, ownerID, docID string) (*Note, error) {
	row := s.store.DB().QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE owner_id = ? AND doc_id = ?
	`, ownerID, docID)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "note not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to get note", err)
	}
	return note, nil
}

// GetByID returns the owner's note with the given storage id.
func (s *Store) GetByID(ctx context.Context, ownerID, id string) (*Note, error) {
	row := s.store.DB().QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE owner_id = ? AND id = ?
	`, ownerID, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "note not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to get note", err)
	}
	return note, nil
}

// ListByOwner returns the owner's notes, newest first, optionally
// narrowed by filter.
func (s *Store) ListByOwner(ctx context.Context, ownerID string, filter ListFilter) ([]Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE owner_id = ?`
	args := []any{ownerID}
	if filter.Category != nil {
		query += ` AND category = ?`
		args = append(args, *filter.Category)
	}
	query += ` ORDER BY updated_at DESC, id`

	found, err := s.queryNotes(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if filter.Tag != "" {
		filtered := found[:0]
		for _, n := range found {
			for _, tag := range n.Tags {
				if tag == filter.Tag {
					filtered = append(filtered, n)
					break
				}
			}
		}
		found = filtered
	}
	return found, nil
}

// ListArchived returns the owner's archived notes, newest first.
func (s *Store) ListArchived(ctx context.Context, ownerID string) ([]Note, error) {
	return s.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE owner_id = ? AND is_archived = 1
		ORDER BY updated_at DESC, id
	`, ownerID)
}

// ListStarred returns the owner's starred notes, newest first.
func (s *Store) ListStarred(ctx context.Context, ownerID string) ([]Note, error) {
	return s.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE owner_id = ? AND is_starred = 1
		ORDER BY updated_at DESC, id
	`, ownerID)
}

// Update replaces the note identified by docId. Title and Content are
// required; Category and Tags are applied only when present; Preview is
// re-derived from the new content when not supplied. The owner never
// changes.
func (s *Store) Update(ctx context.Context, ownerID, docID string, p UpdateParams) (*Note, error) {
	if p.Title == "" || p.Content == nil {
		return nil, errs.New(errs.InvalidArgument, "title and content are required")
	}

	current, err := s.GetByDocID(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}

	preview := blocks.Preview(blocks.PlainText(p.Content))
	if p.Preview != nil {
		preview = *p.Preview
	}
	category := current.Category
	if p.Category != nil {
		if *p.Category == "" {
			category = nil
		} else {
			category = p.Category
		}
	}
	tags := current.Tags
	if p.Tags != nil {
		tags = p.Tags
	}

	contentJSON, err := blocks.Encode(p.Content)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to encode note content", err)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to encode note tags", err)
	}

	updatedAt := time.Now()
	_, err = s.store.DB().ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, preview = ?, category = ?, tags = ?, updated_at = ?
		WHERE owner_id = ? AND doc_id = ?
	`, p.Title, string(contentJSON), preview, category, string(tagsJSON), updatedAt.UnixMilli(), ownerID, docID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to update note", err)
	}

	updated := *current
	updated.Title = p.Title
	updated.Content = p.Content
	updated.Preview = preview
	updated.Category = category
	updated.Tags = tags
	updated.UpdatedAt = updatedAt

	s.publish(ctx, events.Event{
		Kind: events.NoteUpdated, OwnerID: ownerID, NoteID: updated.ID,
		DocID: docID, Title: updated.Title, Category: derefOrEmpty(category), Tags: tags,
	})
	return &updated, nil
}

// Delete removes the owner's note with the given storage id.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	note, err := s.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	res, err := s.store.DB().ExecContext(ctx, `
		DELETE FROM notes WHERE owner_id = ? AND id = ?
	`, ownerID, id)
	if err != nil {
		return errs.Wrap(errs.Internal, "failed to delete note", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.NotFound, "note not found")
	}

	s.publish(ctx, events.Event{
		Kind: events.NoteDeleted, OwnerID: ownerID, NoteID: id,
		DocID: note.DocID, Title: note.Title,
	})
	return nil
}

// ToggleArchive flips the archived flag of the owner's note. The flip
// is a read-then-write, intentionally preserving last-writer-wins
// behavior under concurrent toggles.
func (s *Store) ToggleArchive(ctx context.Context, ownerID, id string) (*Note, error) {
	return s.toggleFlag(ctx, ownerID, id, "is_archived", events.NoteArchiveToggled)
}

// ToggleStar flips the starred flag of the owner's note.
func (s *Store) ToggleStar(ctx context.Context, ownerID, id string) (*Note, error) {
	return s.toggleFlag(ctx, ownerID, id, "is_starred", events.NoteStarToggled)
}

func (s *Store) toggleFlag(ctx context.Context, ownerID, id, column string, kind events.Kind) (*Note, error) {
	note, err := s.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	var next bool
	switch column {
	case "is_archived":
		next = !note.IsArchived
		note.IsArchived = next
	case "is_starred":
		next = !note.IsStarred
		note.IsStarred = next
	}

	updatedAt := time.Now()
	_, err = s.store.DB().ExecContext(ctx,
		`UPDATE notes SET `+column+` = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		boolToInt(next), updatedAt.UnixMilli(), ownerID, id)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to toggle note flag", err)
	}
	note.UpdatedAt = updatedAt

	s.publish(ctx, events.Event{
		Kind: kind, OwnerID: ownerID, NoteID: id, DocID: note.DocID, Title: note.Title,
		Detail: fmt.Sprintf("%s=%t", column, next),
	})
	return note, nil
}

// SetCategory reassigns (or clears, when category is nil) the category
// reference of a single note. Category existence is validated by the
// caller against the category store.
func (s *Store) SetCategory(ctx context.Context, ownerID, id string, category *string) (*Note, error) {
	note, err := s.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	updatedAt := time.Now()
	_, err = s.store.DB().ExecContext(ctx, `
		UPDATE notes SET category = ?, updated_at = ? WHERE owner_id = ? AND id = ?
	`, category, updatedAt.UnixMilli(), ownerID, id)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to set note category", err)
	}

	note.Category = category
	note.UpdatedAt = updatedAt
	s.publish(ctx, events.Event{
		Kind: events.NoteUpdated, OwnerID: ownerID, NoteID: id, DocID: note.DocID,
		Title: note.Title, Category: derefOrEmpty(category), Detail: "category reassigned",
	})
	return note, nil
}

// RenameCategoryRefs rewrites the category reference on every note of
// the owner that points at oldName. Called by the category coordinator
// before the category row itself is renamed.
func (s *Store) RenameCategoryRefs(ctx context.Context, ownerID, oldName, newName string) (int64, error) {
	res, err := s.store.DB().ExecContext(ctx, `
		UPDATE notes SET category = ?, updated_at = ? WHERE owner_id = ? AND category = ?
	`, newName, time.Now().UnixMilli(), ownerID, oldName)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, "failed to rename category references", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteByCategory removes every note of the owner filed under the
// category. Called by the category coordinator before the category row
// itself is deleted.
func (s *Store) DeleteByCategory(ctx context.Context, ownerID, name string) (int64, error) {
	res, err := s.store.DB().ExecContext(ctx, `
		DELETE FROM notes WHERE owner_id = ? AND category = ?
	`, ownerID, name)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, "failed to delete notes by category", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) queryNotes(ctx context.Context, query string, args ...any) ([]Note, error) {
	rows, err := s.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to list notes", err)
	}
	defer rows.Close()

	var found []Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "failed to scan note", err)
		}
		found = append(found, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Internal, "error iterating notes", err)
	}
	return found, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*Note, error) {
	var n Note
	var contentJSON, tagsJSON string
	var category, sourceKey sql.NullString
	var isArchived, isStarred int
	var updatedAt int64

	err := row.Scan(&n.ID, &n.DocID, &n.OwnerID, &n.Title, &contentJSON, &n.Preview,
		&category, &tagsJSON, &isArchived, &isStarred, &sourceKey, &updatedAt)
	if err != nil {
		return nil, err
	}

	n.Content = blocks.Decode([]byte(contentJSON))
	if n.Content == nil {
		n.Content = []blocks.Block{}
	}
	n.Tags = []string{}
	// Stored tags predate validation in older rows; tolerate bad JSON.
	_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	if category.Valid {
		n.Category = &category.String
	}
	n.SourceKey = sourceKey.String
	n.IsArchived = isArchived != 0
	n.IsStarred = isStarred != 0
	n.UpdatedAt = time.UnixMilli(updatedAt)
	return &n, nil
}

func (s *Store) publish(ctx context.Context, e events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, e)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
