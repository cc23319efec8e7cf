// Package categories implements the category store and the consistency
// coordinator that keeps denormalized category references on notes in
// sync. Names are unique per owner, case-insensitively; the unique
// index is the authoritative conflict detector and the SELECT
// pre-checks only produce friendlier messages.
package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/impetus-notes/note-service/internal/db"
	"github.com/impetus-notes/note-service/internal/errs"
	"github.com/impetus-notes/note-service/internal/events"
	"github.com/impetus-notes/note-service/internal/notes"
)

// Category groups notes by name within an owner.
type Category struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RenameResult reports a rename along with the cascade size.
type RenameResult struct {
	Category     Category `json:"category"`
	NotesUpdated int64    `json:"notesUpdated"`
}

// DeleteResult reports a delete along with the cascade size.
type DeleteResult struct {
	NotesDeleted int64 `json:"notesDeleted"`
}

// Store provides category persistence and cascade coordination.
type Store struct {
	store *db.Store
	notes *notes.Store
	bus   *events.Bus
}

// NewStore creates a category store. The notes store handles the
// cascades; the bus may be nil.
func NewStore(store *db.Store, notesStore *notes.Store, bus *events.Bus) *Store {
	return &Store{store: store, notes: notesStore, bus: bus}
}

// List returns the owner's categories sorted by name.
func (s *Store) List(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM categories WHERE owner_id = ? ORDER BY name COLLATE NOCASE
	`, ownerID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to list categories", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		var createdAt, updatedAt int64
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &createdAt, &updatedAt); err != nil {
			return nil, errs.Wrap(errs.Internal, "failed to scan category", err)
		}
		c.CreatedAt = time.UnixMilli(createdAt)
		c.UpdatedAt = time.UnixMilli(updatedAt)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Internal, "error iterating categories", err)
	}
	return cats, nil
}

// Get returns the owner's category with the given id.
func (s *Store) Get(ctx context.Context, ownerID, id string) (*Category, error) {
	var c Category
	var createdAt, updatedAt int64
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM categories WHERE owner_id = ? AND id = ?
	`, ownerID, id).Scan(&c.ID, &c.OwnerID, &c.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "category not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to get category", err)
	}
	c.CreatedAt = time.UnixMilli(createdAt)
	c.UpdatedAt = time.UnixMilli(updatedAt)
	return &c, nil
}

// Exists reports whether the owner has a category with this exact name.
func (s *Store) Exists(ctx context.Context, ownerID, name string) (bool, error) {
	var one int
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT 1 FROM categories WHERE owner_id = ? AND name = ?
	`, ownerID, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.Internal, "failed to check category", err)
	}
	return true, nil
}

// Create adds a new category. A name that differs from an existing one
// only by case is a conflict.
func (s *Store) Create(ctx context.Context, ownerID, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.New(errs.InvalidArgument, "category name is required")
	}

	// Advisory pre-check for a friendlier message. The unique index
	// still catches races.
	if taken, err := s.nameTaken(ctx, ownerID, name, ""); err != nil {
		return nil, err
	} else if taken {
		return nil, errs.New(errs.Conflict, fmt.Sprintf("category %q already exists", name))
	}

	c := &Category{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO categories (id, owner_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.OwnerID, c.Name, c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errs.Wrap(errs.Conflict, fmt.Sprintf("category %q already exists", name), err)
		}
		return nil, errs.Wrap(errs.Internal, "failed to create category", err)
	}

	s.publish(ctx, events.Event{Kind: events.CategoryCreated, OwnerID: ownerID, Category: name})
	return c, nil
}

// EnsureExists creates the category if the owner does not already have
// it (case-insensitively). It is idempotent and race-safe: concurrent
// callers converge on a single row and none of them fail.
func (s *Store) EnsureExists(ctx context.Context, ownerID, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.New(errs.InvalidArgument, "category name is required")
	}

	now := time.Now().UnixMilli()
	res, err := s.store.DB().ExecContext(ctx, `
		INSERT OR IGNORE INTO categories (id, owner_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), ownerID, name, now, now)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to ensure category", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		s.publish(ctx, events.Event{Kind: events.CategoryCreated, OwnerID: ownerID, Category: name, Detail: "auto-provisioned"})
	}

	var c Category
	var createdAt, updatedAt int64
	err = s.store.DB().QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM categories WHERE owner_id = ? AND name = ? COLLATE NOCASE
	`, ownerID, name).Scan(&c.ID, &c.OwnerID, &c.Name, &createdAt, &updatedAt)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to read ensured category", err)
	}
	c.CreatedAt = time.UnixMilli(createdAt)
	c.UpdatedAt = time.UnixMilli(updatedAt)
	return &c, nil
}

// Rename changes a category's name and rewrites the reference on every
// note filed under it. Notes are updated first, then the category row;
// the two phases are not atomic, so a crash in between leaves notes
// pointing at the new name with the rename itself unpersisted. Callers
// can retry: the cascade is idempotent once the references match.
func (s *Store) Rename(ctx context.Context, ownerID, id, newName string) (*RenameResult, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, errs.New(errs.InvalidArgument, "category name is required")
	}

	current, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	// Pre-check excludes the category being renamed so case-only
	// renames of the same category are allowed.
	if taken, err := s.nameTaken(ctx, ownerID, newName, id); err != nil {
		return nil, err
	} else if taken {
		return nil, errs.New(errs.Conflict, fmt.Sprintf("category %q already exists", newName))
	}

	notesUpdated, err := s.notes.RenameCategoryRefs(ctx, ownerID, current.Name, newName)
	if err != nil {
		return nil, err
	}

	updatedAt := time.Now()
	_, err = s.store.DB().ExecContext(ctx, `
		UPDATE categories SET name = ?, updated_at = ? WHERE owner_id = ? AND id = ?
	`, newName, updatedAt.UnixMilli(), ownerID, id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errs.Wrap(errs.Conflict, fmt.Sprintf("category %q already exists", newName), err)
		}
		return nil, errs.Wrap(errs.Internal, "failed to rename category", err)
	}

	renamed := *current
	renamed.Name = newName
	renamed.UpdatedAt = updatedAt

	s.publish(ctx, events.Event{
		Kind: events.CategoryRenamed, OwnerID: ownerID, Category: newName,
		Detail: fmt.Sprintf("renamed from %q, %d notes updated", current.Name, notesUpdated),
	})
	return &RenameResult{Category: renamed, NotesUpdated: notesUpdated}, nil
}

// Delete removes a category and every note filed under it. Notes are
// deleted first, then the category row; the phases are not atomic and
// a crash in between leaves the category empty but present.
func (s *Store) Delete(ctx context.Context, ownerID, id string) (*DeleteResult, error) {
	current, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	notesDeleted, err := s.notes.DeleteByCategory(ctx, ownerID, current.Name)
	if err != nil {
		return nil, err
	}

	res, err := s.store.DB().ExecContext(ctx, `
		DELETE FROM categories WHERE owner_id = ? AND id = ?
	`, ownerID, id)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to delete category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errs.New(errs.NotFound, "category not found")
	}

	s.publish(ctx, events.Event{
		Kind: events.CategoryDeleted, OwnerID: ownerID, Category: current.Name,
		Detail: fmt.Sprintf("%d notes deleted", notesDeleted),
	})
	return &DeleteResult{NotesDeleted: notesDeleted}, nil
}

// nameTaken reports whether another category of the owner already uses
// the name, case-insensitively. excludeID skips the category being
// renamed.
func (s *Store) nameTaken(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	var one int
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT 1 FROM categories
		WHERE owner_id = ? AND name = ? COLLATE NOCASE AND id != ?
	`, ownerID, name, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.Internal, "failed to check category name", err)
	}
	return true, nil
}

func (s *Store) publish(ctx context.Context, e events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, e)
	}
}
