package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Activity is an append-only record of a domain event.
type Activity struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	OwnerID    string    `json:"ownerId"`
	NoteID     string    `json:"noteId,omitempty"`
	DocID      string    `json:"docId,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// RecordActivity appends an activity row.
func (s *Store) RecordActivity(ctx context.Context, a Activity) error {
	recordedAt := a.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (kind, owner_id, note_id, doc_id, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.Kind, a.OwnerID, nullIfEmpty(a.NoteID), nullIfEmpty(a.DocID), a.Detail, recordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivities returns the most recent activities for an owner,
// newest first.
func (s *Store) ListActivities(ctx context.Context, ownerID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, owner_id, note_id, doc_id, detail, recorded_at
		FROM activities
		WHERE owner_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		var noteID, docID sql.NullString
		var recordedAt int64
		if err := rows.Scan(&a.ID, &a.Kind, &a.OwnerID, &noteID, &docID, &a.Detail, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.NoteID = noteID.String
		a.DocID = docID.String
		a.RecordedAt = time.UnixMilli(recordedAt)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}
	return activities, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
