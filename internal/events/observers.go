package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/impetus-notes/note-service/internal/db"
	"github.com/impetus-notes/note-service/internal/email"
	"github.com/impetus-notes/note-service/internal/logutil"
)

// LogObserver writes every event to the structured log.
type LogObserver struct {
	Log *slog.Logger
}

func (o *LogObserver) Name() string { return "console" }

func (o *LogObserver) Handle(_ context.Context, e Event) error {
	log := o.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("domain event",
		"event", string(e.Kind),
		"owner_id", e.OwnerID,
		"note_id", e.NoteID,
		"doc_id", e.DocID,
		"title", e.Title,
	)
	return nil
}

// ActivityRecorder persists activity rows. Implemented by db.Store.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, a db.Activity) error
}

// ActivityObserver appends each event to the activities table.
type ActivityObserver struct {
	Recorder ActivityRecorder
}

func (o *ActivityObserver) Name() string { return "activity" }

func (o *ActivityObserver) Handle(ctx context.Context, e Event) error {
	return o.Recorder.RecordActivity(ctx, db.Activity{
		Kind:       string(e.Kind),
		OwnerID:    e.OwnerID,
		NoteID:     e.NoteID,
		DocID:      e.DocID,
		Detail:     e.Detail,
		RecordedAt: e.OccurredAt,
	})
}

// WebhookObserver POSTs events as JSON to a configured endpoint.
// With no endpoint configured it is a silent no-op, so it can always
// be subscribed.
type WebhookObserver struct {
	Endpoint string
	Client   *http.Client
	Log      *slog.Logger
}

func (o *WebhookObserver) Name() string { return "webhook" }

func (o *WebhookObserver) Handle(ctx context.Context, e Event) error {
	if o.Endpoint == "" {
		return nil
	}
	client := o.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: endpoint returned %d: %s",
			resp.StatusCode, logutil.TruncateForLog(string(body), 256))
	}
	if o.Log != nil {
		o.Log.Debug("webhook delivered", "event", string(e.Kind), "status", resp.StatusCode)
	}
	return nil
}

// pipelineTags mark notes produced by the generation pipeline.
var pipelineTags = []string{"pdf-import", "summary", "quiz"}

// EmailObserver notifies the configured address when the generation
// pipeline creates a note. Without a service or address it is a silent
// no-op.
type EmailObserver struct {
	Service    email.Service
	NotifyAddr string
}

func (o *EmailObserver) Name() string { return "email" }

func (o *EmailObserver) Handle(_ context.Context, e Event) error {
	if o.Service == nil || o.NotifyAddr == "" {
		return nil
	}
	if e.Kind != NoteCreated || !hasPipelineTag(e.Tags) {
		return nil
	}
	return o.Service.Send(o.NotifyAddr, email.TemplateNoteReady, email.NoteReadyData{
		Title:    e.Title,
		DocID:    e.DocID,
		Category: e.Category,
	})
}

func hasPipelineTag(tags []string) bool {
	for _, t := range pipelineTags {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}
