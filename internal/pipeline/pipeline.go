// Package pipeline runs the content generation flows: PDF import,
// note summarization, and quiz generation. Each flow is a staged run
// over the same machinery: fetch the input, decode it to plain text,
// generate new text through the strategy, encode the result into
// blocks, and persist the generated note under its category.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/impetus-notes/note-service/internal/blocks"
	"github.com/impetus-notes/note-service/internal/categories"
	"github.com/impetus-notes/note-service/internal/errs"
	"github.com/impetus-notes/note-service/internal/filestore"
	"github.com/impetus-notes/note-service/internal/genai"
	"github.com/impetus-notes/note-service/internal/notes"
	"github.com/impetus-notes/note-service/internal/obs"
)

// Pipeline coordinates generation flows over the note and category
// stores. The file store is optional; without it source PDFs are not
// archived.
type Pipeline struct {
	strategy   genai.Strategy
	notes      *notes.Store
	categories *categories.Store
	files      *filestore.Store
	log        *slog.Logger
}

// New creates a pipeline. files may be nil to disable source archival.
func New(strategy genai.Strategy, notesStore *notes.Store, categoryStore *categories.Store, files *filestore.Store) *Pipeline {
	return &Pipeline{
		strategy:   strategy,
		notes:      notesStore,
		categories: categoryStore,
		files:      files,
		log:        obs.Pkg("pipeline"),
	}
}

// Strategy returns the active generation strategy.
func (p *Pipeline) Strategy() genai.Strategy {
	return p.strategy
}

// ImportPDF extracts text from an uploaded PDF and persists it as a
// new note. When the strategy is not ready the upload is still
// acknowledged with a placeholder note instead of an error.
func (p *Pipeline) ImportPDF(ctx context.Context, ownerID, filename string, pdf []byte) (*notes.Note, error) {
	if ownerID == "" {
		return nil, errs.New(errs.InvalidArgument, "owner id is required")
	}
	if len(pdf) == 0 {
		return nil, errs.New(errs.InvalidArgument, "uploaded PDF is empty")
	}
	if !isPDF(pdf) {
		return nil, errs.New(errs.InvalidArgument, "uploaded file is not a PDF document")
	}
	if filename == "" {
		filename = "document.pdf"
	}

	if !p.strategy.Ready() {
		p.log.WarnContext(ctx, "strategy not ready, creating placeholder note",
			"strategy", p.strategy.Name(), "filename", filename)
		return p.createUnder(ctx, notes.NewPlaceholderPDFNote(ownerID, filename))
	}

	start := time.Now()
	text, err := p.strategy.Generate(ctx, genai.Request{
		Instruction: genai.InstructionExtractPDF,
		PDF:         pdf,
		PDFName:     filename,
	})
	if err != nil {
		return nil, mapGenerationError(err)
	}
	p.log.InfoContext(ctx, "pdf text extracted",
		"filename", filename, "pdf_bytes", len(pdf),
		"text_chars", len(text), "duration_ms", time.Since(start).Milliseconds())

	params := notes.NewPDFImportNote(ownerID, filename, text)

	// Archive the original upload. Failure here loses only the source
	// copy, not the note, so it downgrades to a warning.
	if p.files != nil {
		key := filestore.SourceKey(ownerID, params.DocID)
		if err := p.files.Put(ctx, key, pdf, "application/pdf"); err != nil {
			p.log.WarnContext(ctx, "failed to archive source pdf", "key", key, "error", err)
		} else {
			params.SourceKey = key
		}
	}

	return p.createUnder(ctx, params)
}

// Summarize generates a summary of an existing note and persists it as
// a new note. The source note is looked up by document id.
func (p *Pipeline) Summarize(ctx context.Context, ownerID, docID string) (*notes.Note, error) {
	source, text, err := p.fetchSource(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}

	generated, err := p.generate(ctx, genai.InstructionSummarize, text)
	if err != nil {
		return nil, err
	}
	return p.createUnder(ctx, notes.NewSummaryNote(ownerID, source.Title, generated))
}

// Quiz generates quiz questions over an existing note and persists
// them as a new note. The source note is looked up by document id.
func (p *Pipeline) Quiz(ctx context.Context, ownerID, docID string) (*notes.Note, error) {
	source, text, err := p.fetchSource(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}

	generated, err := p.generate(ctx, genai.InstructionQuiz, text)
	if err != nil {
		return nil, err
	}
	return p.createUnder(ctx, notes.NewQuizNote(ownerID, source.Title, generated))
}

// pdfMagic is the PDF file signature. Every version of the format
// starts its header with it.
var pdfMagic = []byte("%PDF-")

// isPDF reports whether the upload carries the PDF signature. The
// declared multipart content type is not trusted; only the bytes are.
func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// fetchSource loads the source note and flattens its blocks to plain
// text.
func (p *Pipeline) fetchSource(ctx context.Context, ownerID, docID string) (*notes.Note, string, error) {
	source, err := p.notes.GetByDocID(ctx, ownerID, docID)
	if err != nil {
		return nil, "", err
	}
	return source, blocks.PlainText(source.Content), nil
}

// generate runs the strategy over note text with a readiness
// pre-flight.
func (p *Pipeline) generate(ctx context.Context, instruction, text string) (string, error) {
	if !p.strategy.Ready() {
		return "", errs.New(errs.Unavailable, "content generation is not configured")
	}

	start := time.Now()
	generated, err := p.strategy.Generate(ctx, genai.Request{Instruction: instruction, Text: text})
	if err != nil {
		return "", mapGenerationError(err)
	}
	p.log.InfoContext(ctx, "content generated",
		"strategy", p.strategy.Name(), "input_chars", len(text),
		"output_chars", len(generated), "duration_ms", time.Since(start).Milliseconds())
	return generated, nil
}

// createUnder ensures the target category exists and persists the
// generated note. Category provisioning is idempotent, so a retried
// flow converges on the same category row.
func (p *Pipeline) createUnder(ctx context.Context, params notes.CreateParams) (*notes.Note, error) {
	if params.Category != nil {
		if _, err := p.categories.EnsureExists(ctx, params.OwnerID, *params.Category); err != nil {
			return nil, err
		}
	}
	return p.notes.Create(ctx, params)
}

// mapGenerationError folds strategy failures into coded errors so the
// transport layer maps them to responses uniformly.
func mapGenerationError(err error) error {
	switch {
	case errors.Is(err, genai.ErrNotConfigured):
		return errs.Wrap(errs.Unavailable, "content generation is not configured", err)
	case errors.Is(err, genai.ErrInvalidCredentials):
		return errs.Wrap(errs.Unavailable, "generation provider rejected the configured credentials", err)
	case errors.Is(err, genai.ErrQuotaExceeded):
		return errs.Wrap(errs.Unavailable, "generation provider quota exceeded", err)
	case errors.Is(err, genai.ErrSafetyBlocked):
		return errs.Wrap(errs.Unavailable, "content was blocked by the provider's safety filter", err)
	case errors.Is(err, genai.ErrMalformedResponse):
		return errs.Wrap(errs.Unavailable, "generation provider returned no usable content", err)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.Unavailable, "generation timed out", err)
	default:
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("generation failed: %v", err), err)
	}
}
