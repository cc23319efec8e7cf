package notes

import (
	"strings"

	"github.com/google/uuid"
	"github.com/impetus-notes/note-service/internal/blocks"
)

// Factory constructors for pipeline-created notes. The variants differ
// only in title template, category, and provenance tags; everything
// else flows through the same CreateParams.

// NewPDFImportNote builds params for a note extracted from a PDF.
func NewPDFImportNote(ownerID, filename, text string) CreateParams {
	category := CategoryGenerated
	return CreateParams{
		DocID:    uuid.NewString(),
		OwnerID:  ownerID,
		Title:    "Note from PDF: " + trimPDFExt(filename),
		Content:  blocks.FromPlainText(text, "Note from PDF"),
		Preview:  blocks.Preview(text),
		Category: &category,
		Tags:     []string{"pdf-import", "llm"},
	}
}

// NewPlaceholderPDFNote builds params for the note created when the
// generation provider is not configured. The upload is acknowledged
// with placeholder content instead of failing the request.
func NewPlaceholderPDFNote(ownerID, filename string) CreateParams {
	text := "PDF processing is currently unavailable. Please check the server configuration.\n\n" +
		"The administrator needs to add a valid generation API key to enable PDF processing.\n\n" +
		"The file '" + filename + "' was uploaded but could not be processed."
	category := CategoryGenerated
	return CreateParams{
		DocID:    uuid.NewString(),
		OwnerID:  ownerID,
		Title:    "PDF Upload: " + trimPDFExt(filename),
		Content:  blocks.FromPlainText(text, "Note from PDF"),
		Preview:  "PDF processing unavailable. Please check server configuration.",
		Category: &category,
		Tags:     []string{"pdf-import", "processing-unavailable"},
	}
}

// NewSummaryNote builds params for a generated summary of an existing note.
func NewSummaryNote(ownerID, sourceTitle, text string) CreateParams {
	category := CategoryGeneratedSummary
	return CreateParams{
		DocID:    uuid.NewString(),
		OwnerID:  ownerID,
		Title:    "Summary of " + sourceTitle,
		Content:  blocks.FromPlainText(text, "Summary"),
		Preview:  blocks.Preview(text),
		Category: &category,
		Tags:     []string{"llm", "summary"},
	}
}

// NewQuizNote builds params for generated quiz questions over an
// existing note.
func NewQuizNote(ownerID, sourceTitle, text string) CreateParams {
	category := CategoryGeneratedQuiz
	return CreateParams{
		DocID:    uuid.NewString(),
		OwnerID:  ownerID,
		Title:    "Quiz Questions of " + sourceTitle,
		Content:  blocks.FromPlainText(text, "Quiz Questions"),
		Preview:  blocks.Preview(text),
		Category: &category,
		Tags:     []string{"llm", "quiz"},
	}
}

func trimPDFExt(filename string) string {
	if len(filename) >= 4 && strings.EqualFold(filename[len(filename)-4:], ".pdf") {
		return filename[:len(filename)-4]
	}
	return filename
}
