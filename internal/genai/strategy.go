// Package genai defines the content generation strategy interface and
// its two implementations: an external model provider and a local
// fallback. The pipeline selects one at startup and treats it as
// opaque.
package genai

import (
	"context"
	"errors"
)

// Generation instructions. The PDF instruction asks for a text
// rendition of the document; the other two operate on note text.
const (
	InstructionExtractPDF = "Extract all text content from the following PDF document. Present the extracted text clearly. If the PDF contains images or diagrams, describe them briefly if possible, otherwise state that non-text content was present but could not be fully extracted."
	InstructionSummarize  = "Please summarize the following note content in a concise and clear manner:"
	InstructionQuiz       = "Based on the following note content, generate five challenging quiz questions. Provide only the questions."
)

// Typed generation failures. The pipeline wraps these into coded
// errors; tests assert on them directly.
var (
	ErrNotConfigured      = errors.New("generation provider is not configured")
	ErrInvalidCredentials = errors.New("generation provider rejected the credentials")
	ErrQuotaExceeded      = errors.New("generation provider quota exceeded")
	ErrSafetyBlocked      = errors.New("generation was blocked by the provider's safety filter")
	ErrMalformedResponse  = errors.New("generation provider returned no usable content")
)

// Request carries one generation call. Text is the plain-text input;
// PDF, when set, is an inline document the provider should read.
type Request struct {
	Instruction string
	Text        string
	PDF         []byte
	PDFName     string
}

// Strategy produces text for a request. Ready is the pre-flight check:
// an unready strategy routes the pipeline to its placeholder path
// without ever being called.
type Strategy interface {
	Name() string
	Ready() bool
	Generate(ctx context.Context, req Request) (string, error)
}
