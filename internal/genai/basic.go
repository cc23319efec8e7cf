package genai

import (
	"context"
	"strings"
)

// insufficientContent is returned when the reduced text is too short
// to be a useful summary.
const insufficientContent = "Unable to generate summary due to insufficient content."

// BasicStrategy is the local fallback: it keeps the first couple of
// sentences of each paragraph. No network, always ready.
type BasicStrategy struct{}

// NewBasicStrategy creates the fallback strategy.
func NewBasicStrategy() *BasicStrategy {
	return &BasicStrategy{}
}

func (s *BasicStrategy) Name() string { return "basic" }

func (s *BasicStrategy) Ready() bool { return true }

// Generate reduces each paragraph to its first two sentences. Inline
// PDFs cannot be read locally, so a PDF-only request degrades to the
// insufficient-content message.
func (s *BasicStrategy) Generate(_ context.Context, req Request) (string, error) {
	var summary strings.Builder
	for _, paragraph := range strings.Split(req.Text, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			continue
		}
		sentences := splitSentences(paragraph)
		take := min(2, len(sentences))
		summary.WriteString(strings.Join(sentences[:take], " "))
		summary.WriteString("\n\n")
	}

	if summary.Len() <= 10 {
		return insufficientContent, nil
	}
	return summary.String(), nil
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' || text[i+1] == '\t' {
				sentences = append(sentences, strings.TrimSpace(text[start:i+1]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
