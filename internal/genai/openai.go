package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/impetus-notes/note-service/internal/obs"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// PlaceholderAPIKey is the value shipped in example configuration. A
// key equal to it means the operator never configured the provider.
const PlaceholderAPIKey = "YOUR_OPENAI_API_KEY"

// OpenAIConfig configures the external strategy. Zero values get
// sensible defaults from NewOpenAIStrategy.
type OpenAIConfig struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int64
	Timeout         time.Duration
}

// OpenAIStrategy generates content through the OpenAI chat completions
// API. PDFs are attached inline as base64 data URLs.
type OpenAIStrategy struct {
	client openai.Client
	cfg    OpenAIConfig
	log    *slog.Logger
}

// NewOpenAIStrategy creates the external strategy. The client is built
// even when the key is missing; Ready gates actual use.
func NewOpenAIStrategy(cfg OpenAIConfig) *OpenAIStrategy {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIStrategy{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
		log:    obs.Pkg("genai"),
	}
}

func (s *OpenAIStrategy) Name() string { return "openai" }

// Ready reports whether a real API key is configured.
func (s *OpenAIStrategy) Ready() bool {
	key := strings.TrimSpace(s.cfg.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

// Generate sends one chat completion request and returns the model's
// text. Provider failures are mapped to the package's typed errors.
func (s *OpenAIStrategy) Generate(ctx context.Context, req Request) (string, error) {
	if !s.Ready() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               s.cfg.Model,
		Messages:            []openai.ChatCompletionMessageParamUnion{s.buildMessage(req)},
		Temperature:         openai.Float(s.cfg.Temperature),
		MaxCompletionTokens: openai.Int(s.cfg.MaxOutputTokens),
	})
	if err != nil {
		return "", mapProviderError(err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrMalformedResponse
	}
	choice := completion.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", ErrSafetyBlocked
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", ErrMalformedResponse
	}

	s.log.InfoContext(ctx, "generation completed",
		"model", s.cfg.Model,
		"pdf_bytes", len(req.PDF),
		"output_chars", len(text),
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// buildMessage assembles the single user message. Text-only requests
// use a plain string; a PDF becomes an inline file part next to the
// instruction.
func (s *OpenAIStrategy) buildMessage(req Request) openai.ChatCompletionMessageParamUnion {
	if len(req.PDF) == 0 {
		prompt := req.Instruction
		if req.Text != "" {
			prompt += "\n\n" + req.Text
		}
		return openai.UserMessage(prompt)
	}

	name := req.PDFName
	if name == "" {
		name = "document.pdf"
	}
	dataURL := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(req.PDF)
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Instruction),
		openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String(dataURL),
			Filename: openai.String(name),
		}),
	}
	return openai.UserMessage(parts)
}

// mapProviderError translates transport and API failures into the
// package's typed errors so callers never see provider types.
func mapProviderError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apierr.Message)
		case 429:
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, apierr.Message)
		}
	}
	return err
}
