package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/impetus-notes/note-service/internal/blocks"
	"github.com/impetus-notes/note-service/internal/categories"
	"github.com/impetus-notes/note-service/internal/notes"
	"github.com/impetus-notes/note-service/internal/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler implements MCP tool call handling for one owner.
type Handler struct {
	ownerID    string
	notes      *notes.Store
	categories *categories.Store
	pipeline   *pipeline.Pipeline
}

func newHandler(ownerID string, notesStore *notes.Store, categoryStore *categories.Store, p *pipeline.Pipeline) *Handler {
	return &Handler{
		ownerID:    ownerID,
		notes:      notesStore,
		categories: categoryStore,
		pipeline:   p,
	}
}

// createToolHandler returns a tool handler function for the given tool name.
func (h *Handler) createToolHandler(name string) func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		result, err := h.HandleToolCall(ctx, name, args)
		return result, nil, err
	}
}

// HandleToolCall routes tool calls to the appropriate handlers.
func (h *Handler) HandleToolCall(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if h.ownerID == "" {
		return newToolResultError("X-User-ID header is required"), nil
	}

	switch name {
	case "note_list":
		return h.handleNoteList(ctx, args)
	case "note_view":
		return h.handleNoteView(ctx, args)
	case "note_create":
		return h.handleNoteCreate(ctx, args)
	case "note_summarize":
		return h.handleNoteSummarize(ctx, args)
	case "note_quiz":
		return h.handleNoteQuiz(ctx, args)
	default:
		return newToolResultError(fmt.Sprintf("unknown tool: %s", name)), nil
	}
}

// noteSummary is the note_list line item: everything but the block
// content.
type noteSummary struct {
	DocID      string   `json:"docId"`
	Title      string   `json:"title"`
	Preview    string   `json:"preview"`
	Category   *string  `json:"category"`
	Tags       []string `json:"tags"`
	IsArchived bool     `json:"isArchived"`
	IsStarred  bool     `json:"isStarred"`
}

func (h *Handler) handleNoteList(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	var filter notes.ListFilter
	if category, ok := args["category"].(string); ok && category != "" {
		filter.Category = &category
	}
	if tag, ok := args["tag"].(string); ok {
		filter.Tag = tag
	}

	found, err := h.notes.ListByOwner(ctx, h.ownerID, filter)
	if err != nil {
		return newToolResultError(fmt.Sprintf("failed to list notes: %v", err)), nil
	}

	summaries := make([]noteSummary, 0, len(found))
	for _, n := range found {
		summaries = append(summaries, noteSummary{
			DocID:      n.DocID,
			Title:      n.Title,
			Preview:    n.Preview,
			Category:   n.Category,
			Tags:       n.Tags,
			IsArchived: n.IsArchived,
			IsStarred:  n.IsStarred,
		})
	}
	return newToolResultText(marshalToolJSON(summaries)), nil
}

// noteViewResult is the note_view response: the stored note plus a
// flattened plain text rendition for the model to read.
type noteViewResult struct {
	*notes.Note
	PlainText string `json:"plainText"`
}

func (h *Handler) handleNoteView(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	docID, ok := args["doc_id"].(string)
	if !ok || docID == "" {
		return newToolResultError("doc_id must be a non-empty string"), nil
	}

	note, err := h.notes.GetByDocID(ctx, h.ownerID, docID)
	if err != nil {
		return newToolResultError(fmt.Sprintf("failed to read note: %v", err)), nil
	}

	return newToolResultText(marshalToolJSON(noteViewResult{
		Note:      note,
		PlainText: blocks.PlainText(note.Content),
	})), nil
}

func (h *Handler) handleNoteCreate(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	title, ok := args["title"].(string)
	if !ok || title == "" {
		return newToolResultError("title must be a non-empty string"), nil
	}

	content := ""
	if c, ok := args["content"].(string); ok {
		content = c
	}

	params := notes.CreateParams{
		DocID:   uuid.NewString(),
		OwnerID: h.ownerID,
		Title:   title,
		Content: blocks.FromPlainText(content, title),
		Preview: blocks.Preview(content),
	}

	if category, ok := args["category"].(string); ok && category != "" {
		if _, err := h.categories.EnsureExists(ctx, h.ownerID, category); err != nil {
			return newToolResultError(fmt.Sprintf("failed to provision category: %v", err)), nil
		}
		params.Category = &category
	}

	note, err := h.notes.Create(ctx, params)
	if err != nil {
		return newToolResultError(fmt.Sprintf("failed to create note: %v", err)), nil
	}
	return newToolResultText(marshalToolJSON(note)), nil
}

func (h *Handler) handleNoteSummarize(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	docID, ok := args["doc_id"].(string)
	if !ok || docID == "" {
		return newToolResultError("doc_id must be a non-empty string"), nil
	}

	note, err := h.pipeline.Summarize(ctx, h.ownerID, docID)
	if err != nil {
		return newToolResultError(fmt.Sprintf("failed to summarize note: %v", err)), nil
	}
	return newToolResultText(marshalToolJSON(note)), nil
}

func (h *Handler) handleNoteQuiz(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	docID, ok := args["doc_id"].(string)
	if !ok || docID == "" {
		return newToolResultError("doc_id must be a non-empty string"), nil
	}

	note, err := h.pipeline.Quiz(ctx, h.ownerID, docID)
	if err != nil {
		return newToolResultError(fmt.Sprintf("failed to generate quiz: %v", err)), nil
	}
	return newToolResultText(marshalToolJSON(note)), nil
}

// newToolResultText creates a successful tool result with text content.
func newToolResultText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// newToolResultError creates a tool result indicating an error.
func newToolResultError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

func marshalToolJSON(value any) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response","detail":%q}`, err.Error())
	}
	return string(data)
}
