package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

// ToolDefinitions returns the MCP tool definitions.
func ToolDefinitions() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        "note_list",
			Description: "List the user's notes with title, preview, category, and tags, ordered by most recently updated. Optionally filter by category name or tag. Use note_view to read a complete note.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{
						"type":        "string",
						"description": "Only return notes filed under this exact category name",
					},
					"tag": map[string]any{
						"type":        "string",
						"description": "Only return notes carrying this tag",
					},
				},
			},
		},
		{
			Name:        "note_view",
			Description: "Read a note's full content by its document id. The response includes the structured block content and a flattened plain_text rendition.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"doc_id": map[string]any{
						"type":        "string",
						"description": "The document id of the note to read",
					},
				},
				"required": []string{"doc_id"},
			},
		},
		{
			Name:        "note_create",
			Description: "Create a new note from a title and plain text content. Each non-blank line of content becomes a paragraph. An optional category is created on demand if the user does not have it yet.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "The title of the note (required)",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "The plain text content of the note",
					},
					"category": map[string]any{
						"type":        "string",
						"description": "Category to file the note under (created if missing)",
					},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "note_summarize",
			Description: "Generate a summary of an existing note. The summary is saved as a new note under the 'Generated Summary' category and returned.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"doc_id": map[string]any{
						"type":        "string",
						"description": "The document id of the note to summarize",
					},
				},
				"required": []string{"doc_id"},
			},
		},
		{
			Name:        "note_quiz",
			Description: "Generate quiz questions over an existing note. The questions are saved as a new note under the 'Generated Quiz' category and returned.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"doc_id": map[string]any{
						"type":        "string",
						"description": "The document id of the note to generate questions from",
					},
				},
				"required": []string{"doc_id"},
			},
		},
	}
}
