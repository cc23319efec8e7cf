// Package mcp exposes the note service to model clients over the MCP
// Streamable HTTP transport. Identity comes from the same X-User-ID
// header as the REST API; a server is constructed per request with the
// owner bound into every tool handler.
package mcp

import (
	"net/http"

	"github.com/impetus-notes/note-service/internal/categories"
	"github.com/impetus-notes/note-service/internal/notes"
	"github.com/impetus-notes/note-service/internal/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// OwnerHeader carries the authenticated user id, set upstream.
const OwnerHeader = "X-User-ID"

// Server wraps the MCP Streamable HTTP handler over the domain stores.
type Server struct {
	notes       *notes.Store
	categories  *categories.Store
	pipeline    *pipeline.Pipeline
	httpHandler http.Handler
}

// NewServer creates an MCP server over the domain stores.
func NewServer(notesStore *notes.Store, categoryStore *categories.Store, p *pipeline.Pipeline) *Server {
	s := &Server{
		notes:      notesStore,
		categories: categoryStore,
		pipeline:   p,
	}

	// Streamable HTTP transport: a single endpoint handling both POST
	// and GET. Stateless because each request carries its own identity
	// header; no session survives across requests.
	s.httpHandler = mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server {
			return s.serverFor(r.Header.Get(OwnerHeader))
		},
		&mcp.StreamableHTTPOptions{
			JSONResponse: true,
			Stateless:    true,
		},
	)

	return s
}

// serverFor builds an MCP server whose tool handlers are bound to the
// given owner.
func (s *Server) serverFor(ownerID string) *mcp.Server {
	handler := newHandler(ownerID, s.notes, s.categories, s.pipeline)

	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "note-service",
			Version: "1.0.0",
		},
		nil,
	)

	for _, tool := range ToolDefinitions() {
		toolCopy := tool // avoid closure issues
		mcp.AddTool(srv, toolCopy, handler.createToolHandler(toolCopy.Name))
	}

	return srv
}

// ServeHTTP implements http.Handler for the Streamable HTTP transport.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id, Last-Event-ID, X-User-ID")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.httpHandler.ServeHTTP(w, r)
}
