package notes

import (
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/impetus-notes/note-service/internal/blocks"
	"github.com/microcosm-cc/bluemonday"
)

var sanitizePolicy = bluemonday.UGCPolicy()

// RenderHTML converts a note's block content to sanitized HTML.
// Heading blocks become markdown headings at their level, everything
// else becomes a paragraph; the markdown is then rendered and run
// through the sanitizer.
func RenderHTML(n *Note) []byte {
	var md strings.Builder
	for _, b := range n.Content {
		text := blockMarkdown(b)
		if text == "" {
			continue
		}
		md.WriteString(text)
		md.WriteString("\n\n")
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md.String()))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	rendered := markdown.Render(doc, renderer)

	return sanitizePolicy.SanitizeBytes(rendered)
}

func blockMarkdown(b blocks.Block) string {
	var parts []string
	for _, run := range b.Content {
		if t := strings.TrimSpace(run.Text); t != "" {
			parts = append(parts, t)
		}
	}
	text := strings.Join(parts, " ")
	if text == "" {
		return ""
	}

	if b.Type == "heading" {
		level := 1
		switch b.Props["level"] {
		case "2":
			level = 2
		case "3":
			level = 3
		}
		return strings.Repeat("#", level) + " " + text
	}
	return text
}
