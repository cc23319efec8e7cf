// Package blocks implements the block-tree content codec. Note content
// is stored as an ordered sequence of block nodes; decoding extracts
// plain text lazily and never fails on malformed nodes, encoding wraps
// plain text back into paragraph blocks under a heading.
package blocks

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
)

// NoPreview is the sentinel preview for notes without derivable text.
const NoPreview = "No preview available."

// previewRunes is the preview length cutoff in runes.
const previewRunes = 150

// InlineText is a single styled text run inside a block.
type InlineText struct {
	Type   string            `json:"type"`
	Text   string            `json:"text"`
	Styles map[string]string `json:"styles"`
}

// Block is one node of the content tree.
type Block struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Props    map[string]string `json:"props,omitempty"`
	Content  []InlineText      `json:"content"`
	Children []Block           `json:"children"`
}

// UnmarshalJSON tolerates malformed nodes: unexpected shapes degrade to
// empty fields instead of failing the whole document.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Type     string          `json:"type"`
		Props    map[string]any  `json:"props"`
		Content  json.RawMessage `json:"content"`
		Children json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*b = Block{}
		return nil
	}

	b.ID = raw.ID
	b.Type = raw.Type
	b.Props = stringifyProps(raw.Props)

	b.Content = nil
	if len(raw.Content) > 0 {
		var content []InlineText
		if err := json.Unmarshal(raw.Content, &content); err == nil {
			b.Content = content
		}
	}

	b.Children = nil
	if len(raw.Children) > 0 {
		var children []Block
		if err := json.Unmarshal(raw.Children, &children); err == nil {
			b.Children = children
		}
	}
	return nil
}

// UnmarshalJSON tolerates runs whose text is not a string.
func (t *InlineText) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   string          `json:"type"`
		Text   json.RawMessage `json:"text"`
		Styles map[string]any  `json:"styles"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = InlineText{}
		return nil
	}

	t.Type = raw.Type
	t.Text = ""
	if len(raw.Text) > 0 {
		var text string
		if err := json.Unmarshal(raw.Text, &text); err == nil {
			t.Text = text
		}
	}
	t.Styles = stringifyProps(raw.Styles)
	return nil
}

func stringifyProps(raw map[string]any) map[string]string {
	if raw == nil {
		return nil
	}
	props := make(map[string]string, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case string:
			props[k] = x
		case float64:
			props[k] = fmt.Sprintf("%g", x)
		case bool:
			props[k] = fmt.Sprintf("%t", x)
		default:
			// Nested structures are dropped rather than stringified.
		}
	}
	return props
}

// Decode parses a stored content document. Malformed JSON yields an
// empty block list, never an error.
func Decode(raw []byte) []Block {
	if len(raw) == 0 {
		return nil
	}
	var blks []Block
	if err := json.Unmarshal(raw, &blks); err != nil {
		return nil
	}
	return blks
}

// Encode serializes blocks to their JSON wire form.
func Encode(blks []Block) ([]byte, error) {
	if blks == nil {
		blks = []Block{}
	}
	return json.Marshal(blks)
}

// PlainTextLines returns a lazy, restartable sequence of plain-text
// lines: one line per top-level block that carries text. Text runs
// within a block are joined with single spaces; child blocks are not
// descended into, matching how the editor stores nested content.
func PlainTextLines(blks []Block) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, b := range blks {
			line := blockText(b)
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

func blockText(b Block) string {
	if len(b.Content) == 0 {
		return ""
	}
	parts := make([]string, 0, len(b.Content))
	for _, run := range b.Content {
		if t := strings.TrimSpace(run.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// PlainText joins all text lines with newlines.
func PlainText(blks []Block) string {
	var sb strings.Builder
	first := true
	for line := range PlainTextLines(blks) {
		if !first {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		first = false
	}
	return sb.String()
}

// FromPlainText wraps plain text into a block document: a level-1
// heading followed by one paragraph block per non-blank line, with
// synthetic sequential ids. The round-trip through PlainText is lossy
// for formatting; only the text survives.
func FromPlainText(text, heading string) []Block {
	defaultProps := func() map[string]string {
		return map[string]string{
			"textColor":       "default",
			"backgroundColor": "default",
			"textAlignment":   "left",
		}
	}

	headingProps := defaultProps()
	headingProps["level"] = "1"
	doc := []Block{{
		ID:       "heading-1",
		Type:     "heading",
		Props:    headingProps,
		Content:  []InlineText{{Type: "text", Text: heading, Styles: map[string]string{}}},
		Children: []Block{},
	}}

	n := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n++
		doc = append(doc, Block{
			ID:       fmt.Sprintf("paragraph-%d", n),
			Type:     "paragraph",
			Props:    defaultProps(),
			Content:  []InlineText{{Type: "text", Text: line, Styles: map[string]string{}}},
			Children: []Block{},
		})
	}
	return doc
}

// Preview derives the short preview text: the first 150 runes, with an
// ellipsis marker when truncated. Empty text yields the sentinel.
func Preview(text string) string {
	if strings.TrimSpace(text) == "" {
		return NoPreview
	}
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
