package parser

import (
	"fmt"
	"strings"

	"github.com/c360studio/docforest/entity"
)

// TextParser emits a single artifact holding the whole decoded
// content. It is the fallback for recognized-but-unstructured textual
// MIME types.
type TextParser struct{}

// NewTextParser creates a plain text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse wraps the content in one hierarchy-less artifact.
func (p *TextParser) Parse(page *entity.Page) ([]entity.Artifact, error) {
	if page.Content == nil {
		return nil, fmt.Errorf("page %s has no content", page.ID)
	}

	return []entity.Artifact{{
		PageID:    page.ID,
		PageURI:   pageURI(page),
		PageDepth: page.Depth,
		PageType:  page.Type,
		ID:        entity.NewID(),
		Index:     0,
		Level:     1,
		Text:      string(page.Content.Content),
	}}, nil
}

// CanParse accepts any MIME type mentioning text. More specific
// parsers are consulted first by the registry.
func (p *TextParser) CanParse(mimeType string) bool {
	return strings.Contains(mimeType, "text")
}

// MimeType returns the primary MIME type for this parser.
func (p *TextParser) MimeType() string {
	return "text/plain"
}
