package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/docforest/convert"
	"github.com/c360studio/docforest/entity"
)

// HTMLParser routes HTML through markdown conversion and then the
// markdown parser, so HTML pages get the same header hierarchy as
// native markdown.
type HTMLParser struct {
	markdown *MarkdownParser
	logger   *slog.Logger
}

// NewHTMLParser creates an HTML parser delegating to markdown.
func NewHTMLParser(markdown *MarkdownParser, logger *slog.Logger) *HTMLParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLParser{markdown: markdown, logger: logger}
}

// Parse converts the page content to markdown in place and delegates.
func (p *HTMLParser) Parse(page *entity.Page) ([]entity.Artifact, error) {
	if page.Content == nil {
		return nil, fmt.Errorf("page %s has no content", page.ID)
	}

	markdown, err := convert.HTMLToMarkdown(string(page.Content.Content))
	if err != nil {
		return nil, fmt.Errorf("convert page %s: %w", page.URI, err)
	}

	page.Content.Content = []byte(markdown)
	page.Content.MimeType = strings.Replace(page.Content.MimeType, "text/html", "text/markdown", 1)

	return p.markdown.Parse(page)
}

// CanParse reports whether this parser handles the MIME type.
func (p *HTMLParser) CanParse(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/html")
}

// MimeType returns the primary MIME type for this parser.
func (p *HTMLParser) MimeType() string {
	return "text/html"
}
