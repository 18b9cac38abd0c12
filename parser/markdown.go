package parser

import (
	"fmt"
	"strings"

	"github.com/c360studio/docforest/entity"
)

// MarkdownParser splits markdown into one artifact per header section.
// Sections nest by header level, normalized so the shallowest header in
// a document is level 1. Header lines stay in the extracted text so
// headings remain visible downstream.
type MarkdownParser struct {
	maxLevel int
}

// NewMarkdownParser creates a markdown parser from a profile.
func NewMarkdownParser(profile Profile) *MarkdownParser {
	return &MarkdownParser{maxLevel: profile.maxLevel()}
}

// openHeader is a header whose section is still accumulating text.
type openHeader struct {
	id       string
	parentID string
	title    string
	level    int
}

// Parse runs a single pass over the lines, maintaining a stack of open
// headers. Each header at or above the cutoff closes the previous
// section and opens its own. A document with no headers yields exactly
// one artifact carrying the page's own id.
func (p *MarkdownParser) Parse(page *entity.Page) ([]entity.Artifact, error) {
	if page.Content == nil {
		return nil, fmt.Errorf("page %s has no content", page.ID)
	}

	lines := strings.Split(string(page.Content.Content), "\n")

	// Normalize header levels against the shallowest header present,
	// so "##"-rooted documents still start at level 1.
	minLevel := 0
	for _, line := range lines {
		if n := headerDepth(line); n > 0 && (minLevel == 0 || n < minLevel) {
			minLevel = n
		}
	}

	var (
		stack     []openHeader
		artifacts []entity.Artifact
		text      strings.Builder
	)

	closeSection := func() {
		if strings.TrimSpace(text.String()) == "" {
			return
		}
		a := entity.Artifact{
			PageID:    page.ID,
			PageURI:   pageURI(page),
			PageDepth: page.Depth,
			PageType:  page.Type,
			ID:        entity.NewID(),
			Index:     len(artifacts),
			Level:     1,
			Text:      strings.TrimSpace(text.String()),
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			a.ID = top.id
			a.ParentID = top.parentID
			a.Title = top.title
			a.Level = top.level
		} else if len(artifacts) == 0 {
			// Headerless document: bind the single artifact to the
			// page itself for a stable identity.
			a.ID = page.ID
		}
		artifacts = append(artifacts, a)
		text.Reset()
	}

	for _, line := range lines {
		depth := headerDepth(line)
		level := depth - minLevel + 1

		if depth > 0 && level <= p.maxLevel {
			closeSection()

			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}

			entry := openHeader{
				id:    entity.NewID(),
				title: strings.TrimSpace(strings.TrimLeft(line, "# ")),
				level: 1,
			}
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				entry.level = top.level + 1
				entry.parentID = top.id
			}
			stack = append(stack, entry)
		}

		text.WriteString(line)
		text.WriteString("\n")
	}

	closeSection()

	return artifacts, nil
}

// CanParse reports whether this parser handles the MIME type.
func (p *MarkdownParser) CanParse(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/markdown") ||
		strings.HasPrefix(mimeType, "text/x-markdown")
}

// MimeType returns the primary MIME type for this parser.
func (p *MarkdownParser) MimeType() string {
	return "text/markdown"
}

// headerDepth returns the number of leading '#' characters, 0 for
// non-header lines.
func headerDepth(line string) int {
	return len(line) - len(strings.TrimLeft(line, "#"))
}

func pageURI(page *entity.Page) string {
	if page.URI != "" {
		return page.URI
	}
	return page.FilePath
}
