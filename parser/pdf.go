package parser

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/c360studio/docforest/entity"
	"github.com/c360studio/docforest/metrics"
)

// tocLineRe matches one table-of-contents line: a title, a run of dot
// leaders or whitespace, and a page number at end of line.
var tocLineRe = regexp.MustCompile(`(?m)^(.+?)[\s.]{2,}(\d+)\s*$`)

// PDFParser extracts one artifact per table-of-contents entry. The
// document is first reduced to per-page plain text; the configured ToC
// pages are scanned for "title ... pagenumber" lines, and each entry's
// page range runs from its own page number up to (but not including)
// the next entry's. Two consecutive entries sharing a page number form
// a top-level/sub-level pair.
type PDFParser struct {
	tocPages    []int
	tocBase     int
	contentBase int
	pageText    func(text string, pageNum int) string
	logger      *slog.Logger
}

// NewPDFParser creates a PDF parser from a profile.
func NewPDFParser(profile Profile, logger *slog.Logger) *PDFParser {
	if logger == nil {
		logger = slog.Default()
	}

	tocPages := profile.TocPages
	if len(tocPages) == 0 {
		tocPages = []int{2, 3, 4}
	}

	pageText := profile.PageText
	if pageText == nil {
		pageText = func(text string, _ int) string { return strings.TrimSpace(text) }
	}

	return &PDFParser{
		tocPages:    tocPages,
		tocBase:     profile.TocBasePage,
		contentBase: profile.ContentBasePage,
		pageText:    pageText,
		logger:      logger,
	}
}

// tocEntry is one parsed table-of-contents item with its resolved
// logical page range.
type tocEntry struct {
	id       string
	parentID string
	title    string
	level    int
	pages    []int
}

// Parse extracts artifacts from the page's PDF content.
func (p *PDFParser) Parse(page *entity.Page) ([]entity.Artifact, error) {
	if page.Content == nil || len(page.Content.Content) == 0 {
		return nil, fmt.Errorf("page %s has no content", page.ID)
	}

	pageTexts, err := extractPageTexts(page.Content.Content)
	if err != nil {
		return nil, fmt.Errorf("extract PDF text from %s: %w", pageURI(page), err)
	}
	numPages := len(pageTexts) - 1 // index 0 unused, pages are 1-based

	var tocText strings.Builder
	for _, n := range p.tocPages {
		physical := p.tocBase + n
		if physical >= 1 && physical <= numPages {
			tocText.WriteString(pageTexts[physical])
			tocText.WriteString("\n")
		}
	}

	entries := p.parseTableOfContents(tocText.String(), numPages)
	if len(entries) == 0 {
		// The ToC heuristic found nothing. Fall back to one artifact
		// holding the whole document rather than silently losing it.
		metrics.ParseFailures.WithLabelValues(p.MimeType()).Inc()
		p.logger.Warn("no table-of-contents entries matched, emitting whole-document artifact",
			slog.String("uri", pageURI(page)))
		return []entity.Artifact{p.wholeDocumentArtifact(page, pageTexts)}, nil
	}

	artifacts := make([]entity.Artifact, 0, len(entries))
	for i, entry := range entries {
		var raw, text []string
		for _, logical := range entry.pages {
			physical := p.contentBase + logical
			if physical < 1 || physical > numPages {
				continue
			}
			raw = append(raw, pageTexts[physical])
			text = append(text, p.pageText(pageTexts[physical], physical))
		}

		artifacts = append(artifacts, entity.Artifact{
			PageID:    page.ID,
			PageURI:   pageURI(page),
			PageDepth: page.Depth,
			PageType:  page.Type,
			ID:        entry.id,
			ParentID:  entry.parentID,
			Index:     i,
			Level:     entry.level,
			Title:     entry.title,
			Markup:    strings.Join(raw, "\n\n"),
			Text:      strings.Join(text, "\n\n"),
		})
	}
	return artifacts, nil
}

// parseTableOfContents turns matched ToC lines into entries with page
// ranges. A sentinel entry at numPages-contentBase closes the last
// range.
func (p *PDFParser) parseTableOfContents(tocText string, numPages int) []tocEntry {
	matches := tocLineRe.FindAllStringSubmatch(tocText, -1)

	type rawEntry struct {
		title string
		page  int
	}
	raw := make([]rawEntry, 0, len(matches)+1)
	for _, m := range matches {
		pageNum := atoiSafe(m[2])
		if pageNum <= 0 {
			continue
		}
		raw = append(raw, rawEntry{title: strings.TrimSpace(m[1]), page: pageNum})
	}
	raw = append(raw, rawEntry{page: numPages - p.contentBase + 1})

	var entries []tocEntry
	currentTopID := ""
	for i := 0; i < len(raw)-1; i++ {
		cur, next := raw[i], raw[i+1]

		if next.page == cur.page {
			// Top-level/sub-level pair: this entry owns all pages up
			// to the next distinct page number.
			end := cur.page + 1
			for j := i + 1; j < len(raw); j++ {
				if raw[j].page != cur.page {
					end = raw[j].page
					break
				}
			}
			top := tocEntry{
				id:    entity.NewID(),
				title: cur.title,
				level: 1,
				pages: pageRange(cur.page, end),
			}
			entries = append(entries, top)
			currentTopID = top.id
			continue
		}

		entries = append(entries, tocEntry{
			id:       entity.NewID(),
			parentID: currentTopID,
			title:    cur.title,
			level:    2,
			pages:    pageRange(cur.page, next.page),
		})
	}
	return entries
}

// wholeDocumentArtifact is the fallback when no ToC entry matched.
func (p *PDFParser) wholeDocumentArtifact(page *entity.Page, pageTexts []string) entity.Artifact {
	parts := make([]string, 0, len(pageTexts))
	for i := 1; i < len(pageTexts); i++ {
		if t := p.pageText(pageTexts[i], i); t != "" {
			parts = append(parts, t)
		}
	}
	return entity.Artifact{
		PageID:    page.ID,
		PageURI:   pageURI(page),
		PageDepth: page.Depth,
		PageType:  page.Type,
		ID:        entity.NewID(),
		Level:     1,
		Text:      strings.Join(parts, "\n\n"),
	}
}

// CanParse reports whether this parser handles the MIME type.
func (p *PDFParser) CanParse(mimeType string) bool {
	return strings.HasPrefix(mimeType, "application/pdf")
}

// MimeType returns the primary MIME type for this parser.
func (p *PDFParser) MimeType() string {
	return "application/pdf"
}

// extractPageTexts reduces a PDF to per-page plain text, 1-based.
// Pages that fail to render are left empty rather than failing the
// document.
func extractPageTexts(content []byte) ([]string, error) {
	reader, err := pdf.NewReader(newBytesReaderAt(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	texts := make([]string, numPages+1)
	for i := 1; i <= numPages; i++ {
		pg := reader.Page(i)
		if pg.V.IsNull() {
			continue
		}
		text, err := pg.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[i] = text
	}
	return texts, nil
}

// pageRange returns [from, to) as a slice, degrading to a single page
// when the range is empty or inverted.
func pageRange(from, to int) []int {
	if to <= from {
		return []int{from}
	}
	pages := make([]int, 0, to-from)
	for n := from; n < to; n++ {
		pages = append(pages, n)
	}
	return pages
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0
		}
	}
	return n
}

// bytesReaderAt adapts a byte slice to io.ReaderAt for the PDF reader.
type bytesReaderAt struct {
	data []byte
}

func newBytesReaderAt(data []byte) *bytesReaderAt {
	return &bytesReaderAt{data: data}
}

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n = copy(p, r.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}
