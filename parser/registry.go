// Package parser turns fetched pages into ordered lists of artifacts
// with parent/child hierarchy. Parsers dispatch on the declared MIME
// type; malformed input degrades to partial output instead of failing
// a load.
package parser

import (
	"log/slog"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/c360studio/docforest/entity"
	"github.com/c360studio/docforest/metrics"
)

// Parser converts one fetched page into its artifacts.
type Parser interface {
	// Parse extracts artifacts from the page's content. The page's
	// content may be consumed or rewritten; pages are parsed at most
	// once.
	Parse(page *entity.Page) ([]entity.Artifact, error)

	// CanParse reports whether this parser handles the MIME type.
	CanParse(mimeType string) bool

	// MimeType returns the primary MIME type for this parser.
	MimeType() string
}

// Profile carries per-source parser configuration. Zero values select
// the documented defaults.
type Profile struct {
	// MaxLevel is the maximum markdown header depth to split on, and
	// the XML recursion cutoff below which subtrees collapse into one
	// markdown artifact. Default 3.
	MaxLevel int

	// XPathRoot selects the XML nodes to start walking from.
	// Default "/" (the document root element).
	XPathRoot string

	// Namespaces maps XPath prefixes to namespace URIs.
	Namespaces map[string]string

	// NodeNames is an allow-list of XML local tag names; nodes with
	// other names are pruned without recursing. Empty allows all.
	NodeNames []string

	// ElementTitle derives an artifact title from an XML node.
	// Default: the node's local tag name.
	ElementTitle func(n *xmlquery.Node, level int) string

	// TocPages are the logical page numbers holding a PDF's table of
	// contents. Default pages 2-4.
	TocPages []int

	// TocBasePage offsets logical ToC page numbers to physical pages.
	TocBasePage int

	// ContentBasePage offsets logical content page numbers to
	// physical pages.
	ContentBasePage int

	// PageText post-processes one physical page's extracted text,
	// e.g. to strip running headers and footers. Default: identity.
	PageText func(text string, pageNum int) string
}

const defaultMaxLevel = 3

func (p Profile) maxLevel() int {
	if p.MaxLevel <= 0 {
		return defaultMaxLevel
	}
	return p.MaxLevel
}

// Registry holds the parsers configured for one source.
type Registry struct {
	parsers []Parser
	logger  *slog.Logger
}

// NewRegistry creates a registry with the standard parsers built from
// the given profile.
func NewRegistry(profile Profile, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	markdown := NewMarkdownParser(profile)
	return &Registry{
		parsers: []Parser{
			NewHTMLParser(markdown, logger),
			markdown,
			NewPDFParser(profile, logger),
			NewXMLParser(profile, logger),
			NewTextParser(),
		},
		logger: logger,
	}
}

// ForMimeType returns the parser handling mimeType, or nil when no
// parser recognizes it.
func (r *Registry) ForMimeType(mimeType string) Parser {
	for _, p := range r.parsers {
		if p.CanParse(mimeType) {
			return p
		}
	}
	return nil
}

// ParsePage dispatches page to the matching parser. Unknown binary
// types yield no artifacts; structural parse failures yield one
// empty-text placeholder artifact. Both are logged, neither fails the
// load.
func (r *Registry) ParsePage(page *entity.Page) []entity.Artifact {
	mimeType := page.Type
	if page.Content != nil && page.Content.MimeType != "" {
		mimeType = page.Content.MimeType
	}

	p := r.ForMimeType(mimeType)
	if p == nil {
		r.logger.Warn("no parser for MIME type, skipping page",
			slog.String("mime_type", mimeType),
			slog.String("uri", page.URI))
		return nil
	}

	family := p.MimeType()
	metrics.PagesParsed.WithLabelValues(family).Inc()

	artifacts, err := p.Parse(page)
	if err != nil {
		metrics.ParseFailures.WithLabelValues(family).Inc()
		r.logger.Warn("parse failed, substituting placeholder artifact",
			slog.String("uri", page.URI),
			slog.String("mime_type", mimeType),
			slog.String("error", err.Error()))
		return []entity.Artifact{placeholderArtifact(page)}
	}

	metrics.ArtifactsProduced.Add(float64(len(artifacts)))
	return artifacts
}

// placeholderArtifact is the degraded result for a page whose content
// could not be parsed structurally.
func placeholderArtifact(page *entity.Page) entity.Artifact {
	return entity.Artifact{
		PageID:    page.ID,
		PageURI:   page.URI,
		PageDepth: page.Depth,
		PageType:  page.Type,
		ID:        entity.NewID(),
		Level:     1,
	}
}

// MimeTypeFromExtension returns the MIME type for a file extension.
func MimeTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	case ".xml":
		return "application/xml"
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return ""
	}
}
