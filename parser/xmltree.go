package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/c360studio/docforest/convert"
	"github.com/c360studio/docforest/entity"
)

// XMLParser walks an XML tree depth-first from XPath-selected roots.
// Nodes at or below the recursion cutoff become one artifact each,
// holding only their own direct text; once recursion passes the
// cutoff, the whole remaining subtree collapses into a single artifact
// of markdown-converted text, so deep structure is preserved as
// formatted prose instead of being discarded.
type XMLParser struct {
	maxLevel     int
	xpathRoot    string
	namespaces   map[string]string
	nodeNames    map[string]bool
	elementTitle func(n *xmlquery.Node, level int) string
	logger       *slog.Logger
}

// NewXMLParser creates an XML parser from a profile.
func NewXMLParser(profile Profile, logger *slog.Logger) *XMLParser {
	if logger == nil {
		logger = slog.Default()
	}

	allow := make(map[string]bool, len(profile.NodeNames))
	for _, name := range profile.NodeNames {
		allow[name] = true
	}

	titleFn := profile.ElementTitle
	if titleFn == nil {
		titleFn = func(n *xmlquery.Node, _ int) string { return n.Data }
	}

	root := profile.XPathRoot
	if root == "" {
		root = "/"
	}

	return &XMLParser{
		maxLevel:     profile.maxLevel(),
		xpathRoot:    root,
		namespaces:   profile.Namespaces,
		nodeNames:    allow,
		elementTitle: titleFn,
		logger:       logger,
	}
}

// Parse extracts artifacts from the page's XML content.
func (p *XMLParser) Parse(page *entity.Page) ([]entity.Artifact, error) {
	if page.Content == nil {
		return nil, fmt.Errorf("page %s has no content", page.ID)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(page.Content.Content))
	if err != nil {
		return nil, fmt.Errorf("parse XML page %s: %w", page.URI, err)
	}

	roots, err := p.selectRoots(doc)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("selected XML roots",
		slog.Int("count", len(roots)),
		slog.String("xpath", p.xpathRoot))

	var artifacts []entity.Artifact
	for _, root := range roots {
		p.walk(page, root, 1, "", &artifacts)
	}
	return artifacts, nil
}

// selectRoots resolves the configured XPath root expression. "/"
// selects the document's root element.
func (p *XMLParser) selectRoots(doc *xmlquery.Node) ([]*xmlquery.Node, error) {
	if p.xpathRoot == "/" {
		var roots []*xmlquery.Node
		for n := doc.FirstChild; n != nil; n = n.NextSibling {
			if n.Type == xmlquery.ElementNode {
				roots = append(roots, n)
			}
		}
		return roots, nil
	}

	expr, err := xpath.CompileWithNS(p.xpathRoot, p.namespaces)
	if err != nil {
		// A bad XPath is a source misconfiguration, not bad input.
		return nil, fmt.Errorf("compile xpath root %q: %w", p.xpathRoot, err)
	}
	return xmlquery.QuerySelectorAll(doc, expr), nil
}

func (p *XMLParser) walk(page *entity.Page, node *xmlquery.Node, level int, parentID string, artifacts *[]entity.Artifact) {
	if len(p.nodeNames) > 0 && !p.nodeNames[node.Data] {
		return
	}

	base := entity.Artifact{
		PageID:    page.ID,
		PageURI:   pageURI(page),
		PageDepth: page.Depth,
		PageType:  page.Type,
		ID:        entity.NewID(),
		Index:     len(*artifacts),
		Level:     level,
		ParentID:  parentID,
		Title:     p.elementTitle(node, level),
	}

	if level > p.maxLevel {
		// Collapse the whole subtree into one markdown artifact.
		var sb strings.Builder
		convert.NodeToMarkdown(&sb, node, 1)
		base.Text = strings.TrimSpace(sb.String())
		*artifacts = append(*artifacts, base)
		return
	}

	base.Text = directText(node)
	*artifacts = append(*artifacts, base)

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			p.walk(page, child, level+1, base.ID, artifacts)
		}
	}
}

// CanParse reports whether this parser handles the MIME type.
func (p *XMLParser) CanParse(mimeType string) bool {
	return strings.HasPrefix(mimeType, "application/xml") ||
		strings.HasPrefix(mimeType, "text/xml")
}

// MimeType returns the primary MIME type for this parser.
func (p *XMLParser) MimeType() string {
	return "application/xml"
}

// directText joins a node's own text children, excluding descendants.
func directText(n *xmlquery.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}
