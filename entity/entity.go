// Package entity defines the core data model for document ingestion:
// Pages (units of acquisition) and Artifacts (extracted text fragments),
// plus hierarchy traversal over their flat collections.
package entity

import "github.com/google/uuid"

// TypedContent is raw fetched bytes with a declared MIME type.
// It is ephemeral: produced by a fetcher, possibly rewritten by a
// loader's content transform, consumed by exactly one parser call.
type TypedContent struct {
	// MimeType is the declared MIME type (may carry parameters,
	// e.g. "text/html; charset=utf-8").
	MimeType string `json:"mime_type"`

	// Content is the raw body. Empty for the failed-fetch sentinel.
	Content []byte `json:"content"`

	// Title is the document title when the fetch strategy can see one
	// (browser fetches report the rendered page title).
	Title string `json:"title,omitempty"`
}

// IsEmpty reports whether this is the failed-fetch sentinel or an
// otherwise bodyless result. Callers check this instead of relying on
// errors so one bad URL never aborts a batch crawl.
func (c TypedContent) IsEmpty() bool {
	return len(c.Content) == 0
}

// Page is one unit of acquisition: a crawled URL or a scanned file.
type Page struct {
	// ID uniquely identifies the page within a load.
	ID string `json:"id"`

	// ParentID references the page this one was discovered from.
	// Empty exactly for roots (depth 1).
	ParentID string `json:"parent_id,omitempty"`

	// URI is the page URL, or the path relative to the scan root for
	// file pages.
	URI string `json:"uri"`

	// FilePath is the absolute filesystem path for file pages.
	// Excluded from the persisted form.
	FilePath string `json:"-"`

	// Depth is the crawl/scan depth, 1 for roots and strictly
	// increasing along parent edges.
	Depth int `json:"depth"`

	// Type is the MIME type declared by the fetch or inferred from
	// the filename. "inode/directory" for synthesized directory pages.
	Type string `json:"type"`

	// Content holds the fetched bytes until parsing. Excluded from
	// the persisted form.
	Content *TypedContent `json:"-"`
}

// Artifact is one extracted text fragment with its position in the
// owning page's structural hierarchy. Artifacts are immutable once a
// parser has produced them.
type Artifact struct {
	// PageID is the owning page's ID.
	PageID string `json:"page_id"`

	// PageURI is denormalized from the owning page for downstream
	// sampling convenience.
	PageURI string `json:"page_uri"`

	// PageDepth is the owning page's depth.
	PageDepth int `json:"page_depth"`

	// PageType is the owning page's MIME type.
	PageType string `json:"page_type"`

	// ID uniquely identifies the artifact.
	ID string `json:"id"`

	// ParentID references the enclosing artifact, empty for a page's
	// top-level fragments.
	ParentID string `json:"parent_id,omitempty"`

	// Index is the discovery order within the page; unique among
	// siblings sharing a parent.
	Index int `json:"index"`

	// Level is the normalized nesting level: the shallowest structure
	// found in a document is level 1, and level strictly increases
	// along parent chains.
	Level int `json:"level"`

	// Title is the heading, tag name, or ToC entry this fragment was
	// delimited by.
	Title string `json:"title"`

	// Markup is the raw source fragment. Excluded from the persisted
	// form.
	Markup string `json:"-"`

	// Text is the extracted plain or markdown text.
	Text string `json:"text"`
}

// NewID returns a fresh unique identifier for pages and artifacts.
func NewID() string {
	return uuid.NewString()
}
