// Package loader drives acquisition and parsing across a whole source.
// Two strategies share one interface: a depth-bounded breadth-first web
// crawler and a recursive filesystem scanner. Per-source behavior is
// customized entirely through three hooks, so many sources with very
// different navigation and cleanup rules share the same traversal
// engines.
package loader

import (
	"context"
	"strings"

	"github.com/c360studio/docforest/entity"
)

// Loader acquires and parses one whole source. The returned collections
// are flat; hierarchy is reconstructed from parent ids via the entity
// traversal helpers.
type Loader interface {
	Load(ctx context.Context) ([]entity.Page, []entity.Artifact, error)
}

// Hooks customize a loader per source. Nil fields default to permissive
// no-ops, so the zero Hooks accepts everything unchanged.
type Hooks struct {
	// FilterURL decides whether a link discovered on parentURL becomes
	// a page one level deeper. depth is the depth of the page the link
	// was found on. Web loading only.
	FilterURL func(url, parentURL string, depth int) bool

	// FilterItem decides whether a page's content is parsed into
	// artifacts. Rejected pages stay in the result without artifacts.
	FilterItem func(page *entity.Page, depth int) bool

	// TransformContent rewrites fetched content in place before
	// parsing, e.g. to extract a container element or truncate
	// boilerplate.
	TransformContent func(content *entity.TypedContent, depth int)
}

func (h Hooks) filterURL(url, parentURL string, depth int) bool {
	if h.FilterURL == nil {
		return true
	}
	return h.FilterURL(url, parentURL, depth)
}

func (h Hooks) filterItem(page *entity.Page, depth int) bool {
	if h.FilterItem == nil {
		return true
	}
	return h.FilterItem(page, depth)
}

func (h Hooks) transformContent(content *entity.TypedContent, depth int) {
	if h.TransformContent != nil {
		h.TransformContent(content, depth)
	}
}

// baseMimeType strips parameters from a MIME type string, e.g.
// "text/html; charset=utf-8" becomes "text/html".
func baseMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base)
}
