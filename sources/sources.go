// Package sources registers the concrete document sources docforest
// knows how to ingest. Each source binds a loader strategy to its
// navigation filters, content transforms, and parser profile, so one
// traversal engine serves catalogs with very different layouts.
package sources

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"

	"github.com/PuerkitoBio/goquery"

	"github.com/c360studio/docforest/fetch"
	"github.com/c360studio/docforest/loader"
)

// Deps carries the shared collaborators a source's loader needs.
type Deps struct {
	// HTTP is the plain HTTP fetcher.
	HTTP fetch.Fetcher

	// Browser is the headless-browser fetcher for JavaScript-rendered
	// sites. May be nil when no browser is available.
	Browser fetch.Fetcher

	// DataDir is the root directory for file-backed sources.
	DataDir string

	// Logger receives source and loader diagnostics.
	Logger *slog.Logger
}

// Source is one registered ingestion source.
type Source struct {
	// Name identifies the source; it doubles as the storage key.
	Name string

	// Description is a one-line summary for listings.
	Description string

	// New builds the source's loader from the shared dependencies.
	New func(deps Deps) (loader.Loader, error)
}

// Registry holds the known sources by name.
type Registry struct {
	sources map[string]Source
}

// NewRegistry creates a registry pre-populated with the built-in
// sources.
func NewRegistry() *Registry {
	r := &Registry{sources: make(map[string]Source)}
	for _, src := range builtins() {
		// Built-in names are unique by construction.
		_ = r.Register(src)
	}
	return r
}

// Register adds a source. Registering a name twice is an error.
func (r *Registry) Register(src Source) error {
	if src.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if _, exists := r.sources[src.Name]; exists {
		return fmt.Errorf("source %q already registered", src.Name)
	}
	r.sources[src.Name] = src
	return nil
}

// Get returns the source registered under name.
func (r *Registry) Get(name string) (Source, bool) {
	src, ok := r.sources[name]
	return src, ok
}

// All returns every registered source sorted by name.
func (r *Registry) All() []Source {
	all := make([]Source, 0, len(r.sources))
	for _, src := range r.sources {
		all = append(all, src)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

func builtins() []Source {
	return []Source{
		attckSource(),
		d3fendSource(),
		mozillaSecuritySource(),
		cs161TextbookSource(),
		lawSource(),
		cweSource(),
		windowsSecuritySource(),
		notesSource(),
	}
}

// containerHTML extracts the outer HTML of the first node matching a
// CSS selector, the common shape of per-site article extraction.
func containerHTML(content []byte, selector string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", false
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	outer, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", false
	}
	return outer, true
}
