package loader

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/docforest/entity"
	"github.com/c360studio/docforest/parser"
)

// dirMimeType marks synthesized directory pages.
const dirMimeType = "inode/directory"

// FileConfig holds filesystem scan configuration.
type FileConfig struct {
	// Root is the directory the scan is anchored at. Required.
	Root string

	// Pattern is a glob matched against paths relative to Root.
	// "**" crosses directory boundaries, so "**/*.md" scans
	// recursively. Required.
	Pattern string
}

// Validate checks the configuration for errors.
func (c FileConfig) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("scan root is required")
	}
	if c.Pattern == "" {
		return fmt.Errorf("glob pattern is required")
	}
	if !doublestar.ValidatePattern(c.Pattern) {
		return fmt.Errorf("invalid glob pattern %q", c.Pattern)
	}
	return nil
}

// FileLoader scans a directory tree for matching files and parses each
// one. Ancestor directories of matched files become content-less pages
// of their own, created exactly once no matter how many files share
// them, so downstream consumers can reconstruct where in the tree a
// file sat.
type FileLoader struct {
	config   FileConfig
	registry *parser.Registry
	hooks    Hooks
	logger   *slog.Logger
}

// NewFileLoader creates a file loader. An invalid root or pattern fails
// here, before any scanning starts.
func NewFileLoader(cfg FileConfig, registry *parser.Registry, hooks Hooks, logger *slog.Logger) (*FileLoader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid file loader config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileLoader{
		config:   cfg,
		registry: registry,
		hooks:    hooks,
		logger:   logger,
	}, nil
}

// Root returns the scan root directory.
func (l *FileLoader) Root() string { return l.config.Root }

// Pattern returns the glob pattern.
func (l *FileLoader) Pattern() string { return l.config.Pattern }

// Load scans the root for files matching the pattern and parses each
// readable, recognized file. Unreadable files and unknown MIME types
// are logged and skipped without failing the load.
func (l *FileLoader) Load(ctx context.Context) ([]entity.Page, []entity.Artifact, error) {
	matches, err := doublestar.Glob(os.DirFS(l.config.Root), l.config.Pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %q under %s: %w", l.config.Pattern, l.config.Root, err)
	}
	sort.Strings(matches)

	var (
		pages     []entity.Page
		artifacts []entity.Artifact
	)
	dirs := make(map[string]*entity.Page)

	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		artifacts = append(artifacts, l.loadFile(rel, dirs, &pages)...)
	}

	l.logger.Info("scan complete",
		slog.String("root", l.config.Root),
		slog.Int("matched", len(matches)),
		slog.Int("pages", len(pages)),
		slog.Int("artifacts", len(artifacts)))
	return pages, artifacts, nil
}

// loadFile turns one matched file into a page plus its artifacts,
// synthesizing any ancestor directory pages not seen before.
func (l *FileLoader) loadFile(rel string, dirs map[string]*entity.Page, pages *[]entity.Page) []entity.Artifact {
	mimeType := parser.MimeTypeFromExtension(path.Ext(rel))
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(rel))
	}
	if mimeType == "" {
		l.logger.Warn("no MIME type for file, skipping",
			slog.String("path", rel))
		return nil
	}

	abs := filepath.Join(l.config.Root, filepath.FromSlash(rel))
	data, err := os.ReadFile(abs)
	if err != nil {
		l.logger.Warn("read failed, skipping",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return nil
	}

	page := &entity.Page{
		ID:       entity.NewID(),
		URI:      rel,
		FilePath: abs,
		Depth:    pathDepth(rel),
		Type:     baseMimeType(mimeType),
		Content:  &entity.TypedContent{MimeType: mimeType, Content: data},
	}
	if parent := l.ensureDir(path.Dir(rel), dirs, pages); parent != nil {
		page.ParentID = parent.ID
	}

	var artifacts []entity.Artifact
	l.hooks.transformContent(page.Content, page.Depth)
	if l.hooks.filterItem(page, page.Depth) {
		artifacts = l.registry.ParsePage(page)
	}
	*pages = append(*pages, *page)
	return artifacts
}

// ensureDir returns the page for the directory at rel, creating it and
// its ancestors outward from the root on first encounter. rel "." means
// the scan root itself, which is not a page.
func (l *FileLoader) ensureDir(rel string, dirs map[string]*entity.Page, pages *[]entity.Page) *entity.Page {
	if rel == "." || rel == "" || rel == "/" {
		return nil
	}
	if page, ok := dirs[rel]; ok {
		return page
	}

	parent := l.ensureDir(path.Dir(rel), dirs, pages)
	page := &entity.Page{
		ID:       entity.NewID(),
		URI:      rel,
		FilePath: filepath.Join(l.config.Root, filepath.FromSlash(rel)),
		Depth:    pathDepth(rel),
		Type:     dirMimeType,
	}
	if parent != nil {
		page.ParentID = parent.ID
	}

	dirs[rel] = page
	*pages = append(*pages, *page)
	return page
}

// pathDepth is the 1-based number of path elements in a slash-separated
// relative path, so "a/b/file.md" sits at depth 3 under directories at
// depths 1 and 2.
func pathDepth(rel string) int {
	return strings.Count(rel, "/") + 1
}
