// Package storage persists the flat Page and Artifact collections a
// load produces, one JSON Lines file pair per source name. Persisted
// pages carry no raw content or file path, and persisted artifacts no
// raw markup; the hierarchy survives through the id back-references.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/docforest/entity"
)

const (
	pagesSuffix     = ".pages.jsonl"
	artifactsSuffix = ".artifacts.jsonl"
)

// sourceNamePattern constrains source names to safe path components.
var sourceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Store reads and writes per-source page and artifact files under one
// directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// SavePages writes a source's pages, replacing any previous set.
func (s *Store) SavePages(source string, pages []entity.Page) error {
	if err := validateSourceName(source); err != nil {
		return err
	}
	return writeLines(filepath.Join(s.dir, source+pagesSuffix), pages)
}

// SaveArtifacts writes a source's artifacts, replacing any previous
// set.
func (s *Store) SaveArtifacts(source string, artifacts []entity.Artifact) error {
	if err := validateSourceName(source); err != nil {
		return err
	}
	return writeLines(filepath.Join(s.dir, source+artifactsSuffix), artifacts)
}

// LoadPages reads a source's persisted pages. Returns ErrNotFound when
// the source was never saved.
func (s *Store) LoadPages(source string) ([]entity.Page, error) {
	if err := validateSourceName(source); err != nil {
		return nil, err
	}
	return readLines[entity.Page](filepath.Join(s.dir, source+pagesSuffix))
}

// LoadArtifacts reads a source's persisted artifacts, sorted by
// (level, title, text) with exact duplicates on that key removed.
// Crawls routinely revisit boilerplate fragments; collapsing them here
// keeps downstream sampling from over-weighting repeats.
func (s *Store) LoadArtifacts(source string) ([]entity.Artifact, error) {
	if err := validateSourceName(source); err != nil {
		return nil, err
	}

	artifacts, err := readLines[entity.Artifact](filepath.Join(s.dir, source+artifactsSuffix))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Level != artifacts[j].Level {
			return artifacts[i].Level < artifacts[j].Level
		}
		if artifacts[i].Title != artifacts[j].Title {
			return artifacts[i].Title < artifacts[j].Title
		}
		return artifacts[i].Text < artifacts[j].Text
	})

	deduped := artifacts[:0]
	for i, a := range artifacts {
		if i > 0 {
			prev := artifacts[i-1]
			if a.Level == prev.Level && a.Title == prev.Title && a.Text == prev.Text {
				continue
			}
		}
		deduped = append(deduped, a)
	}
	return deduped, nil
}

// Sources lists the names of all sources with persisted pages.
func (s *Store) Sources() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), pagesSuffix); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// writeLines persists records one JSON object per line, writing to a
// temp file first so readers never see a partial file.
func writeLines[T any](path string, records []T) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docforest-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("encode record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func readLines[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var records []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("decode line in %s: %w", path, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func validateSourceName(source string) error {
	if !sourceNamePattern.MatchString(source) {
		return fmt.Errorf("invalid source name %q", source)
	}
	return nil
}
