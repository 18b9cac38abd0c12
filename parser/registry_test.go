package parser

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/docforest/entity"
)

func testRegistry() *Registry {
	return NewRegistry(Profile{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegistry_ForMimeType(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		mimeType string
		want     string
	}{
		{"text/html; charset=utf-8", "text/html"},
		{"text/markdown", "text/markdown"},
		{"application/pdf", "application/pdf"},
		{"application/xml", "application/xml"},
		{"text/xml", "application/xml"},
		{"text/plain", "text/plain"},
		{"text/csv", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			p := r.ForMimeType(tt.mimeType)
			require.NotNil(t, p)
			assert.Equal(t, tt.want, p.MimeType())
		})
	}

	assert.Nil(t, r.ForMimeType("application/octet-stream"))
	assert.Nil(t, r.ForMimeType("image/png"))
}

func TestRegistry_ParsePage_HTMLThroughMarkdown(t *testing.T) {
	r := testRegistry()
	page := &entity.Page{
		ID:    entity.NewID(),
		URI:   "https://docs.example.com/page",
		Depth: 1,
		Type:  "text/html",
		Content: &entity.TypedContent{
			MimeType: "text/html; charset=utf-8",
			Content:  []byte("<h1>Guide</h1><p>intro</p><h2>Setup</h2><p>steps</p>"),
		},
	}

	artifacts := r.ParsePage(page)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "Guide", artifacts[0].Title)
	assert.Equal(t, "Setup", artifacts[1].Title)
	assert.Equal(t, artifacts[0].ID, artifacts[1].ParentID)

	// The content was rewritten to markdown in place.
	assert.Contains(t, page.Content.MimeType, "text/markdown")
}

func TestRegistry_ParsePage_UnknownBinarySkipped(t *testing.T) {
	r := testRegistry()
	page := &entity.Page{
		ID:      entity.NewID(),
		URI:     "blob.bin",
		Type:    "application/octet-stream",
		Content: &entity.TypedContent{MimeType: "application/octet-stream", Content: []byte{0x00, 0x01}},
	}

	assert.Empty(t, r.ParsePage(page))
}

func TestRegistry_ParsePage_FailureYieldsPlaceholder(t *testing.T) {
	r := testRegistry()
	page := &entity.Page{
		ID:      entity.NewID(),
		URI:     "bad.xml",
		Depth:   3,
		Type:    "application/xml",
		Content: &entity.TypedContent{MimeType: "application/xml", Content: []byte("<broken><never closed>")},
	}

	artifacts := r.ParsePage(page)
	require.Len(t, artifacts, 1)
	assert.Equal(t, page.ID, artifacts[0].PageID)
	assert.Equal(t, 3, artifacts[0].PageDepth)
	assert.Empty(t, artifacts[0].Text)
}

func TestMimeTypeFromExtension(t *testing.T) {
	assert.Equal(t, "text/markdown", MimeTypeFromExtension(".md"))
	assert.Equal(t, "text/html", MimeTypeFromExtension(".HTML"))
	assert.Equal(t, "application/xml", MimeTypeFromExtension(".xml"))
	assert.Equal(t, "application/pdf", MimeTypeFromExtension(".pdf"))
	assert.Empty(t, MimeTypeFromExtension(".exe"))
}
