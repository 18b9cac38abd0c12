package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/docforest/entity"
)

func markdownPage(content string) *entity.Page {
	return &entity.Page{
		ID:      entity.NewID(),
		URI:     "https://docs.example.com/guide",
		Depth:   2,
		Type:    "text/markdown",
		Content: &entity.TypedContent{MimeType: "text/markdown", Content: []byte(content)},
	}
}

func TestMarkdownParser_HeaderHierarchy(t *testing.T) {
	p := NewMarkdownParser(Profile{})
	page := markdownPage("# A\ntext1\n## B\ntext2\n# C\ntext3\n")

	artifacts, err := p.Parse(page)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	a, b, c := artifacts[0], artifacts[1], artifacts[2]

	assert.Equal(t, "A", a.Title)
	assert.Equal(t, 1, a.Level)
	assert.Empty(t, a.ParentID)
	assert.Contains(t, a.Text, "# A")
	assert.Contains(t, a.Text, "text1")

	assert.Equal(t, "B", b.Title)
	assert.Equal(t, 2, b.Level)
	assert.Equal(t, a.ID, b.ParentID)

	assert.Equal(t, "C", c.Title)
	assert.Equal(t, 1, c.Level)
	assert.Empty(t, c.ParentID)

	// Sibling order preserved.
	assert.Equal(t, []int{0, 1, 2}, []int{a.Index, b.Index, c.Index})

	// B is A's only descendant.
	desc := entity.ArtifactDescendants(artifacts, a)
	require.Len(t, desc, 1)
	assert.Equal(t, b.ID, desc[0].ID)
}

func TestMarkdownParser_ZeroHeaders(t *testing.T) {
	p := NewMarkdownParser(Profile{})
	page := markdownPage("just text\n")

	artifacts, err := p.Parse(page)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	// The single artifact carries the page's own id.
	assert.Equal(t, page.ID, artifacts[0].ID)
	assert.Equal(t, 1, artifacts[0].Level)
	assert.Equal(t, "just text", artifacts[0].Text)
	assert.Empty(t, artifacts[0].ParentID)
}

func TestMarkdownParser_LevelNormalization(t *testing.T) {
	// Shallowest header is "##", which must normalize to level 1.
	p := NewMarkdownParser(Profile{})
	page := markdownPage("## Top\ntext\n### Nested\nmore\n")

	artifacts, err := p.Parse(page)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, 1, artifacts[0].Level)
	assert.Equal(t, 2, artifacts[1].Level)
	assert.Equal(t, artifacts[0].ID, artifacts[1].ParentID)
}

func TestMarkdownParser_MaxLevelCutoff(t *testing.T) {
	// Headers beyond the cutoff stay inline in the enclosing section.
	p := NewMarkdownParser(Profile{MaxLevel: 1})
	page := markdownPage("# Top\ntext\n## Deep\ndeep text\n")

	artifacts, err := p.Parse(page)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	assert.Equal(t, "Top", artifacts[0].Title)
	assert.Contains(t, artifacts[0].Text, "## Deep")
	assert.Contains(t, artifacts[0].Text, "deep text")
}

func TestMarkdownParser_LevelsIncreaseAlongParentChain(t *testing.T) {
	p := NewMarkdownParser(Profile{MaxLevel: 4})
	page := markdownPage("# 1\na\n## 2\nb\n### 3\nc\n## 2b\nd\n")

	artifacts, err := p.Parse(page)
	require.NoError(t, err)

	for _, a := range artifacts {
		chain := entity.ArtifactAncestors(artifacts, a)
		for i := 1; i < len(chain); i++ {
			assert.Greater(t, chain[i].Level, chain[i-1].Level)
		}
	}
}

func TestMarkdownParser_BlankDocument(t *testing.T) {
	p := NewMarkdownParser(Profile{})
	page := markdownPage("   \n\n")

	artifacts, err := p.Parse(page)
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}
