package parser

import (
	"fmt"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/docforest/entity"
)

func xmlPage(content string) *entity.Page {
	return &entity.Page{
		ID:      entity.NewID(),
		URI:     "catalog.xml",
		Depth:   1,
		Type:    "application/xml",
		Content: &entity.TypedContent{MimeType: "application/xml", Content: []byte(content)},
	}
}

const threeLevelXML = `<Catalog>
	<Entry><Detail>alpha detail</Detail>first</Entry>
	<Entry><Detail>beta detail</Detail>second</Entry>
</Catalog>`

func TestXMLParser_WalkProducesHierarchy(t *testing.T) {
	p := NewXMLParser(Profile{MaxLevel: 3}, nil)

	artifacts, err := p.Parse(xmlPage(threeLevelXML))
	require.NoError(t, err)
	require.Len(t, artifacts, 5) // Catalog + 2×(Entry + Detail)

	root := artifacts[0]
	assert.Equal(t, "Catalog", root.Title)
	assert.Equal(t, 1, root.Level)
	assert.Empty(t, root.ParentID)

	entry := artifacts[1]
	assert.Equal(t, "Entry", entry.Title)
	assert.Equal(t, 2, entry.Level)
	assert.Equal(t, root.ID, entry.ParentID)
	// Direct text only, not the Detail child's text.
	assert.Equal(t, "first", entry.Text)

	detail := artifacts[2]
	assert.Equal(t, "Detail", detail.Title)
	assert.Equal(t, 3, detail.Level)
	assert.Equal(t, entry.ID, detail.ParentID)
	assert.Equal(t, "alpha detail", detail.Text)
}

func TestXMLParser_CutoffCollapsesSubtrees(t *testing.T) {
	p := NewXMLParser(Profile{MaxLevel: 1}, nil)

	artifacts, err := p.Parse(xmlPage(threeLevelXML))
	require.NoError(t, err)

	// One artifact for the level-1 Catalog node, one collapsed
	// artifact per level-2 Entry subtree, nothing for level 3.
	require.Len(t, artifacts, 3)
	assert.Equal(t, "Catalog", artifacts[0].Title)

	for _, a := range artifacts[1:] {
		assert.Equal(t, 2, a.Level)
		assert.Equal(t, artifacts[0].ID, a.ParentID)
		// Collapsed markdown keeps the deep structure as text.
		assert.Contains(t, a.Text, "# Entry")
		assert.Contains(t, a.Text, "detail")
	}
	for _, a := range artifacts {
		assert.NotEqual(t, 3, a.Level)
	}
}

func TestXMLParser_NodeNameAllowList(t *testing.T) {
	p := NewXMLParser(Profile{
		MaxLevel:  3,
		NodeNames: []string{"Catalog", "Entry"},
	}, nil)

	artifacts, err := p.Parse(xmlPage(threeLevelXML))
	require.NoError(t, err)

	for _, a := range artifacts {
		assert.NotEqual(t, "Detail", a.Title)
	}
	require.Len(t, artifacts, 3)
}

func TestXMLParser_XPathRootWithNamespaces(t *testing.T) {
	content := `<cat:Weakness_Catalog xmlns:cat="http://example.com/catalog">
		<cat:Weaknesses>
			<cat:Weakness ID="79" Name="XSS">description text</cat:Weakness>
			<cat:Weakness ID="89" Name="SQLi">other text</cat:Weakness>
		</cat:Weaknesses>
	</cat:Weakness_Catalog>`

	p := NewXMLParser(Profile{
		MaxLevel:   2,
		XPathRoot:  "/c:Weakness_Catalog/c:Weaknesses/c:Weakness",
		Namespaces: map[string]string{"c": "http://example.com/catalog"},
		ElementTitle: func(n *xmlquery.Node, _ int) string {
			return fmt.Sprintf("CWE %s: %s", n.SelectAttr("ID"), n.SelectAttr("Name"))
		},
	}, nil)

	artifacts, err := p.Parse(xmlPage(content))
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, "CWE 79: XSS", artifacts[0].Title)
	assert.Equal(t, 1, artifacts[0].Level)
	assert.Equal(t, "description text", artifacts[0].Text)
	assert.Equal(t, "CWE 89: SQLi", artifacts[1].Title)
}

func TestXMLParser_MalformedContent(t *testing.T) {
	p := NewXMLParser(Profile{}, nil)

	_, err := p.Parse(xmlPage("<broken><never closed>"))
	assert.Error(t, err)
}
