package sources

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/docforest/entity"
)

func TestRegistry_BuiltinsRegistered(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"attck", "d3fend", "mozilla-security", "cs161-textbook", "law", "cwe", "windows-security", "notes"} {
		_, ok := r.Get(name)
		assert.True(t, ok, name)
	}

	all := r.All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Source{Name: "attck"})
	assert.Error(t, err)

	err = r.Register(Source{Name: ""})
	assert.Error(t, err)
}

func TestSources_Construct(t *testing.T) {
	r := NewRegistry()
	deps := Deps{
		HTTP:    nil,
		DataDir: t.TempDir(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, src := range r.All() {
		t.Run(src.Name, func(t *testing.T) {
			l, err := src.New(deps)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestAttckFilterURL(t *testing.T) {
	assert.True(t, attckFilterURL("https://attack.mitre.org/tactics/TA0001", "", 1))
	assert.False(t, attckFilterURL("https://attack.mitre.org/techniques/T1548", "", 1))

	assert.True(t, attckFilterURL("https://attack.mitre.org/techniques/T1548", "", 2))
	// Sub-technique paths only match at the next layer down.
	assert.False(t, attckFilterURL("https://attack.mitre.org/techniques/T1548/002", "", 2))
	assert.True(t, attckFilterURL("https://attack.mitre.org/techniques/T1548/002", "", 3))

	assert.False(t, attckFilterURL("https://attack.mitre.org/tactics/TA0001", "", 4))
}

func TestD3fendFilterURL(t *testing.T) {
	assert.True(t, d3fendFilterURL("https://d3fend.mitre.org/tactic/d3f:Harden", "", 1))
	assert.True(t, d3fendFilterURL("https://d3fend.mitre.org/technique/d3f:Deco", "https://d3fend.mitre.org/", 2))
	assert.False(t, d3fendFilterURL("https://d3fend.mitre.org/technique/d3f:Deco", "https://d3fend.mitre.org/technique/d3f:Deco", 2))
	assert.False(t, d3fendFilterURL("https://d3fend.mitre.org/api/tree.json", "", 1))
}

func TestCS161FilterURL(t *testing.T) {
	base := "https://textbook.cs161.org/"

	assert.True(t, cs161FilterURL(base+"memory-safety/", base, 1))
	assert.False(t, cs161FilterURL(base+"assets/site.css", base, 1))

	assert.True(t, cs161FilterURL(base+"memory-safety/vulnerabilities.html", base, 2))
	assert.False(t, cs161FilterURL(base+"memory-safety/vulnerabilities.html#stack", base, 2))
	assert.False(t, cs161FilterURL(base+"a/b/c.html", base, 2))
}

func TestMarkdownCut(t *testing.T) {
	text := "# Phishing\nAdversaries send messages.\n## References\n1. Some link\n"
	cut := markdownCut(text, attckCutPatterns)
	assert.Equal(t, "# Phishing\nAdversaries send messages.\n", cut)

	// No pattern match leaves the text whole.
	assert.Equal(t, "# Clean\nbody\n", markdownCut("# Clean\nbody\n", attckCutPatterns))
}

func TestHTMLToMarkdownTransform(t *testing.T) {
	content := &entity.TypedContent{
		MimeType: "text/html; charset=utf-8",
		Content:  []byte("<h1>Title</h1><p>body</p>"),
	}
	htmlToMarkdown(content, nil)

	assert.Equal(t, "text/markdown; charset=utf-8", content.MimeType)
	assert.Contains(t, string(content.Content), "# Title")

	// Non-HTML content passes through untouched.
	plain := &entity.TypedContent{MimeType: "text/plain", Content: []byte("raw")}
	htmlToMarkdown(plain, nil)
	assert.Equal(t, "raw", string(plain.Content))
}

func TestContainerToMarkdown(t *testing.T) {
	html := `<html><body><nav>menu</nav><div id="main_content_wrap"><h2>Guide</h2><p>real content</p></div></body></html>`
	content := &entity.TypedContent{MimeType: "text/html", Content: []byte(html)}

	containerToMarkdown(content, "#main_content_wrap")

	text := string(content.Content)
	assert.Contains(t, text, "## Guide")
	assert.Contains(t, text, "real content")
	assert.NotContains(t, text, "menu")
}

func TestLawTransform_FallsBackWithoutContainer(t *testing.T) {
	withContainer := &entity.TypedContent{
		MimeType: "text/html",
		Content:  []byte(`<div class="pages_content"><p>Article 1. Scope.</p></div>`),
	}
	lawTransform(withContainer, 1)
	assert.Equal(t, "text/plain", withContainer.MimeType)
	assert.Contains(t, string(withContainer.Content), "Article 1. Scope.")

	without := &entity.TypedContent{
		MimeType: "text/html",
		Content:  []byte(`<html><body><article><h1>Decree</h1><p>Body of the decree text goes here.</p></article></body></html>`),
	}
	lawTransform(without, 1)
	assert.Equal(t, "text/plain", without.MimeType)
}
