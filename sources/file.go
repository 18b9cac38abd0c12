package sources

import (
	"fmt"
	"path/filepath"

	"github.com/antchfx/xmlquery"

	"github.com/c360studio/docforest/loader"
	"github.com/c360studio/docforest/parser"
)

// cweElementTitle labels weakness entries by their catalog id and name
// when present, falling back to the tag name for structural nodes.
func cweElementTitle(n *xmlquery.Node, level int) string {
	id := n.SelectAttr("ID")
	name := n.SelectAttr("Name")
	if id != "" && name != "" {
		return fmt.Sprintf("CWE %s: %s", id, name)
	}
	return n.Data
}

func cweSource() Source {
	return Source{
		Name:        "cwe",
		Description: "CWE weakness catalog XML views",
		New: func(deps Deps) (loader.Loader, error) {
			registry := parser.NewRegistry(parser.Profile{
				XPathRoot:  "/cwe:Weakness_Catalog/cwe:Weaknesses/cwe:Weakness",
				Namespaces: map[string]string{"cwe": "http://cwe.mitre.org/cwe-7"},
				MaxLevel:   1,
				NodeNames: []string{
					"Weakness",
					"Description",
					"Extended_Description",
					"Demonstrative_Examples",
					"Potential_Mitigations",
				},
				ElementTitle: cweElementTitle,
			}, deps.Logger)

			return loader.NewFileLoader(loader.FileConfig{
				Root:    filepath.Join(deps.DataDir, "cwe"),
				Pattern: "*.xml",
			}, registry, loader.Hooks{}, deps.Logger)
		},
	}
}

func windowsSecuritySource() Source {
	return Source{
		Name:        "windows-security",
		Description: "Windows security documentation markdown tree",
		New: func(deps Deps) (loader.Loader, error) {
			registry := parser.NewRegistry(parser.Profile{}, deps.Logger)
			return loader.NewFileLoader(loader.FileConfig{
				Root:    filepath.Join(deps.DataDir, "windows-itpro-docs", "windows", "security"),
				Pattern: "**/*.md",
			}, registry, loader.Hooks{}, deps.Logger)
		},
	}
}

func notesSource() Source {
	return Source{
		Name:        "notes",
		Description: "Local markdown notes",
		New: func(deps Deps) (loader.Loader, error) {
			registry := parser.NewRegistry(parser.Profile{}, deps.Logger)
			return loader.NewFileLoader(loader.FileConfig{
				Root:    filepath.Join(deps.DataDir, "notes"),
				Pattern: "**/*.md",
			}, registry, loader.Hooks{}, deps.Logger)
		},
	}
}
