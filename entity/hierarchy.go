package entity

import "sort"

// The traversal helpers below treat the flat result collections as an
// implicit tree via parent-id back-references. Each call builds its own
// id index, so they are read-only and safe to call concurrently over
// the same slices. A parent id that is absent from the collection
// truncates the chain instead of failing.

// ArtifactAncestors returns the ancestor chain of target, root first
// and ending with target itself.
func ArtifactAncestors(artifacts []Artifact, target Artifact) []Artifact {
	byID := make(map[string]Artifact, len(artifacts))
	for _, a := range artifacts {
		byID[a.ID] = a
	}

	chain := []Artifact{target}
	seen := map[string]bool{target.ID: true}
	for cur := target; cur.ParentID != ""; {
		parent, ok := byID[cur.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		chain = append([]Artifact{parent}, chain...)
		cur = parent
	}
	return chain
}

// ArtifactDescendants returns every artifact below parent, ordered by
// index.
func ArtifactDescendants(artifacts []Artifact, parent Artifact) []Artifact {
	children := make(map[string][]Artifact, len(artifacts))
	for _, a := range artifacts {
		if a.ParentID != "" {
			children[a.ParentID] = append(children[a.ParentID], a)
		}
	}

	var result []Artifact
	var collect func(id string)
	collect = func(id string) {
		for _, child := range children[id] {
			result = append(result, child)
			collect(child.ID)
		}
	}
	collect(parent.ID)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result
}

// PageAncestors returns the ancestor chain of target, root first and
// ending with target itself.
func PageAncestors(pages []Page, target Page) []Page {
	byID := make(map[string]Page, len(pages))
	for _, p := range pages {
		byID[p.ID] = p
	}

	chain := []Page{target}
	seen := map[string]bool{target.ID: true}
	for cur := target; cur.ParentID != ""; {
		parent, ok := byID[cur.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		chain = append([]Page{parent}, chain...)
		cur = parent
	}
	return chain
}

// PageDescendants returns every page below parent, ordered by depth.
func PageDescendants(pages []Page, parent Page) []Page {
	children := make(map[string][]Page, len(pages))
	for _, p := range pages {
		if p.ParentID != "" {
			children[p.ParentID] = append(children[p.ParentID], p)
		}
	}

	var result []Page
	var collect func(id string)
	collect = func(id string) {
		for _, child := range children[id] {
			result = append(result, child)
			collect(child.ID)
		}
	}
	collect(parent.ID)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Depth < result[j].Depth
	})
	return result
}
