// Package listing derives the visible slice of a content listing from the
// full collection, a facet selection and a search term.
package listing

import "strings"

// All is the synthetic facet that matches every document.
const All = "All"

// Item is anything the engine can filter. Facets are category titles for
// articles and the project type for portfolio entries.
type Item interface {
	ListingFacets() []string
	ListingText() []string
	IsFeatured() bool
}

// Result is the derived listing. Featured and Regular are only populated
// when Partitioned is true.
type Result[T Item] struct {
	Visible     []T      `json:"visible"`
	Featured    []T      `json:"featured"`
	Regular     []T      `json:"regular"`
	Partitioned bool     `json:"partitioned"`
	Facets      []string `json:"facets"`
	Facet       string   `json:"facet"`
	Search      string   `json:"search"`
}

// Apply filters docs without reordering or mutating them.
func Apply[T Item](docs []T, facet, search string) Result[T] {
	facet = normalizeFacet(facet)
	search = strings.TrimSpace(search)

	res := Result[T]{
		Visible: make([]T, 0, len(docs)),
		Facets:  Facets(docs),
		Facet:   facet,
		Search:  search,
	}
	needle := strings.ToLower(search)
	for _, doc := range docs {
		if matches(doc, facet, needle) {
			res.Visible = append(res.Visible, doc)
		}
	}

	if facet == All {
		res.Partitioned = true
		res.Featured = make([]T, 0)
		res.Regular = make([]T, 0, len(res.Visible))
		for _, doc := range res.Visible {
			if doc.IsFeatured() {
				res.Featured = append(res.Featured, doc)
			} else {
				res.Regular = append(res.Regular, doc)
			}
		}
	}
	return res
}

// Facets returns All followed by distinct facet values in first-seen order.
func Facets[T Item](docs []T) []string {
	seen := map[string]struct{}{All: {}}
	facets := []string{All}
	for _, doc := range docs {
		for _, f := range doc.ListingFacets() {
			if f == "" {
				continue
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			facets = append(facets, f)
		}
	}
	return facets
}

// Matches reports whether doc is visible under (facet, search).
func Matches(doc Item, facet, search string) bool {
	return matches(doc, normalizeFacet(facet), strings.ToLower(strings.TrimSpace(search)))
}

func matches(doc Item, facet, needle string) bool {
	if facet != All && !memberOf(doc, facet) {
		return false
	}
	if needle == "" {
		return true
	}
	for _, field := range doc.ListingText() {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func memberOf(doc Item, facet string) bool {
	for _, f := range doc.ListingFacets() {
		if f == facet {
			return true
		}
	}
	return false
}

func normalizeFacet(facet string) string {
	if strings.TrimSpace(facet) == "" {
		return All
	}
	return facet
}
