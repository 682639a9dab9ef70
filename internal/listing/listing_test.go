package listing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackbox/api/internal/content"
)

func article(id, title, excerpt string, featured bool, categories []string, tags ...string) content.Article {
	a := content.Article{ID: id, Slug: id, Title: title, Excerpt: excerpt, Featured: featured, Tags: tags}
	for _, c := range categories {
		a.Categories = append(a.Categories, content.Category{Title: c})
	}
	return a
}

func sampleArticles() []content.Article {
	return []content.Article{
		article("a1", "AI for Small Business", "Practical automation", true, []string{"AI"}, "ml"),
		article("a2", "Modern Web Design", "Fast sites that convert", false, []string{"Web"}, "react"),
		article("a3", "Pricing Your Project", "What a website costs", false, []string{"Business", "Web"}, "pricing"),
	}
}

func ids(docs []content.Article) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestApplyScenario(t *testing.T) {
	docs := sampleArticles()

	tests := []struct {
		name            string
		facet, search   string
		wantVisible     []string
		wantPartitioned bool
		wantFeatured    []string
		wantRegular     []string
	}{
		{name: "all", facet: All, wantVisible: []string{"a1", "a2", "a3"}, wantPartitioned: true, wantFeatured: []string{"a1"}, wantRegular: []string{"a2", "a3"}},
		{name: "empty facet is all", facet: "", wantVisible: []string{"a1", "a2", "a3"}, wantPartitioned: true, wantFeatured: []string{"a1"}, wantRegular: []string{"a2", "a3"}},
		{name: "web facet", facet: "Web", wantVisible: []string{"a2", "a3"}},
		{name: "search tag", facet: All, search: "PRICING", wantVisible: []string{"a3"}, wantPartitioned: true, wantFeatured: []string{}, wantRegular: []string{"a3"}},
		{name: "search excerpt trimmed", facet: All, search: "  automation ", wantVisible: []string{"a1"}, wantPartitioned: true, wantFeatured: []string{"a1"}, wantRegular: []string{}},
		{name: "facet and search", facet: "Web", search: "react", wantVisible: []string{"a2"}},
		{name: "no match", facet: "AI", search: "react", wantVisible: []string{}},
		{name: "unknown facet", facet: "Cloud", wantVisible: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(docs, tt.facet, tt.search)
			assert.Equal(t, tt.wantVisible, ids(res.Visible))
			assert.Equal(t, tt.wantPartitioned, res.Partitioned)
			assert.Equal(t, []string{All, "AI", "Web", "Business"}, res.Facets)
			if tt.wantPartitioned {
				assert.Equal(t, tt.wantFeatured, ids(res.Featured))
				assert.Equal(t, tt.wantRegular, ids(res.Regular))
			} else {
				assert.Nil(t, res.Featured)
				assert.Nil(t, res.Regular)
			}
		})
	}
}

func TestApplyPortfolioFacets(t *testing.T) {
	docs := []content.PortfolioEntry{
		{ID: "p1", Title: "Bakery", ProjectType: "Web Development", Technologies: []string{"React"}},
		{ID: "p2", Title: "Clinic", ProjectType: "AI Integration", Technologies: []string{"Python"}},
		{ID: "p3", Title: "Gym", ProjectType: "Web Development", Description: "Class booking"},
		{ID: "p4", Title: "Untyped"},
	}
	res := Apply(docs, "Web Development", "")
	require.Len(t, res.Visible, 2)
	assert.Equal(t, "p1", res.Visible[0].ID)
	assert.Equal(t, "p3", res.Visible[1].ID)
	assert.Equal(t, []string{All, "Web Development", "AI Integration"}, res.Facets)

	res = Apply(docs, All, "python")
	require.Len(t, res.Visible, 1)
	assert.Equal(t, "p2", res.Visible[0].ID)
}

// randomArticles builds a reproducible collection drawn from a small
// vocabulary so that facets and search terms collide often.
func randomArticles(r *rand.Rand, n int) []content.Article {
	words := []string{"ai", "web", "cloud", "pricing", "Design", "SEO"}
	cats := []string{"AI", "Web", "Business", "Cloud"}
	docs := make([]content.Article, 0, n)
	for i := 0; i < n; i++ {
		var categories []string
		for _, c := range cats {
			if r.Intn(3) == 0 {
				categories = append(categories, c)
			}
		}
		docs = append(docs, article(
			fmt.Sprintf("d%d", i),
			words[r.Intn(len(words))]+" post",
			"about "+words[r.Intn(len(words))],
			r.Intn(4) == 0,
			categories,
			words[r.Intn(len(words))],
		))
	}
	return docs
}

func TestApplyProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	facets := []string{All, "AI", "Web", "Business", "Cloud", "Missing"}
	searches := []string{"", "ai", "WEB", "pricing", "zzz", "post"}

	for round := 0; round < 50; round++ {
		docs := randomArticles(r, r.Intn(12))
		snapshot := append([]content.Article(nil), docs...)
		universe := Apply(docs, All, "")

		// Identity.
		assert.Equal(t, ids(docs), ids(universe.Visible))

		for _, f := range facets {
			for _, s := range searches {
				res := Apply(docs, f, s)

				// Soundness.
				for _, v := range res.Visible {
					assert.True(t, Matches(v, f, s))
				}
				// Completeness, each match exactly once and in input order.
				var want []string
				for _, d := range docs {
					if Matches(d, f, s) {
						want = append(want, d.ID)
					}
				}
				if want == nil {
					want = []string{}
				}
				assert.Equal(t, want, ids(res.Visible))

				// Facets reflect the unfiltered universe.
				assert.Equal(t, universe.Facets, res.Facets)

				// Idempotence.
				assert.Equal(t, res, Apply(docs, f, s))

				if res.Partitioned {
					assert.Equal(t, len(res.Visible), len(res.Featured)+len(res.Regular))
				}
			}
		}
		assert.Equal(t, snapshot, docs)
	}
}
