package search

import (
	"errors"
	"sync"
	"testing"
	"time"

	"blackbox/api/internal/content"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu        sync.Mutex
	healthy   bool
	results   []Result
	err       error
	articles  chan []ArticleRecord
	portfolio chan []PortfolioRecord
}

func (f *fakeBackend) Search(q Query) ([]Result, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.results, len(f.results), nil
}

func (f *fakeBackend) Healthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakeBackend) IndexArticles(records []ArticleRecord) error {
	f.articles <- records
	return nil
}

func (f *fakeBackend) IndexPortfolio(records []PortfolioRecord) error {
	f.portfolio <- records
	return nil
}

type staticCorpus struct {
	articles  []content.Article
	portfolio []content.PortfolioEntry
}

func (c staticCorpus) CachedArticles() []content.Article         { return c.articles }
func (c staticCorpus) CachedPortfolio() []content.PortfolioEntry { return c.portfolio }

type countingRecorder map[string]int

func (c countingRecorder) SearchServed(backend string) { c[backend]++ }

func testCorpus() staticCorpus {
	return staticCorpus{
		articles: []content.Article{
			{ID: "a1", Slug: "ai-for-small-business", Title: "AI for Small Business", Excerpt: "Chatbots that help",
				Categories: []content.Category{{Title: "AI"}}},
			{ID: "a2", Slug: "network-basics", Title: "Network Basics", Excerpt: "Routers and switches",
				Categories: []content.Category{{Title: "IT"}}},
		},
		portfolio: []content.PortfolioEntry{
			{ID: "p1", Slug: "dental-site", Title: "Dental Site", Description: "A chatbot for bookings", ProjectType: "Web"},
		},
	}
}

func TestSearchUsesBackendWhenHealthy(t *testing.T) {
	backend := &fakeBackend{healthy: true, results: []Result{{Type: ResultArticle, ID: "x"}}}
	rec := countingRecorder{}
	svc := NewService(backend, testCorpus(), nil, rec)

	resp := svc.Search(Query{Text: "anything"})
	assert.Equal(t, BackendMeili, resp.Backend)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, rec[BackendMeili])
}

func TestSearchFallsBackToListing(t *testing.T) {
	cases := []struct {
		name    string
		backend Backend
		query   Query
		wantIDs []string
	}{
		{name: "no backend", query: Query{Text: "chatbot"}, wantIDs: []string{"a1", "p1"}},
		{name: "unhealthy backend", backend: &fakeBackend{}, query: Query{Text: "chatbot"}, wantIDs: []string{"a1", "p1"}},
		{name: "backend error", backend: &fakeBackend{healthy: true, err: errors.New("boom")}, query: Query{Text: "routers"}, wantIDs: []string{"a2"}},
		{name: "type filter", query: Query{Text: "chatbot", Type: ResultPortfolio}, wantIDs: []string{"p1"}},
		{name: "facet filter", query: Query{Facet: "IT", Type: ResultArticle}, wantIDs: []string{"a2"}},
		{name: "limit", query: Query{Text: "chatbot", Limit: 1}, wantIDs: []string{"a1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(tc.backend, testCorpus(), nil, nil)
			resp := svc.Search(tc.query)
			assert.Equal(t, BackendFallback, resp.Backend)
			ids := make([]string, 0, len(resp.Results))
			for _, r := range resp.Results {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, len(tc.wantIDs), resp.Total)
		})
	}
}

func TestSearchWithoutCorpusReturnsEmpty(t *testing.T) {
	resp := NewService(nil, nil, nil, nil).Search(Query{Text: "x"})
	require.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestIndexArticlesPushesRecords(t *testing.T) {
	backend := &fakeBackend{healthy: true, articles: make(chan []ArticleRecord, 1)}
	svc := NewService(backend, nil, nil, nil)

	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.IndexArticles([]content.Article{{
		ID: "a1", Slug: "s", Title: "T", PublishedAt: published,
		Categories: []content.Category{{Title: "AI"}},
		Body:       []content.Block{{Kind: content.BlockParagraph, Spans: []content.Span{{Text: "hello"}}}},
	}})

	select {
	case records := <-backend.articles:
		require.Len(t, records, 1)
		assert.Equal(t, "a1", records[0].ID)
		assert.Equal(t, []string{"AI"}, records[0].Categories)
		assert.Equal(t, "hello", records[0].Body)
		assert.Equal(t, published.Unix(), records[0].Published)
	case <-time.After(2 * time.Second):
		t.Fatal("articles were not indexed")
	}
}

func TestIndexSkippedWhenUnhealthy(t *testing.T) {
	backend := &fakeBackend{portfolio: make(chan []PortfolioRecord, 1)}
	NewService(backend, nil, nil, nil).IndexPortfolio([]content.PortfolioEntry{{ID: "p1"}})

	select {
	case <-backend.portfolio:
		t.Fatal("unhealthy backend should not be indexed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestParseResultType(t *testing.T) {
	for _, v := range []string{"", "article", "portfolio"} {
		if _, ok := ParseResultType(v); !ok {
			t.Fatalf("ParseResultType(%q) rejected", v)
		}
	}
	if _, ok := ParseResultType("thread"); ok {
		t.Fatal("unknown type accepted")
	}
}
