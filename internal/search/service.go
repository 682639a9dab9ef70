package search

import (
	"blackbox/api/internal/content"
	"blackbox/api/internal/listing"

	"go.uber.org/zap"
)

const (
	BackendMeili    = "meilisearch"
	BackendFallback = "listing"
)

// Recorder counts which backend served a query.
type Recorder interface {
	SearchServed(backend string)
}

// Service tries the index first and falls back to the in-memory listing
// engine over whatever collections are cached.
type Service struct {
	backend Backend
	corpus  Corpus
	log     *zap.Logger
	metrics Recorder
}

// NewService creates a search service. backend may be nil if Meilisearch is
// not configured.
func NewService(backend Backend, corpus Corpus, logger *zap.Logger, metrics Recorder) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, corpus: corpus, log: logger.Named("search"), metrics: metrics}
}

func (s *Service) Search(q Query) Response {
	if s.backend != nil && s.backend.Healthy() {
		results, total, err := s.backend.Search(q)
		if err == nil {
			s.served(BackendMeili)
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: BackendMeili}
		}
		s.log.Warn("index search failed, falling back to listing", zap.Error(err))
	}

	results := s.fallback(q)
	s.served(BackendFallback)
	return Response{Results: results, Total: len(results), Query: q.Text, Backend: BackendFallback}
}

func (s *Service) fallback(q Query) []Result {
	results := []Result{}
	if s.corpus == nil {
		return results
	}
	if q.Type == "" || q.Type == ResultArticle {
		matched := listing.Apply(s.corpus.CachedArticles(), q.Facet, q.Text)
		for _, a := range matched.Visible {
			results = append(results, Result{
				Type: ResultArticle, ID: a.ID, Slug: a.Slug, Title: a.Title, Snippet: a.Excerpt, Facets: a.ListingFacets(),
			})
		}
	}
	if q.Type == "" || q.Type == ResultPortfolio {
		matched := listing.Apply(s.corpus.CachedPortfolio(), q.Facet, q.Text)
		for _, p := range matched.Visible {
			results = append(results, Result{
				Type: ResultPortfolio, ID: p.ID, Slug: p.Slug, Title: p.Title, Snippet: p.Description, Facets: p.ListingFacets(),
			})
		}
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results
}

// IndexArticles pushes articles to the index (fire-and-forget).
func (s *Service) IndexArticles(articles []content.Article) {
	if s.backend == nil || !s.backend.Healthy() || len(articles) == 0 {
		return
	}
	records := make([]ArticleRecord, 0, len(articles))
	for _, a := range articles {
		records = append(records, NewArticleRecord(a))
	}
	go func() {
		if err := s.backend.IndexArticles(records); err != nil {
			s.log.Warn("index articles", zap.Int("count", len(records)), zap.Error(err))
		}
	}()
}

// IndexPortfolio pushes portfolio entries to the index (fire-and-forget).
func (s *Service) IndexPortfolio(entries []content.PortfolioEntry) {
	if s.backend == nil || !s.backend.Healthy() || len(entries) == 0 {
		return
	}
	records := make([]PortfolioRecord, 0, len(entries))
	for _, p := range entries {
		records = append(records, NewPortfolioRecord(p))
	}
	go func() {
		if err := s.backend.IndexPortfolio(records); err != nil {
			s.log.Warn("index portfolio", zap.Int("count", len(records)), zap.Error(err))
		}
	}()
}

func (s *Service) served(backend string) {
	if s.metrics != nil {
		s.metrics.SearchServed(backend)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
