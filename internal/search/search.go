package search

import (
	"blackbox/api/internal/content"
)

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultArticle   ResultType = "article"
	ResultPortfolio ResultType = "portfolio"
)

// ParseResultType maps a query parameter to a ResultType. Empty means all.
func ParseResultType(value string) (ResultType, bool) {
	switch ResultType(value) {
	case "":
		return "", true
	case ResultArticle, ResultPortfolio:
		return ResultType(value), true
	default:
		return "", false
	}
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Slug    string     `json:"slug"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	Facets  []string   `json:"facets,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text  string
	Type  ResultType // empty = all types
	Facet string     // category for articles, project type for portfolio
	Limit int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Backend string   `json:"backend"`
}

// Backend is a full-text index that can also be fed documents.
type Backend interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
	IndexArticles(records []ArticleRecord) error
	IndexPortfolio(records []PortfolioRecord) error
}

// Corpus exposes whatever collections are currently cached in memory.
type Corpus interface {
	CachedArticles() []content.Article
	CachedPortfolio() []content.PortfolioEntry
}

// ArticleRecord is the data we index for an article.
type ArticleRecord struct {
	ID         string   `json:"id"`
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
	Published  int64    `json:"publishedAt"`
}

// PortfolioRecord is the data we index for a portfolio entry.
type PortfolioRecord struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Client       string   `json:"client"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	ProjectType  string   `json:"projectType"`
	Completed    int64    `json:"completedAt"`
}

func NewArticleRecord(a content.Article) ArticleRecord {
	return ArticleRecord{
		ID:         a.ID,
		Slug:       a.Slug,
		Title:      a.Title,
		Excerpt:    a.Excerpt,
		Body:       content.BlocksText(a.Body),
		Tags:       a.Tags,
		Categories: a.ListingFacets(),
		Published:  a.PublishedAt.Unix(),
	}
}

func NewPortfolioRecord(p content.PortfolioEntry) PortfolioRecord {
	return PortfolioRecord{
		ID:           p.ID,
		Slug:         p.Slug,
		Title:        p.Title,
		Client:       p.Client,
		Description:  p.Description,
		Technologies: p.Technologies,
		ProjectType:  p.ProjectType,
		Completed:    p.CompletedAt.Unix(),
	}
}
