package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"blackbox/api/internal/assistant"
	"blackbox/api/internal/auth"
	"blackbox/api/internal/authpw"
	"blackbox/api/internal/contact"
	"blackbox/api/internal/content"
	"blackbox/api/internal/export"
	"blackbox/api/internal/fetch"
	"blackbox/api/internal/gitrepo"
	"blackbox/api/internal/listing"
	"blackbox/api/internal/rbac"
	"blackbox/api/internal/search"
	"blackbox/api/internal/store"
	"blackbox/api/internal/telemetry"

	"go.uber.org/zap"
)

// Publisher accepts new documents. Only the git content backend has one.
type Publisher interface {
	Publish(variant content.Variant, doc content.RawDocument, author, message string) (gitrepo.CommitInfo, error)
	History(limit int) ([]gitrepo.CommitInfo, error)
}

// Purger drops a shared cache layer below the in-process controllers.
type Purger interface {
	Purge(ctx context.Context) error
}

// HealthCheck is run by /api/ready.
type HealthCheck func(ctx context.Context) error

// Deps wires a Service. Source, Contact and Site are required.
type Deps struct {
	Source    content.Source
	Images    content.ImageURLBuilder
	Site      content.Site
	FreshFor  time.Duration
	Contact   *contact.Service
	Search    search.Backend
	Export    *export.Service
	Assistant *assistant.Assistant
	Admin     *authpw.Service
	Tokens    *auth.Signer
	Publisher Publisher
	Purger    Purger
	Checks    map[string]HealthCheck
	Logger    *zap.Logger
	Metrics   *telemetry.Metrics
}

type Principal struct {
	Subject string
	Role    rbac.Role
}

var visitor = Principal{Role: rbac.RoleVisitor}

type Service struct {
	source    content.Source
	projector content.Projector
	site      content.Site
	contact   *contact.Service
	search    *search.Service
	export    *export.Service
	assistant *assistant.Assistant
	admin     *authpw.Service
	tokens    *auth.Signer
	publisher Publisher
	purger    Purger
	checks    map[string]HealthCheck
	log       *zap.Logger
	metrics   *telemetry.Metrics

	articleLists   *fetch.Controller[[]content.Article]
	articles       *fetch.Controller[content.Article]
	portfolioLists *fetch.Controller[[]content.PortfolioEntry]
	portfolio      *fetch.Controller[content.PortfolioEntry]
}

func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		source:    deps.Source,
		projector: content.NewProjector(deps.Images),
		site:      deps.Site,
		contact:   deps.Contact,
		export:    deps.Export,
		assistant: deps.Assistant,
		admin:     deps.Admin,
		tokens:    deps.Tokens,
		publisher: deps.Publisher,
		purger:    deps.Purger,
		checks:    deps.Checks,
		log:       logger,
		metrics:   deps.Metrics,
	}
	if s.assistant == nil {
		s.assistant = assistant.New(nil, "")
	}
	if s.export == nil {
		s.export = export.NewService(deps.Site, nil, nil, logger, deps.Metrics)
	}

	opts := func(name string) fetch.Options {
		return fetch.Options{Name: name, FreshFor: deps.FreshFor, Logger: logger.Named("fetch"), Metrics: deps.Metrics}
	}
	s.articleLists = fetch.NewController[[]content.Article](opts("article_lists"))
	s.articles = fetch.NewController[content.Article](opts("articles"))
	s.portfolioLists = fetch.NewController[[]content.PortfolioEntry](opts("portfolio_lists"))
	s.portfolio = fetch.NewController[content.PortfolioEntry](opts("portfolio"))

	s.search = search.NewService(deps.Search, s, logger, deps.Metrics)
	return s
}

// StateView is the client-facing part of a fetch.State.
type StateView struct {
	Status    fetch.Status `json:"status"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Stale     bool         `json:"stale"`
	Error     string       `json:"error,omitempty"`
}

func stateView[T any](st fetch.State[T]) StateView {
	view := StateView{Status: st.Status, UpdatedAt: st.UpdatedAt, Stale: st.Stale}
	if st.Err != nil {
		view.Error = st.Err.Error()
	}
	return view
}

type ArticleListing struct {
	Posts       []content.Article `json:"posts"`
	Featured    []content.Article `json:"featured"`
	Regular     []content.Article `json:"regular"`
	Partitioned bool              `json:"partitioned"`
	Categories  []string          `json:"categories"`
	Category    string            `json:"category"`
	Search      string            `json:"search"`
	State       StateView         `json:"state"`
}

type PortfolioListing struct {
	Projects     []content.PortfolioEntry `json:"projects"`
	Featured     []content.PortfolioEntry `json:"featured"`
	Regular      []content.PortfolioEntry `json:"regular"`
	Partitioned  bool                     `json:"partitioned"`
	ProjectTypes []string                 `json:"projectTypes"`
	ProjectType  string                   `json:"projectType"`
	Search       string                   `json:"search"`
	State        StateView                `json:"state"`
}

type ArticleDetail struct {
	Article content.Article  `json:"article"`
	SEO     content.PageMeta `json:"seo"`
	State   StateView        `json:"state"`
}

type PortfolioDetail struct {
	Project content.PortfolioEntry `json:"project"`
	SEO     content.PageMeta       `json:"seo"`
	State   StateView              `json:"state"`
}

var allQuery = content.CollectionQuery{}

func getOrRefetch[T any](ctx context.Context, c *fetch.Controller[T], key fetch.QueryKey, f fetch.Fetcher[T], refresh bool) (T, error) {
	if refresh {
		return c.Refetch(ctx, key, f)
	}
	return c.Get(ctx, key, f)
}

// ListArticles returns every article filtered by category and search term.
func (s *Service) ListArticles(ctx context.Context, category, term string, refresh bool) (ArticleListing, error) {
	key := fetch.CollectionKey(content.VariantArticle, allQuery)
	items, err := getOrRefetch(ctx, s.articleLists, key, s.articleCollection(allQuery), refresh)
	if err != nil {
		return ArticleListing{}, err
	}
	res := listing.Apply(items, category, term)
	return ArticleListing{
		Posts:       res.Visible,
		Featured:    res.Featured,
		Regular:     res.Regular,
		Partitioned: res.Partitioned,
		Categories:  res.Facets,
		Category:    res.Facet,
		Search:      res.Search,
		State:       stateView(s.articleLists.State(key)),
	}, nil
}

func (s *Service) FeaturedArticles(ctx context.Context, refresh bool) ([]content.Article, StateView, error) {
	q := content.FeaturedQuery(content.VariantArticle)
	key := fetch.CollectionKey(content.VariantArticle, q)
	items, err := getOrRefetch(ctx, s.articleLists, key, s.articleCollection(q), refresh)
	if err != nil {
		return nil, StateView{}, err
	}
	return items, stateView(s.articleLists.State(key)), nil
}

func (s *Service) Article(ctx context.Context, slug string, refresh bool) (ArticleDetail, error) {
	key := fetch.SlugKey(content.VariantArticle, slug)
	article, err := getOrRefetch(ctx, s.articles, key, s.articleBySlug(slug), refresh)
	if err != nil {
		return ArticleDetail{}, err
	}
	return ArticleDetail{
		Article: article,
		SEO:     content.ResolveArticleSEO(s.site, article),
		State:   stateView(s.articles.State(key)),
	}, nil
}

func (s *Service) ListPortfolio(ctx context.Context, projectType, term string, refresh bool) (PortfolioListing, error) {
	key := fetch.CollectionKey(content.VariantPortfolio, allQuery)
	items, err := getOrRefetch(ctx, s.portfolioLists, key, s.portfolioCollection(allQuery), refresh)
	if err != nil {
		return PortfolioListing{}, err
	}
	res := listing.Apply(items, projectType, term)
	return PortfolioListing{
		Projects:     res.Visible,
		Featured:     res.Featured,
		Regular:      res.Regular,
		Partitioned:  res.Partitioned,
		ProjectTypes: res.Facets,
		ProjectType:  res.Facet,
		Search:       res.Search,
		State:        stateView(s.portfolioLists.State(key)),
	}, nil
}

func (s *Service) FeaturedPortfolio(ctx context.Context, refresh bool) ([]content.PortfolioEntry, StateView, error) {
	q := content.FeaturedQuery(content.VariantPortfolio)
	key := fetch.CollectionKey(content.VariantPortfolio, q)
	items, err := getOrRefetch(ctx, s.portfolioLists, key, s.portfolioCollection(q), refresh)
	if err != nil {
		return nil, StateView{}, err
	}
	return items, stateView(s.portfolioLists.State(key)), nil
}

func (s *Service) PortfolioEntry(ctx context.Context, slug string, refresh bool) (PortfolioDetail, error) {
	key := fetch.SlugKey(content.VariantPortfolio, slug)
	entry, err := getOrRefetch(ctx, s.portfolio, key, s.portfolioBySlug(slug), refresh)
	if err != nil {
		return PortfolioDetail{}, err
	}
	return PortfolioDetail{
		Project: entry,
		SEO:     content.ResolvePortfolioSEO(s.site, entry),
		State:   stateView(s.portfolio.State(key)),
	}, nil
}

func (s *Service) articleCollection(q content.CollectionQuery) fetch.Fetcher[[]content.Article] {
	return func(ctx context.Context) ([]content.Article, error) {
		docs, err := s.source.FetchCollection(ctx, content.VariantArticle, q)
		if err != nil {
			s.metrics.ContentFetched("article_collection", "error")
			return nil, err
		}
		items, err := s.projector.ProjectArticles(docs, content.SkipMalformed, s.logSkipped)
		if err != nil {
			return nil, err
		}
		s.metrics.ContentFetched("article_collection", "ok")
		s.search.IndexArticles(items)
		return items, nil
	}
}

func (s *Service) articleBySlug(slug string) fetch.Fetcher[content.Article] {
	return func(ctx context.Context) (content.Article, error) {
		doc, err := s.source.FetchBySlug(ctx, content.VariantArticle, slug)
		if err != nil {
			s.metrics.ContentFetched("article", outcome(err))
			return content.Article{}, err
		}
		article, err := s.projector.ProjectArticle(doc)
		if err != nil {
			s.metrics.ContentFetched("article", "malformed")
			return content.Article{}, err
		}
		s.metrics.ContentFetched("article", "ok")
		return article, nil
	}
}

func (s *Service) portfolioCollection(q content.CollectionQuery) fetch.Fetcher[[]content.PortfolioEntry] {
	return func(ctx context.Context) ([]content.PortfolioEntry, error) {
		docs, err := s.source.FetchCollection(ctx, content.VariantPortfolio, q)
		if err != nil {
			s.metrics.ContentFetched("portfolio_collection", "error")
			return nil, err
		}
		items, err := s.projector.ProjectPortfolio(docs, content.SkipMalformed, s.logSkipped)
		if err != nil {
			return nil, err
		}
		s.metrics.ContentFetched("portfolio_collection", "ok")
		s.search.IndexPortfolio(items)
		return items, nil
	}
}

func (s *Service) portfolioBySlug(slug string) fetch.Fetcher[content.PortfolioEntry] {
	return func(ctx context.Context) (content.PortfolioEntry, error) {
		doc, err := s.source.FetchBySlug(ctx, content.VariantPortfolio, slug)
		if err != nil {
			s.metrics.ContentFetched("portfolio", outcome(err))
			return content.PortfolioEntry{}, err
		}
		entry, err := s.projector.ProjectPortfolioEntry(doc)
		if err != nil {
			s.metrics.ContentFetched("portfolio", "malformed")
			return content.PortfolioEntry{}, err
		}
		s.metrics.ContentFetched("portfolio", "ok")
		return entry, nil
	}
}

func (s *Service) logSkipped(err error) {
	s.log.Warn("skipping malformed document", zap.Error(err))
}

func outcome(err error) string {
	if errors.Is(err, content.ErrNotFound) {
		return "not_found"
	}
	return "error"
}

// CachedArticles feeds the search fallback without triggering a retrieval.
func (s *Service) CachedArticles() []content.Article {
	items, _ := s.articleLists.Peek(fetch.CollectionKey(content.VariantArticle, allQuery))
	return items
}

func (s *Service) CachedPortfolio() []content.PortfolioEntry {
	items, _ := s.portfolioLists.Peek(fetch.CollectionKey(content.VariantPortfolio, allQuery))
	return items
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) ExportArticle(ctx context.Context, slug string, format export.Format) (*export.Result, error) {
	detail, err := s.Article(ctx, slug, false)
	if err != nil {
		return nil, err
	}
	return s.export.Export(ctx, detail.Article, format)
}

func (s *Service) SubmitContact(ctx context.Context, in contact.Input) (contact.Receipt, error) {
	return s.contact.Submit(ctx, in)
}

func (s *Service) ListSubmissions(ctx context.Context) ([]store.Submission, error) {
	return s.contact.List(ctx)
}

func (s *Service) Reply(message string) string {
	return s.assistant.Reply(message)
}

// AdminConfigured reports whether admin sign-in is enabled.
func (s *Service) AdminConfigured() bool {
	return s.admin != nil && s.admin.IsConfigured() && s.tokens != nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (string, time.Time, error) {
	if !s.AdminConfigured() {
		return "", time.Time{}, authpw.ErrNotConfigured
	}
	subject, err := s.admin.SignIn(ctx, email, password)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.tokens.Issue(subject, string(rbac.RoleAdmin))
}

// PrincipalFromRequest resolves the caller. A missing token is a visitor;
// a present but invalid one is an error.
func (s *Service) PrincipalFromRequest(r *http.Request) (Principal, error) {
	if s.tokens == nil || strings.TrimSpace(r.Header.Get("Authorization")) == "" {
		return visitor, nil
	}
	claims, err := s.tokens.FromRequest(r)
	if err != nil {
		return Principal{}, err
	}
	return Principal{Subject: claims.Sub, Role: rbac.Normalize(claims.Role)}, nil
}

// Authorize checks action for p. Listing submissions is open when no admin
// credentials are configured.
func (s *Service) Authorize(p Principal, action rbac.Action) error {
	if rbac.Can(p.Role, action) {
		return nil
	}
	if action == rbac.ActionListSubmissions && !s.AdminConfigured() {
		return nil
	}
	if p.Subject == "" {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

// PurgeContent drops every cached query and the shared cache layer.
func (s *Service) PurgeContent(ctx context.Context) error {
	s.articleLists.InvalidateAll()
	s.articles.InvalidateAll()
	s.portfolioLists.InvalidateAll()
	s.portfolio.InvalidateAll()
	if s.purger != nil {
		if err := s.purger.Purge(ctx); err != nil {
			return fmt.Errorf("purge shared cache: %w", err)
		}
	}
	return nil
}

func (s *Service) PublishDocument(ctx context.Context, author string, variant content.Variant, doc content.RawDocument, message string) (gitrepo.CommitInfo, error) {
	if s.publisher == nil {
		return gitrepo.CommitInfo{}, domainError(http.StatusNotImplemented, "PUBLISH_UNAVAILABLE", "Publishing requires the git content backend", nil)
	}
	if !variant.Valid() {
		return gitrepo.CommitInfo{}, domainError(http.StatusBadRequest, "INVALID_VARIANT", "variant must be 'article' or 'portfolio'", nil)
	}
	// Reject documents the read path could not project.
	var err error
	switch variant {
	case content.VariantArticle:
		_, err = s.projector.ProjectArticle(doc)
	case content.VariantPortfolio:
		_, err = s.projector.ProjectPortfolioEntry(doc)
	}
	if err != nil {
		return gitrepo.CommitInfo{}, domainError(http.StatusUnprocessableEntity, "MALFORMED_DOCUMENT", err.Error(), nil)
	}

	commit, err := s.publisher.Publish(variant, doc, author, message)
	if err != nil {
		return gitrepo.CommitInfo{}, err
	}
	if err := s.PurgeContent(ctx); err != nil {
		s.log.Warn("purge after publish failed", zap.Error(err))
	}
	return commit, nil
}

func (s *Service) ContentHistory(limit int) ([]gitrepo.CommitInfo, error) {
	if s.publisher == nil {
		return nil, domainError(http.StatusNotImplemented, "PUBLISH_UNAVAILABLE", "History requires the git content backend", nil)
	}
	return s.publisher.History(limit)
}

// Ready runs every health check and reports per-check status.
func (s *Service) Ready(ctx context.Context) (bool, map[string]any) {
	ok := true
	checks := make(map[string]any, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			ok = false
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			continue
		}
		checks[name] = map[string]any{"status": "ok"}
	}
	return ok, checks
}
