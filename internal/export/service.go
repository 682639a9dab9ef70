package export

import (
	"context"
	"fmt"
	"html/template"

	"blackbox/api/internal/content"

	"go.uber.org/zap"
)

// Converter turns rendered article HTML into another format.
type Converter interface {
	Convert(ctx context.Context, html, title string) (*Result, error)
}

// Recorder counts rendered exports.
type Recorder interface {
	ExportRendered(format, result string)
}

// Service renders articles for download.
type Service struct {
	site    content.Site
	pdf     Converter
	docx    Converter
	log     *zap.Logger
	metrics Recorder
}

func NewService(site content.Site, pdf, docx Converter, logger *zap.Logger, metrics Recorder) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{site: site, pdf: pdf, docx: docx, log: logger.Named("export"), metrics: metrics}
}

// Export renders article in the requested format.
func (s *Service) Export(ctx context.Context, article content.Article, format Format) (*Result, error) {
	html, err := s.RenderHTML(article)
	if err != nil {
		s.record(format, "error")
		return nil, fmt.Errorf("render template: %w", err)
	}

	var result *Result
	switch format {
	case FormatHTML:
		result = &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(article.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}
	case FormatPDF:
		result, err = s.convert(ctx, s.pdf, ErrPDFDependencyMissing, html, article.Title)
	case FormatDOCX:
		result, err = s.convert(ctx, s.docx, ErrDOCXDependencyMissing, html, article.Title)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		s.record(format, "error")
		s.log.Warn("export failed", zap.String("slug", article.Slug), zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}
	s.record(format, "ok")
	return result, nil
}

func (s *Service) convert(ctx context.Context, c Converter, missing error, html, title string) (*Result, error) {
	if c == nil {
		return nil, missing
	}
	return c.Convert(ctx, html, title)
}

// RenderHTML builds the standalone article page.
func (s *Service) RenderHTML(article content.Article) (string, error) {
	meta := content.ResolveArticleSEO(s.site, article)
	data := TemplateData{
		SiteName:    s.site.Name,
		Title:       article.Title,
		Description: meta.Description,
		Canonical:   meta.Canonical,
		PublishedAt: article.PublishedAt,
		Categories:  article.ListingFacets(),
		HeroImage:   article.FeaturedImage.URL("hero"),
		ContentHTML: template.HTML(BlocksToHTML(article.Body)),
	}
	if article.Author != nil {
		data.Author = article.Author.Name
	}
	return RenderArticleHTML(data)
}

func (s *Service) record(format Format, result string) {
	if s.metrics != nil {
		s.metrics.ExportRendered(string(format), result)
	}
}
