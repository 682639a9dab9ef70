// Package content holds the typed view models for site documents and the
// projection from raw document-store payloads into them.
package content

import "time"

// Variant identifies a document namespace in the content store.
type Variant string

const (
	VariantArticle   Variant = "article"
	VariantPortfolio Variant = "portfolio"
)

// StoreType returns the document _type used by the content store.
func (v Variant) StoreType() string {
	switch v {
	case VariantArticle:
		return "blogPost"
	case VariantPortfolio:
		return "portfolioProject"
	default:
		return ""
	}
}

// DateField returns the field that orders documents of this variant.
func (v Variant) DateField() string {
	switch v {
	case VariantArticle:
		return "publishedAt"
	case VariantPortfolio:
		return "completedAt"
	default:
		return ""
	}
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantArticle || v == VariantPortfolio
}

type Category struct {
	Title string `json:"title"`
	Slug  string `json:"slug,omitempty"`
	Color string `json:"color,omitempty"`
}

type Author struct {
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Image    *Image `json:"image,omitempty"`
}

// Image is a resolved image reference. Renditions maps a rendition name
// (card, hero, og, ...) to a sized URL.
type Image struct {
	Ref        string            `json:"ref"`
	Alt        string            `json:"alt,omitempty"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	Renditions map[string]string `json:"renditions,omitempty"`
}

// URL returns the named rendition or an empty string.
func (i *Image) URL(rendition string) string {
	if i == nil {
		return ""
	}
	return i.Renditions[rendition]
}

type SEO struct {
	MetaTitle       string   `json:"metaTitle,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

type Article struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt"`
	Body          []Block    `json:"body,omitempty"`
	Author        *Author    `json:"author,omitempty"`
	Categories    []Category `json:"categories"`
	Tags          []string   `json:"tags"`
	PublishedAt   time.Time  `json:"publishedAt"`
	Featured      bool       `json:"featured"`
	FeaturedImage *Image     `json:"featuredImage,omitempty"`
	SEO           *SEO       `json:"seo,omitempty"`
}

// ListingFacets returns the category titles the article belongs to.
func (a Article) ListingFacets() []string {
	titles := make([]string, 0, len(a.Categories))
	for _, category := range a.Categories {
		titles = append(titles, category.Title)
	}
	return titles
}

// ListingText returns the fields free-text search runs against.
func (a Article) ListingText() []string {
	fields := make([]string, 0, 2+len(a.Tags))
	fields = append(fields, a.Title, a.Excerpt)
	return append(fields, a.Tags...)
}

func (a Article) IsFeatured() bool { return a.Featured }

type CaseStudy struct {
	Challenge string  `json:"challenge,omitempty"`
	Solution  string  `json:"solution,omitempty"`
	Results   string  `json:"results,omitempty"`
	Gallery   []Image `json:"gallery,omitempty"`
}

type Testimonial struct {
	Quote          string `json:"quote"`
	ClientName     string `json:"clientName,omitempty"`
	ClientPosition string `json:"clientPosition,omitempty"`
}

type PortfolioEntry struct {
	ID           string       `json:"id"`
	Slug         string       `json:"slug"`
	Title        string       `json:"title"`
	Client       string       `json:"client"`
	WebsiteURL   string       `json:"websiteUrl"`
	Description  string       `json:"description"`
	Technologies []string     `json:"technologies"`
	ProjectType  string       `json:"projectType"`
	CompletedAt  time.Time    `json:"completedAt"`
	Featured     bool         `json:"featured"`
	PreviewImage *Image       `json:"previewImage,omitempty"`
	CaseStudy    *CaseStudy   `json:"caseStudy,omitempty"`
	Testimonial  *Testimonial `json:"testimonial,omitempty"`
}

// ListingFacets returns the single project type as the facet membership.
func (p PortfolioEntry) ListingFacets() []string {
	if p.ProjectType == "" {
		return nil
	}
	return []string{p.ProjectType}
}

func (p PortfolioEntry) ListingText() []string {
	fields := make([]string, 0, 2+len(p.Technologies))
	fields = append(fields, p.Title, p.Description)
	return append(fields, p.Technologies...)
}

func (p PortfolioEntry) IsFeatured() bool { return p.Featured }
