package content

import (
	"strings"
)

// PageMeta is the resolved head metadata for a detail page.
type PageMeta struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Keywords      string `json:"keywords,omitempty"`
	Canonical     string `json:"canonical"`
	OGTitle       string `json:"ogTitle"`
	OGDescription string `json:"ogDescription"`
	OGImage       string `json:"ogImage,omitempty"`
}

// Site names the public site the metadata points at.
type Site struct {
	Name string
	URL  string
}

func (s Site) canonical(section, slug string) string {
	return strings.TrimRight(s.URL, "/") + "/" + section + "/" + slug
}

// ResolveArticleSEO prefers the article's own overrides and falls back to
// its title, excerpt and tags.
func ResolveArticleSEO(site Site, a Article) PageMeta {
	meta := PageMeta{
		Title:         a.Title + " | " + site.Name + " Blog",
		Description:   a.Excerpt,
		Keywords:      strings.Join(a.Tags, ", "),
		Canonical:     site.canonical("blog", a.Slug),
		OGTitle:       a.Title,
		OGDescription: a.Excerpt,
		OGImage:       a.FeaturedImage.URL("og"),
	}
	if a.SEO == nil {
		return meta
	}
	if a.SEO.MetaTitle != "" {
		meta.Title = a.SEO.MetaTitle
	}
	if a.SEO.MetaDescription != "" {
		meta.Description = a.SEO.MetaDescription
	}
	if len(a.SEO.Keywords) > 0 {
		meta.Keywords = strings.Join(a.SEO.Keywords, ", ")
	}
	return meta
}

func ResolvePortfolioSEO(site Site, p PortfolioEntry) PageMeta {
	heading := p.Title
	if p.Client != "" {
		heading += " - " + p.Client
	}
	keywords := append([]string{}, p.Technologies...)
	if p.ProjectType != "" {
		keywords = append(keywords, p.ProjectType)
	}
	keywords = append(keywords, "portfolio", "case study")
	return PageMeta{
		Title:         heading + " | " + site.Name + " Portfolio",
		Description:   p.Description,
		Keywords:      strings.Join(keywords, ", "),
		Canonical:     site.canonical("portfolio", p.Slug),
		OGTitle:       heading,
		OGDescription: p.Description,
		OGImage:       p.PreviewImage.URL("og"),
	}
}
