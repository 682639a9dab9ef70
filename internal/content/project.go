package content

import (
	"encoding/json"
	"strings"
)

// MalformedPolicy decides what bulk projection does with a bad document.
type MalformedPolicy int

const (
	// SkipMalformed drops the document and reports it to the skip callback.
	SkipMalformed MalformedPolicy = iota
	// AbortOnMalformed fails the whole batch on the first bad document.
	AbortOnMalformed
)

// Projector maps raw documents to view models.
type Projector struct {
	Images ImageURLBuilder
}

func NewProjector(images ImageURLBuilder) Projector {
	return Projector{Images: images}
}

func (p Projector) reader(variant Variant, doc RawDocument) (*fieldReader, string, error) {
	id := strings.TrimSpace(doc.ID())
	r := &fieldReader{doc: doc, variant: variant, id: id}
	if id == "" {
		return nil, "", &MalformedError{Variant: variant, Field: "_id", Reason: "is required"}
	}
	slug := doc.Slug()
	if slug == "" {
		return nil, "", &MalformedError{Variant: variant, ID: id, Field: "slug", Reason: "is required"}
	}
	return r, slug, nil
}

type rawCategory struct {
	Title string          `json:"title"`
	Slug  json.RawMessage `json:"slug"`
	Color json.RawMessage `json:"color"`
}

type rawAuthor struct {
	Name     string          `json:"name"`
	Position string          `json:"position"`
	Bio      json.RawMessage `json:"bio"`
	Image    json.RawMessage `json:"image"`
}

// ProjectArticle maps one raw blog post.
func (p Projector) ProjectArticle(doc RawDocument) (Article, error) {
	r, slug, err := p.reader(VariantArticle, doc)
	if err != nil {
		return Article{}, err
	}

	article := Article{
		ID:          r.id,
		Slug:        slug,
		Title:       r.str("title"),
		Excerpt:     r.str("excerpt"),
		Tags:        r.strs("tags"),
		PublishedAt: r.date("publishedAt"),
		Featured:    r.boolean("featured"),
		Categories:  []Category{},
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}

	if raw, ok := doc["content"]; ok {
		blocks, valid := p.Images.projectBlocks(raw)
		if !valid {
			r.fail("content", "has an unexpected shape")
		}
		article.Body = blocks
	}

	var categories []rawCategory
	if r.decode("categories", &categories) {
		for _, c := range categories {
			if strings.TrimSpace(c.Title) == "" {
				continue
			}
			article.Categories = append(article.Categories, Category{
				Title: c.Title,
				Slug:  decodeSlug(c.Slug),
				Color: decodeColor(c.Color),
			})
		}
	}

	var author rawAuthor
	if r.decode("author", &author) && strings.TrimSpace(author.Name) != "" {
		bio, _ := p.Images.projectBlocks(author.Bio)
		article.Author = &Author{
			Name:     author.Name,
			Position: author.Position,
			Bio:      BlocksText(bio),
			Image:    p.Images.resolveImage(author.Image, AvatarRenditions),
		}
	}

	article.FeaturedImage = p.Images.resolveImage(doc["featuredImage"], ArticleRenditions)

	var seo SEO
	if r.decode("seo", &seo) && (seo.MetaTitle != "" || seo.MetaDescription != "" || len(seo.Keywords) > 0) {
		article.SEO = &seo
	}

	if r.err != nil {
		return Article{}, r.err
	}
	return article, nil
}

type rawCaseStudy struct {
	Challenge        string            `json:"challenge"`
	Solution         string            `json:"solution"`
	Results          string            `json:"results"`
	AdditionalImages []json.RawMessage `json:"additionalImages"`
}

// ProjectPortfolioEntry maps one raw portfolio project.
func (p Projector) ProjectPortfolioEntry(doc RawDocument) (PortfolioEntry, error) {
	r, slug, err := p.reader(VariantPortfolio, doc)
	if err != nil {
		return PortfolioEntry{}, err
	}

	entry := PortfolioEntry{
		ID:           r.id,
		Slug:         slug,
		Title:        r.str("title"),
		Client:       r.str("client"),
		WebsiteURL:   r.str("websiteUrl"),
		Description:  r.str("description"),
		Technologies: r.strs("technologies"),
		ProjectType:  r.str("projectType"),
		CompletedAt:  r.date("completedAt"),
		Featured:     r.boolean("featured"),
	}
	if entry.Technologies == nil {
		entry.Technologies = []string{}
	}
	entry.PreviewImage = p.Images.resolveImage(doc["previewImage"], PortfolioRenditions)

	var cs rawCaseStudy
	if r.decode("caseStudy", &cs) {
		study := &CaseStudy{Challenge: cs.Challenge, Solution: cs.Solution, Results: cs.Results}
		for _, raw := range cs.AdditionalImages {
			if img := p.Images.resolveImage(raw, GalleryRenditions); img != nil {
				study.Gallery = append(study.Gallery, *img)
			}
		}
		if study.Challenge != "" || study.Solution != "" || study.Results != "" || len(study.Gallery) > 0 {
			entry.CaseStudy = study
		}
	}

	var testimonial Testimonial
	if r.decode("testimonial", &testimonial) && strings.TrimSpace(testimonial.Quote) != "" {
		entry.Testimonial = &testimonial
	}

	if r.err != nil {
		return PortfolioEntry{}, r.err
	}
	return entry, nil
}

// ProjectArticles maps a batch. Under SkipMalformed, onSkip (if set) sees
// every dropped document's error.
func (p Projector) ProjectArticles(docs []RawDocument, policy MalformedPolicy, onSkip func(error)) ([]Article, error) {
	return projectAll(docs, p.ProjectArticle, policy, onSkip)
}

// ProjectPortfolio maps a batch of portfolio projects.
func (p Projector) ProjectPortfolio(docs []RawDocument, policy MalformedPolicy, onSkip func(error)) ([]PortfolioEntry, error) {
	return projectAll(docs, p.ProjectPortfolioEntry, policy, onSkip)
}

func projectAll[T any](docs []RawDocument, project func(RawDocument) (T, error), policy MalformedPolicy, onSkip func(error)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := project(doc)
		if err != nil {
			if policy == AbortOnMalformed {
				return nil, err
			}
			if onSkip != nil {
				onSkip(err)
			}
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
