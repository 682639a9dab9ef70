package sanity

import (
	"fmt"
	"strings"

	"blackbox/api/internal/content"
)

const (
	articleListFields = `{
  _id,
  title,
  slug,
  excerpt,
  featuredImage,
  publishedAt,
  author->{name, position, image},
  categories[]->{title, slug, color},
  tags,
  featured
}`
	articleDetailFields = `{
  _id,
  title,
  slug,
  excerpt,
  featuredImage,
  content,
  publishedAt,
  author->{name, position, image, bio},
  categories[]->{title, slug, color},
  tags,
  featured,
  seo
}`
	portfolioFields = `{
  _id,
  title,
  slug,
  client,
  websiteUrl,
  previewImage,
  description,
  technologies,
  projectType,
  completedAt,
  featured,
  caseStudy,
  testimonial
}`
)

func listFields(variant content.Variant) string {
	if variant == content.VariantArticle {
		return articleListFields
	}
	return portfolioFields
}

func detailFields(variant content.Variant) string {
	if variant == content.VariantArticle {
		return articleDetailFields
	}
	return portfolioFields
}

// CollectionQuery builds the GROQ for a collection fetch.
func CollectionQuery(variant content.Variant, q content.CollectionQuery) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `*[_type == %q`, variant.StoreType())
	if q.FeaturedOnly {
		sb.WriteString(` && featured == true`)
	}
	fmt.Fprintf(&sb, `] | order(%s desc, _id asc)`, variant.DateField())
	if q.Limit > 0 {
		fmt.Fprintf(&sb, ` [0...%d]`, q.Limit)
	}
	sb.WriteString(" ")
	sb.WriteString(listFields(variant))
	return sb.String()
}

// SlugQuery builds the GROQ for a single document; $slug is bound separately.
func SlugQuery(variant content.Variant) string {
	return fmt.Sprintf(`*[_type == %q && slug.current == $slug][0] %s`, variant.StoreType(), detailFields(variant))
}
