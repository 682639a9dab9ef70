package content

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// RawDocument is an undecoded document as returned by the store. Keys are
// top-level field names.
type RawDocument map[string]json.RawMessage

// CollectionQuery shapes a collection fetch. Order is always the variant's
// date field descending with ties broken by id ascending.
type CollectionQuery struct {
	Limit        int
	FeaturedOnly bool
}

// Featured collections are capped the way the site's home page shows them.
const (
	FeaturedArticleLimit   = 3
	FeaturedPortfolioLimit = 6
)

// FeaturedQuery is the collection query used for the home page teasers.
func FeaturedQuery(variant Variant) CollectionQuery {
	limit := FeaturedArticleLimit
	if variant == VariantPortfolio {
		limit = FeaturedPortfolioLimit
	}
	return CollectionQuery{FeaturedOnly: true, Limit: limit}
}

// Source is a read-only document store.
type Source interface {
	FetchCollection(ctx context.Context, variant Variant, q CollectionQuery) ([]RawDocument, error)
	FetchBySlug(ctx context.Context, variant Variant, slug string) (RawDocument, error)
}

// ID returns the document _id or "".
func (d RawDocument) ID() string {
	return decodeString(d, "_id")
}

// Slug returns slug.current, accepting a bare string too.
func (d RawDocument) Slug() string {
	return decodeSlug(d["slug"])
}

// Featured reports the featured flag. It decodes the field the same way
// projection does, so a value projection rejects is an error here too.
func (d RawDocument) Featured() (bool, error) {
	var featured bool
	_, err := decodeField(d, "featured", &featured)
	return featured, err
}

// SortKey returns the parsed ordering date. Unparseable values sort last.
func (d RawDocument) SortKey(variant Variant) time.Time {
	t, _ := parseDate(decodeString(d, variant.DateField()))
	return t
}

// SortDocuments orders documents newest first, ties by id ascending. Sources
// that cannot sort server-side use it to honour the ordering contract.
func SortDocuments(variant Variant, docs []RawDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := docs[i].SortKey(variant), docs[j].SortKey(variant)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return strings.Compare(docs[i].ID(), docs[j].ID()) < 0
	})
}

// Select applies a CollectionQuery to an already ordered slice.
func Select(docs []RawDocument, q CollectionQuery) []RawDocument {
	out := make([]RawDocument, 0, len(docs))
	for _, doc := range docs {
		// A malformed flag is kept so projection reports the document.
		if featured, err := doc.Featured(); q.FeaturedOnly && err == nil && !featured {
			continue
		}
		out = append(out, doc)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}
