package fetch

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"blackbox/api/internal/content"
)

// QueryKey identifies a cached retrieval. Two keys with the same variant,
// slug and parameters are equal regardless of parameter insertion order.
type QueryKey struct {
	Variant content.Variant
	Slug    string
	Params  map[string]string
}

// String is the canonical form, e.g. "article/ai-guide?featured=true&limit=3".
func (k QueryKey) String() string {
	var sb strings.Builder
	sb.WriteString(string(k.Variant))
	if k.Slug != "" {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(k.Slug))
	}
	if len(k.Params) == 0 {
		return sb.String()
	}
	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(k.Params[name]))
	}
	return sb.String()
}

// CollectionKey keys a collection query by its featured filter and limit.
func CollectionKey(variant content.Variant, q content.CollectionQuery) QueryKey {
	params := map[string]string{}
	if q.FeaturedOnly {
		params["featured"] = "true"
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	return QueryKey{Variant: variant, Params: params}
}

// SlugKey keys a single-document lookup.
func SlugKey(variant content.Variant, slug string) QueryKey {
	return QueryKey{Variant: variant, Slug: slug}
}
