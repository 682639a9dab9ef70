package sanity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackbox/api/internal/content"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{ProjectID: "j96wu9wz", Dataset: "production", BaseURL: srv.URL, Token: "secret"}, srv.Client(), nil)
}

func TestFetchCollectionBuildsQueryAndSorts(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ms": 3, "result": [
			{"_id": "b", "publishedAt": "2024-01-01T00:00:00Z", "slug": {"current": "b"}},
			{"_id": "a", "publishedAt": "2024-01-01T00:00:00Z", "slug": {"current": "a"}},
			{"_id": "c", "publishedAt": "2024-02-01T00:00:00Z", "slug": {"current": "c"}}
		]}`))
	})

	docs, err := c.FetchCollection(context.Background(), content.VariantArticle, content.FeaturedQuery(content.VariantArticle))
	require.NoError(t, err)

	assert.Equal(t, "/v2024-01-01/data/query/production", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.True(t, strings.HasPrefix(gotQuery, `*[_type == "blogPost" && featured == true] | order(publishedAt desc, _id asc) [0...3] {`), gotQuery)

	require.Len(t, docs, 3)
	assert.Equal(t, "c", docs[0].ID())
	assert.Equal(t, "a", docs[1].ID())
	assert.Equal(t, "b", docs[2].ID())
}

func TestFetchCollectionEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": []}`))
	})
	docs, err := c.FetchCollection(context.Background(), content.VariantPortfolio, content.CollectionQuery{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestFetchBySlug(t *testing.T) {
	var gotSlug, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSlug = r.URL.Query().Get("$slug")
		gotQuery = r.URL.Query().Get("query")
		if gotSlug == `"missing"` {
			_, _ = w.Write([]byte(`{"result": null}`))
			return
		}
		_, _ = w.Write([]byte(`{"result": {"_id": "p1", "slug": {"current": "bakery"}, "title": "Bakery"}}`))
	})

	doc, err := c.FetchBySlug(context.Background(), content.VariantPortfolio, "bakery")
	require.NoError(t, err)
	assert.Equal(t, "p1", doc.ID())
	assert.Equal(t, `"bakery"`, gotSlug)
	assert.Contains(t, gotQuery, `*[_type == "portfolioProject" && slug.current == $slug][0]`)

	_, err = c.FetchBySlug(context.Background(), content.VariantPortfolio, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, content.ErrNotFound))
	assert.False(t, errors.Is(err, content.ErrRetrievalFailed))
}

func TestRetrievalFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "server error with description",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": {"description": "unknown dataset", "type": "queryParseError"}}`))
			},
			wantMsg: "unknown dataset",
		},
		{
			name: "plain 503",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			},
			wantMsg: "status 503",
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			wantMsg: "decode response",
		},
		{
			name: "wrong result shape",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"result": {"not": "a list"}}`))
			},
			wantMsg: "decode result",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.FetchCollection(context.Background(), content.VariantArticle, content.CollectionQuery{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, content.ErrRetrievalFailed))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestUnreachableHostIsRetrievalFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Config{ProjectID: "p", BaseURL: base}, nil, nil)
	_, err := c.FetchBySlug(context.Background(), content.VariantArticle, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, content.ErrRetrievalFailed))
	assert.False(t, errors.Is(err, content.ErrNotFound))
}

func TestCollectionQueryShapes(t *testing.T) {
	assert.Equal(t,
		`*[_type == "portfolioProject"] | order(completedAt desc, _id asc) `+portfolioFields,
		CollectionQuery(content.VariantPortfolio, content.CollectionQuery{}))
	assert.Equal(t, content.CollectionQuery{FeaturedOnly: true, Limit: 6}, content.FeaturedQuery(content.VariantPortfolio))
}

func TestDefaultHost(t *testing.T) {
	c := New(Config{ProjectID: "j96wu9wz", UseCDN: true}, nil, nil)
	assert.Equal(t, "https://j96wu9wz.apicdn.sanity.io", c.base)
	c = New(Config{ProjectID: "j96wu9wz"}, nil, nil)
	assert.Equal(t, "https://j96wu9wz.api.sanity.io", c.base)
	assert.Equal(t, content.ImageURLBuilder{ProjectID: "j96wu9wz", Dataset: "production"}, c.Images())
}
