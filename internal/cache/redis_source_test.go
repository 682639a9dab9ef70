package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackbox/api/internal/content"
)

type fakeSource struct {
	mu              sync.Mutex
	collectionCalls int
	slugCalls       int
	collectionErr   error
	slugErr         error
}

func (f *fakeSource) FetchCollection(_ context.Context, variant content.Variant, q content.CollectionQuery) ([]content.RawDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collectionCalls++
	if f.collectionErr != nil {
		return nil, f.collectionErr
	}
	return []content.RawDocument{
		{"_id": json.RawMessage(`"a1"`), "title": json.RawMessage(fmt.Sprintf(`"call %d"`, f.collectionCalls))},
	}, nil
}

func (f *fakeSource) FetchBySlug(_ context.Context, variant content.Variant, slug string) (content.RawDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slugCalls++
	if f.slugErr != nil {
		return nil, f.slugErr
	}
	return content.RawDocument{"_id": json.RawMessage(`"p1"`), "slug": json.RawMessage(`{"current":"` + slug + `"}`)}, nil
}

func setupTestCache(t *testing.T, next content.Source) (*Source, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client, err := NewClient("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return New(client, next, 5*time.Minute), s
}

func TestCollectionHitSkipsUpstream(t *testing.T) {
	upstream := &fakeSource{}
	c, _ := setupTestCache(t, upstream)
	ctx := context.Background()
	q := content.CollectionQuery{FeaturedOnly: true, Limit: 3}

	first, err := c.FetchCollection(ctx, content.VariantArticle, q)
	require.NoError(t, err)
	second, err := c.FetchCollection(ctx, content.VariantArticle, q)
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.collectionCalls)
	assert.Equal(t, first, second)

	// A different query shape is a different entry.
	_, err = c.FetchCollection(ctx, content.VariantArticle, content.CollectionQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.collectionCalls)
}

func TestEntriesExpire(t *testing.T) {
	upstream := &fakeSource{}
	c, s := setupTestCache(t, upstream)
	ctx := context.Background()

	_, err := c.FetchBySlug(ctx, content.VariantPortfolio, "bakery")
	require.NoError(t, err)
	assert.True(t, s.Exists("content:portfolio:slug:bakery"))

	s.FastForward(6 * time.Minute)
	doc, err := c.FetchBySlug(ctx, content.VariantPortfolio, "bakery")
	require.NoError(t, err)
	assert.Equal(t, "bakery", doc.Slug())
	assert.Equal(t, 2, upstream.slugCalls)
}

func TestErrorsAreNotCached(t *testing.T) {
	notFound := fmt.Errorf("article %q: %w", "gone", content.ErrNotFound)
	upstream := &fakeSource{slugErr: notFound, collectionErr: content.Retrieval(content.VariantArticle, "collection", errors.New("timeout"))}
	c, s := setupTestCache(t, upstream)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.FetchBySlug(ctx, content.VariantArticle, "gone")
		assert.Equal(t, notFound, err)
		_, err = c.FetchCollection(ctx, content.VariantArticle, content.CollectionQuery{})
		assert.True(t, errors.Is(err, content.ErrRetrievalFailed))
	}
	assert.Equal(t, 2, upstream.slugCalls)
	assert.Equal(t, 2, upstream.collectionCalls)
	assert.Empty(t, s.Keys())
}

func TestRedisOutageFallsThrough(t *testing.T) {
	upstream := &fakeSource{}
	c, s := setupTestCache(t, upstream)
	s.Close()

	docs, err := c.FetchCollection(context.Background(), content.VariantArticle, content.CollectionQuery{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, upstream.collectionCalls)
}

func TestCorruptEntryIsRefetched(t *testing.T) {
	upstream := &fakeSource{}
	c, s := setupTestCache(t, upstream)
	require.NoError(t, s.Set("content:article:slug:x", "{not json"))

	doc, err := c.FetchBySlug(context.Background(), content.VariantArticle, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Slug())
	assert.Equal(t, 1, upstream.slugCalls)
}

func TestPurge(t *testing.T) {
	upstream := &fakeSource{}
	c, s := setupTestCache(t, upstream)
	ctx := context.Background()
	require.NoError(t, s.Set("other:key", "keep"))

	_, _ = c.FetchBySlug(ctx, content.VariantArticle, "a")
	_, _ = c.FetchCollection(ctx, content.VariantArticle, content.CollectionQuery{})
	require.NoError(t, c.Purge(ctx))
	assert.Equal(t, []string{"other:key"}, s.Keys())
	require.NoError(t, c.Ping(ctx))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("not-a-url://")
	assert.Error(t, err)
}
