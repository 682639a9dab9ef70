package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackbox/api/internal/content"
)

func TestViewLifecycle(t *testing.T) {
	c := NewController[string](Options{})
	f := &countingFetcher{values: []string{"v1"}}

	v := c.View(testKey, f.fetch)
	assert.Equal(t, StatusIdle, v.State().Status)

	st := v.Load(context.Background())
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, "v1", st.Data)

	// A second consumer hits the cache directly.
	other := c.View(testKey, f.fetch)
	st = other.Load(context.Background())
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestClosedViewDiscardsLateResult(t *testing.T) {
	c := NewController[string](Options{})
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := func(context.Context) (string, error) {
		close(started)
		<-release
		return "late", nil
	}

	v := c.View(testKey, fetcher)
	done := make(chan State[string], 1)
	go func() { done <- v.Load(context.Background()) }()
	<-started
	assert.Equal(t, StatusLoading, v.State().Status)

	v.Close()
	close(release)
	st := <-done
	assert.Equal(t, StatusLoading, st.Status)
	assert.Equal(t, StatusLoading, v.State().Status)

	// The shared entry still got the payload.
	require.Eventually(t, func() bool {
		return c.State(testKey).Status == StatusReady
	}, time.Second, 5*time.Millisecond)
}

func TestQueryKeyIsOrderIndependent(t *testing.T) {
	a := QueryKey{Variant: content.VariantPortfolio, Params: map[string]string{}}
	a.Params["limit"] = "6"
	a.Params["featured"] = "true"
	b := QueryKey{Variant: content.VariantPortfolio, Params: map[string]string{}}
	b.Params["featured"] = "true"
	b.Params["limit"] = "6"

	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, "portfolio?featured=true&limit=6", a.String())
	assert.Equal(t, a.String(), CollectionKey(content.VariantPortfolio, content.CollectionQuery{Limit: 6, FeaturedOnly: true}).String())
	assert.Equal(t, "article/my%20post", SlugKey(content.VariantArticle, "my post").String())
	assert.Equal(t, "article", CollectionKey(content.VariantArticle, content.CollectionQuery{}).String())
}
