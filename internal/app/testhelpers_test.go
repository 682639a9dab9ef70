package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"blackbox/api/internal/contact"
	"blackbox/api/internal/content"
	"blackbox/api/internal/store"
)

// fakeSource serves documents from memory and counts calls.
type fakeSource struct {
	mu        sync.Mutex
	docs      map[content.Variant][]content.RawDocument
	err       error
	calls     int
	slugCalls int
}

func (f *fakeSource) FetchCollection(_ context.Context, variant content.Variant, q content.CollectionQuery) ([]content.RawDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, content.Retrieval(variant, "collection", f.err)
	}
	docs := append([]content.RawDocument(nil), f.docs[variant]...)
	content.SortDocuments(variant, docs)
	return content.Select(docs, q), nil
}

func (f *fakeSource) FetchBySlug(_ context.Context, variant content.Variant, slug string) (content.RawDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slugCalls++
	if f.err != nil {
		return nil, content.Retrieval(variant, "slug", f.err)
	}
	for _, doc := range f.docs[variant] {
		if doc.Slug() == slug {
			return doc, nil
		}
	}
	return nil, content.ErrNotFound
}

func rawDoc(t *testing.T, fields map[string]any) content.RawDocument {
	t.Helper()
	doc := content.RawDocument{}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", k, err)
		}
		doc[k] = raw
	}
	return doc
}

func articleDoc(t *testing.T, id, slug, title, published string, featured bool, categories ...string) content.RawDocument {
	cats := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		cats = append(cats, map[string]any{"title": c})
	}
	return rawDoc(t, map[string]any{
		"_id":         id,
		"slug":        map[string]string{"current": slug},
		"title":       title,
		"excerpt":     "About " + title,
		"publishedAt": published,
		"featured":    featured,
		"categories":  cats,
		"tags":        []string{"tech"},
		"content": []map[string]any{{
			"_type":    "block",
			"_key":     "b1",
			"style":    "normal",
			"children": []map[string]any{{"_type": "span", "text": "Body of " + title}},
		}},
	})
}

func portfolioDoc(t *testing.T, id, slug, title, projectType, completed string, featured bool) content.RawDocument {
	return rawDoc(t, map[string]any{
		"_id":          id,
		"slug":         map[string]string{"current": slug},
		"title":        title,
		"client":       "Client " + title,
		"description":  "Project " + title,
		"technologies": []string{"Go"},
		"projectType":  projectType,
		"completedAt":  completed,
		"featured":     featured,
	})
}

func testSource(t *testing.T) *fakeSource {
	return &fakeSource{docs: map[content.Variant][]content.RawDocument{
		content.VariantArticle: {
			articleDoc(t, "a1", "ai-for-small-business", "AI for Small Business", "2024-03-01T00:00:00Z", true, "AI"),
			articleDoc(t, "a2", "network-basics", "Network Basics", "2024-02-01T00:00:00Z", false, "IT"),
			articleDoc(t, "a3", "chatbots", "Chatbots", "2024-01-01T00:00:00Z", false, "AI"),
			rawDoc(t, map[string]any{"_id": "broken", "title": "No slug"}),
		},
		content.VariantPortfolio: {
			portfolioDoc(t, "p1", "dental-site", "Dental Site", "Web", "2024-01-10", true),
			portfolioDoc(t, "p2", "inventory-app", "Inventory App", "Software", "2023-11-02", false),
		},
	}}
}

type testEnv struct {
	source  *fakeSource
	store   *store.MemoryStore
	service *Service
	server  *HTTPServer
}

func newTestEnv(t *testing.T, src *fakeSource, mutate func(*Deps), opts ...ServerOption) *testEnv {
	t.Helper()
	memory := store.NewMemoryStore()
	deps := Deps{
		Source:  src,
		Site:    content.Site{Name: "Blackbox Logic", URL: "https://blkboxlogic.com"},
		Contact: contact.NewService(memory, nil),
	}
	if mutate != nil {
		mutate(&deps)
	}
	svc := NewService(deps)
	return &testEnv{source: src, store: memory, service: svc, server: NewHTTPServer(svc, "*", opts...)}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}
