// Package sanity reads site documents from the Sanity HTTP query API.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"blackbox/api/internal/content"
)

const maxErrorBody = 512

type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	UseCDN     bool
	Token      string
	Timeout    time.Duration
	// BaseURL overrides the derived API host, e.g. for tests.
	BaseURL string
}

// Client implements content.Source. It keeps no documents between calls.
type Client struct {
	cfg  Config
	base string
	http *http.Client
	log  *zap.Logger
}

func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Dataset == "" {
		cfg.Dataset = "production"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-01-01"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BaseURL
	if base == "" {
		host := "api"
		if cfg.UseCDN {
			host = "apicdn"
		}
		base = fmt.Sprintf("https://%s.%s.sanity.io", cfg.ProjectID, host)
	}
	return &Client{
		cfg:  cfg,
		base: strings.TrimRight(base, "/"),
		http: httpClient,
		log:  logger.Named("sanity"),
	}
}

// Images returns a URL builder for this project's assets.
func (c *Client) Images() content.ImageURLBuilder {
	return content.ImageURLBuilder{ProjectID: c.cfg.ProjectID, Dataset: c.cfg.Dataset}
}

func (c *Client) FetchCollection(ctx context.Context, variant content.Variant, q content.CollectionQuery) ([]content.RawDocument, error) {
	raw, err := c.Query(ctx, CollectionQuery(variant, q), nil)
	if err != nil {
		return nil, content.Retrieval(variant, "collection", err)
	}
	var docs []content.RawDocument
	if !isNullJSON(raw) {
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, content.Retrieval(variant, "collection", fmt.Errorf("decode result: %w", err))
		}
	}
	if docs == nil {
		docs = []content.RawDocument{}
	}
	content.SortDocuments(variant, docs)
	return docs, nil
}

func (c *Client) FetchBySlug(ctx context.Context, variant content.Variant, slug string) (content.RawDocument, error) {
	raw, err := c.Query(ctx, SlugQuery(variant), map[string]any{"slug": slug})
	if err != nil {
		return nil, content.Retrieval(variant, "slug", err)
	}
	if isNullJSON(raw) {
		return nil, fmt.Errorf("%s %q: %w", variant, slug, content.ErrNotFound)
	}
	var doc content.RawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, content.Retrieval(variant, "slug", fmt.Errorf("decode result: %w", err))
	}
	return doc, nil
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
}

// Query runs a GROQ query and returns the raw result member. Parameters
// are JSON encoded and bound as $name.
func (c *Client) Query(ctx context.Context, groq string, params map[string]any) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("query", groq)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s",
		c.base, url.PathEscape(c.cfg.APIVersion), url.PathEscape(c.cfg.Dataset), values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	c.log.Debug("query",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	var out queryResponse
	decodeErr := json.Unmarshal(body, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && out.Error != nil && out.Error.Description != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, out.Error.Description)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, maxErrorBody))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if out.Error != nil {
		return nil, errors.New(out.Error.Description)
	}
	return out.Result, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncate(body []byte, n int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
