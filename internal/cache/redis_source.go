// Package cache keeps raw content query results in Redis so that several
// API processes share one upstream fetch per freshness window.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"blackbox/api/internal/content"
)

const defaultPrefix = "content:"

// Recorder receives lookup outcomes (hit, miss, error).
type Recorder interface {
	CacheLookup(cache, result string)
}

// Source decorates a content.Source. Wrapped-source errors are returned
// unchanged and never stored; Redis failures degrade to a direct fetch.
type Source struct {
	next    content.Source
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	log     *zap.Logger
	metrics Recorder
}

type Option func(*Source)

func WithPrefix(prefix string) Option {
	return func(s *Source) { s.prefix = prefix }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Source) { s.log = log }
}

func WithRecorder(r Recorder) Option {
	return func(s *Source) { s.metrics = r }
}

// NewClient parses redisURL and checks the connection.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func New(client *redis.Client, next content.Source, ttl time.Duration, opts ...Option) *Source {
	s := &Source{
		next:   next,
		client: client,
		prefix: defaultPrefix,
		ttl:    ttl,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) collectionKey(variant content.Variant, q content.CollectionQuery) string {
	return s.prefix + string(variant) + ":collection:featured=" + strconv.FormatBool(q.FeaturedOnly) + ":limit=" + strconv.Itoa(q.Limit)
}

func (s *Source) slugKey(variant content.Variant, slug string) string {
	return s.prefix + string(variant) + ":slug:" + slug
}

func (s *Source) FetchCollection(ctx context.Context, variant content.Variant, q content.CollectionQuery) ([]content.RawDocument, error) {
	key := s.collectionKey(variant, q)
	var docs []content.RawDocument
	if s.lookup(ctx, key, &docs) {
		return docs, nil
	}
	docs, err := s.next.FetchCollection(ctx, variant, q)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, docs)
	return docs, nil
}

func (s *Source) FetchBySlug(ctx context.Context, variant content.Variant, slug string) (content.RawDocument, error) {
	key := s.slugKey(variant, slug)
	var doc content.RawDocument
	if s.lookup(ctx, key, &doc) {
		return doc, nil
	}
	doc, err := s.next.FetchBySlug(ctx, variant, slug)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, doc)
	return doc, nil
}

// Purge drops every cached entry under the prefix.
func (s *Source) Purge(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

func (s *Source) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Source) lookup(ctx context.Context, key string, out any) bool {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.record("miss")
		return false
	}
	if err != nil {
		s.log.Warn("redis lookup failed, fetching upstream", zap.String("key", key), zap.Error(err))
		s.record("error")
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		s.record("error")
		return false
	}
	s.record("hit")
	return true
}

func (s *Source) store(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.log.Warn("redis store failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Source) record(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookup("redis", result)
	}
}
