// Package cache implements the plan cache: a short-circuit in front of
// intent extraction and query planning, keyed by exact query hash and
// by embedding similarity, generalizing the teacher's in-memory
// state-caching shape to the persisted, confidence-gated CachedPlan
// record spec §4.2/§5 describes.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"toolsearch/pkg/model"
	"toolsearch/pkg/vectorstore"
)

// PlansCollectionName is the vector collection the cache uses to store
// query embeddings for approximate-nearest-neighbor similarity lookup.
const PlansCollectionName = "plans"

// defaultSimilarityThreshold and defaultConfidenceThreshold mirror the
// defaults named in spec §6's configuration table.
const (
	defaultSimilarityThreshold = 0.92
	defaultConfidenceThreshold = 0.5
)

// staleUsageThreshold and staleTTL implement the eviction rule: a plan
// used fewer than 5 times expires one year after creation; a plan used
// 5 or more times is treated as durably useful and never expires.
const (
	staleUsageThreshold = 5
	staleTTL            = 365 * 24 * time.Hour
)

// Clock returns the current time; overridden in tests for determinism.
type Clock func() time.Time

// Cache is the plan cache: an exact-match in-memory index plus an
// approximate-match index delegated to a vector store.
type Cache struct {
	mu      sync.RWMutex
	byHash  map[string]*model.CachedPlan

	store   vectorstore.Store
	now     Clock
	logger  *zap.Logger

	similarityThreshold float32
	confidenceThreshold float64
	schemaVersion       string
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithSimilarityThreshold overrides the ANN cosine-similarity cutoff
// used by Lookup's fuzzy path.
func WithSimilarityThreshold(t float32) Option {
	return func(c *Cache) { c.similarityThreshold = t }
}

// WithConfidenceThreshold overrides the minimum intent confidence a
// plan must have been built from in order to be cached.
func WithConfidenceThreshold(t float64) Option {
	return func(c *Cache) { c.confidenceThreshold = t }
}

// WithClock overrides the cache's notion of "now", for deterministic
// TTL-eviction tests.
func WithClock(now Clock) Option {
	return func(c *Cache) { c.now = now }
}

// New builds a Cache backed by store for similarity lookup. schemaVersion
// is compared against every cached entry's SchemaVersion on read: a
// mismatch (the domain schema changed since the entry was written)
// forces a miss regardless of similarity.
func New(store vectorstore.Store, schemaVersion string, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		byHash:              make(map[string]*model.CachedPlan),
		store:               store,
		now:                 time.Now,
		logger:              logger,
		similarityThreshold: defaultSimilarityThreshold,
		confidenceThreshold: defaultConfidenceThreshold,
		schemaVersion:       schemaVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HashQuery returns the deterministic exact-match key for a raw query
// string: lowercased and whitespace-trimmed before hashing, so that
// trivially equivalent queries ("Free CLI tool" vs "free cli tool ")
// still hit.
func HashQuery(query string) string {
	sum := md5.Sum([]byte(normalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// CacheType labels how a Lookup hit was satisfied.
const (
	CacheTypeExact   = "exact"
	CacheTypeSimilar = "similar"
	CacheTypeMiss    = ""
)

// Lookup returns a cached plan for query, first by exact hash, then by
// embedding similarity against the plans collection, or a miss if
// neither hits. A stale (TTL-expired) or schema-version-mismatched
// entry is treated as a miss and is not returned. The second return
// value names which path produced the hit.
func (c *Cache) Lookup(ctx context.Context, query string, queryEmbedding []float32) (*model.CachedPlan, string, error) {
	if plan := c.lookupExact(query); plan != nil {
		c.touch(plan)
		return plan, CacheTypeExact, nil
	}

	if len(queryEmbedding) == 0 || c.store == nil {
		return nil, CacheTypeMiss, nil
	}

	resp, err := c.store.Search(ctx, &vectorstore.SearchRequest{
		CollectionName: PlansCollectionName,
		Vector:         queryEmbedding,
		TopK:           1,
		MinScore:       c.similarityThreshold,
	})
	if err != nil {
		// A broken similarity index degrades to a cache miss rather than
		// failing the request: the pipeline still works without the cache.
		c.logger.Warn("plan cache similarity lookup failed", zap.Error(err))
		return nil, CacheTypeMiss, nil
	}
	if len(resp.Documents) == 0 {
		return nil, CacheTypeMiss, nil
	}

	c.mu.RLock()
	plan, ok := c.byHash[resp.Documents[0].ID]
	c.mu.RUnlock()
	if !ok || c.isStale(plan) || plan.Confidence < c.confidenceThreshold {
		return nil, CacheTypeMiss, nil
	}
	c.touch(plan)
	return plan, CacheTypeSimilar, nil
}

func (c *Cache) lookupExact(query string) *model.CachedPlan {
	hash := HashQuery(query)
	c.mu.RLock()
	plan, ok := c.byHash[hash]
	c.mu.RUnlock()
	if !ok || c.isStale(plan) {
		return nil
	}
	return plan
}

// isStale implements the eviction rule described on staleUsageThreshold
// and staleTTL, and treats an entry written under a different schema
// version as stale.
func (c *Cache) isStale(plan *model.CachedPlan) bool {
	if plan.SchemaVersion != c.schemaVersion {
		return true
	}
	if plan.UsageCount >= staleUsageThreshold {
		return false
	}
	age := c.now().Sub(time.Unix(plan.CreatedAt, 0))
	return age > staleTTL
}

func (c *Cache) touch(plan *model.CachedPlan) {
	c.mu.Lock()
	plan.UsageCount++
	plan.LastUsed = c.now().Unix()
	c.mu.Unlock()
}

// Store writes a (query, intent, plan) triple to the cache, gated on
// intent.Confidence meeting the configured threshold: low-confidence
// intents are not cached, since a wrong plan served repeatedly is worse
// than recomputing it. A write to an existing hash only replaces the
// entry when the new confidence is not lower than what is already
// cached, so a lucky low-confidence overwrite can't regress a good
// cached plan.
func (c *Cache) Store(ctx context.Context, query string, queryEmbedding []float32, intent *model.IntentState, plan *model.QueryPlan) error {
	if intent.Confidence < c.confidenceThreshold {
		return nil
	}

	hash := HashQuery(query)
	now := c.now()

	c.mu.Lock()
	existing, ok := c.byHash[hash]
	if ok && existing.Confidence > intent.Confidence {
		c.mu.Unlock()
		return nil
	}
	entry := &model.CachedPlan{
		ID:             hash,
		QueryHash:      hash,
		OriginalQuery:  query,
		QueryEmbedding: queryEmbedding,
		IntentState:    *intent,
		ExecutionPlan:  *plan,
		SchemaVersion:  c.schemaVersion,
		UsageCount:     0,
		LastUsed:       now.Unix(),
		CreatedAt:      now.Unix(),
		Confidence:     intent.Confidence,
	}
	if ok {
		entry.UsageCount = existing.UsageCount
		entry.CreatedAt = existing.CreatedAt
	}
	c.byHash[hash] = entry
	c.mu.Unlock()

	if c.store == nil || len(queryEmbedding) == 0 {
		return nil
	}
	_, err := c.store.Insert(ctx, &vectorstore.InsertRequest{
		CollectionName: PlansCollectionName,
		Documents: []vectorstore.Document{{
			ID:        hash,
			Embedding: queryEmbedding,
			Metadata:  map[string]interface{}{"query": query},
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: indexing plan embedding: %v", model.ErrStore, err)
	}
	return nil
}
