// Package definitioncache is a lookup-by-slug cache for published flows
// and a lookup-by-id cache for block definitions, backed by mongostore.
// Grounded on the reference ChatService's pair of *cache.Cache fields
// (conversationCache, summaryCache), each constructed with
// cache.New(ttl, ttl/2).
package definitioncache

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	cache "github.com/patrickmn/go-cache"

	"github.com/jeamxn/codeblock-bff/internal/models"
	"github.com/jeamxn/codeblock-bff/internal/mongostore"
)

// Cache fronts mongostore with an in-process TTL cache. An individual
// cache-layer error degrades silently to a direct durable-store read — it
// is never surfaced to the caller as a failure kind.
type Cache struct {
	store *mongostore.Store

	flowsBySlug *cache.Cache
	blocksByID  *cache.Cache

	// openapiSpecs memoises fetched upstream OpenAPI documents for the
	// authoring/ingestion path. The execute path never reads or writes it.
	openapiSpecs *cache.Cache
}

// New builds a Cache with the given TTLs (seconds), following the
// reference convention of a cleanup interval at half the TTL.
func New(store *mongostore.Store, ttlSeconds, openapiTTLSeconds int) *Cache {
	ttl := time.Duration(ttlSeconds) * time.Second
	openapiTTL := time.Duration(openapiTTLSeconds) * time.Second
	return &Cache{
		store:        store,
		flowsBySlug:  cache.New(ttl, ttl/2),
		blocksByID:   cache.New(ttl, ttl/2),
		openapiSpecs: cache.New(openapiTTL, openapiTTL/2),
	}
}

// GetFlowBySlug returns the published flow for slug, reading through the
// cache first. Only status=published flows are ever returned.
func (c *Cache) GetFlowBySlug(ctx context.Context, slug string) (*models.Flow, error) {
	if cached, found := c.flowsBySlug.Get(slug); found {
		return cached.(*models.Flow), nil
	}

	var flow models.Flow
	err := c.store.Collection(mongostore.CollectionFlows).
		FindOne(ctx, bson.M{"slug": slug, "status": models.FlowStatusPublished}).
		Decode(&flow)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		log.Printf("⚠️ [CACHE] durable read for flow slug=%s failed: %v", slug, err)
		return nil, fmt.Errorf("load flow %q: %w", slug, err)
	}

	c.flowsBySlug.Set(slug, &flow, cache.DefaultExpiration)
	return &flow, nil
}

// GetBlockDef returns the block definition for id, reading through cache.
func (c *Cache) GetBlockDef(ctx context.Context, id string) (*models.BlockDefinition, error) {
	if cached, found := c.blocksByID.Get(id); found {
		return cached.(*models.BlockDefinition), nil
	}

	var def models.BlockDefinition
	err := c.store.Collection(mongostore.CollectionBlocks).
		FindOne(ctx, bson.M{"_id": id}).
		Decode(&def)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		log.Printf("⚠️ [CACHE] durable read for block id=%s failed: %v", id, err)
		return nil, fmt.Errorf("load block %q: %w", id, err)
	}

	c.blocksByID.Set(id, &def, cache.DefaultExpiration)
	return &def, nil
}

// InvalidateFlow is called by the authoring layer after a flow mutation.
// The engine itself never calls this.
func (c *Cache) InvalidateFlow(slug string) {
	c.flowsBySlug.Delete(slug)
}

// InvalidateBlock is called by the authoring layer after a block
// mutation. The engine itself never calls this.
func (c *Cache) InvalidateBlock(id string) {
	c.blocksByID.Delete(id)
}

// OpenAPISpec returns a memoised upstream OpenAPI document body, if warm.
// Only the authoring/ingestion layer populates this via SetOpenAPISpec;
// the hot execute path never calls either method.
func (c *Cache) OpenAPISpec(urlHash string) (any, bool) {
	return c.openapiSpecs.Get(urlHash)
}

// SetOpenAPISpec populates the OpenAPI memoisation cache.
func (c *Cache) SetOpenAPISpec(urlHash string, doc any) {
	c.openapiSpecs.Set(urlHash, doc, cache.DefaultExpiration)
}
