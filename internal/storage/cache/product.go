package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vuxmai/catalog-admin/internal/model"
)

// ErrMiss is returned when the requested product is not cached.
var ErrMiss = errors.New("cache miss")

// ProductCache is a cache-aside store for product rows, keyed by both id
// and slug so either lookup path can be served.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *ProductCache) GetByID(ctx context.Context, id uuid.UUID) (model.Product, error) {
	return c.get(ctx, idKey(id))
}

func (c *ProductCache) GetBySlug(ctx context.Context, slug string) (model.Product, error) {
	return c.get(ctx, slugKey(slug))
}

func (c *ProductCache) get(ctx context.Context, key string) (model.Product, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Product{}, ErrMiss
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("redis get: %w", err)
	}

	var product model.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return model.Product{}, fmt.Errorf("unmarshal cached product: %w", err)
	}

	return product, nil
}

func (c *ProductCache) Set(ctx context.Context, product model.Product) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, idKey(product.ID), raw, c.ttl)
	pipe.Set(ctx, slugKey(product.Slug), raw, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Invalidate removes both cache entries for a product. Every mutation calls
// this after its row write commits.
func (c *ProductCache) Invalidate(ctx context.Context, id uuid.UUID, slug string) error {
	if err := c.client.Del(ctx, idKey(id), slugKey(slug)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func idKey(id uuid.UUID) string {
	return "product:id:" + id.String()
}

func slugKey(slug string) string {
	return "product:slug:" + slug
}
