// Package cache adds a redis read-through layer in front of the catalog.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-ordering-api/models"
	"food-ordering-api/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// restaurant:{id} -> JSON restaurant (no menu)
const keyRestaurant = "restaurant:%s"

const DefaultTTL = 5 * time.Minute

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// RestaurantCache caches restaurant lookups, which the order flow does on
// every placement and every status change. Redis failures fall back to the
// wrapped catalog.
type RestaurantCache struct {
	store.Catalog
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewRestaurantCache(next store.Catalog, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RestaurantCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RestaurantCache{
		Catalog: next,
		rdb:     rdb,
		ttl:     ttl,
		log:     log.With(zap.String("component", "restaurant_cache")),
	}
}

func (c *RestaurantCache) Restaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	key := fmt.Sprintf(keyRestaurant, id)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var r models.Restaurant
		if jerr := json.Unmarshal(raw, &r); jerr == nil {
			return &r, nil
		}
		c.log.Warn("discarding corrupt cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	r, err := c.Catalog.Restaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	if body, jerr := json.Marshal(r); jerr == nil {
		if serr := c.rdb.Set(ctx, key, body, c.ttl).Err(); serr != nil {
			c.log.Warn("cache write failed", zap.String("key", key), zap.Error(serr))
		}
	}
	return r, nil
}

// AssignOwner changes the owner then evicts the cached copy.
func (c *RestaurantCache) AssignOwner(ctx context.Context, restaurantID, ownerID string) error {
	if err := c.Catalog.AssignOwner(ctx, restaurantID, ownerID); err != nil {
		return err
	}
	c.evict(ctx, restaurantID)
	return nil
}

func (c *RestaurantCache) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	if err := c.Catalog.SaveRestaurant(ctx, r); err != nil {
		return err
	}
	c.evict(ctx, r.ID)
	return nil
}

func (c *RestaurantCache) evict(ctx context.Context, id string) {
	key := fmt.Sprintf(keyRestaurant, id)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Warn("cache evict failed", zap.String("key", key), zap.Error(err))
	}
}
