package cache

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"food-ordering-api/apperror"
	"food-ordering-api/models"
	"food-ordering-api/store"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// unreachable returns a client whose every command fails fast.
func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRestaurantCacheFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	st := store.NewGormStore(db)
	require.NoError(t, st.Catalog.SaveRestaurant(ctx, &models.Restaurant{ID: "r-1", Name: "Diner", IsOpen: true}))

	c := NewRestaurantCache(st.Catalog, unreachable(t), time.Minute, zap.NewNop())

	r, err := c.Restaurant(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "Diner", r.Name)

	require.NoError(t, c.AssignOwner(ctx, "r-1", "o-1"))
	r, err = c.Restaurant(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", r.OwnerID)

	_, err = c.Restaurant(ctx, "missing")
	assert.ErrorIs(t, err, apperror.NotFound)

	// calls not overridden go straight to the catalog
	owned, err := c.RestaurantsOwnedBy(ctx, "o-1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

// memoryHook answers GET, SET and DEL from a map so no redis server is needed.
type memoryHook struct {
	mu   sync.Mutex
	data map[string]string
}

func (h *memoryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("memoryHook: unexpected dial to %s", addr)
	}
}

func (h *memoryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *memoryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.StringCmd:
			v, ok := h.data[fmt.Sprint(args[1])]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		case *redis.StatusCmd:
			switch v := args[2].(type) {
			case []byte:
				h.data[fmt.Sprint(args[1])] = string(v)
			default:
				h.data[fmt.Sprint(args[1])] = fmt.Sprint(v)
			}
			c.SetVal("OK")
		case *redis.IntCmd:
			var n int64
			for _, k := range args[1:] {
				if _, ok := h.data[fmt.Sprint(k)]; ok {
					delete(h.data, fmt.Sprint(k))
					n++
				}
			}
			c.SetVal(n)
		default:
			return fmt.Errorf("memoryHook: unsupported command %s", cmd.Name())
		}
		return nil
	}
}

func (h *memoryHook) put(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data[key] = value
}

func (h *memoryHook) has(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.data[key]
	return ok
}

// countingCatalog counts restaurant reads that reach the backing store.
type countingCatalog struct {
	store.Catalog
	mu    sync.Mutex
	reads int
}

func (c *countingCatalog) Restaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Catalog.Restaurant(ctx, id)
}

func (c *countingCatalog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func TestRestaurantCacheServesHitsAndEvictsOnOwnerChange(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	st := store.NewGormStore(db)
	require.NoError(t, st.Catalog.SaveRestaurant(ctx, &models.Restaurant{ID: "r-1", OwnerID: "o-1", Name: "Diner", IsOpen: true}))

	hook := &memoryHook{data: map[string]string{}}
	rdb := redis.NewClient(&redis.Options{Addr: "cache.invalid:6379"})
	rdb.AddHook(hook)
	t.Cleanup(func() { _ = rdb.Close() })

	backing := &countingCatalog{Catalog: st.Catalog}
	c := NewRestaurantCache(backing, rdb, time.Minute, zap.NewNop())

	r, err := c.Restaurant(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", r.OwnerID)
	assert.Equal(t, 1, backing.count())
	assert.True(t, hook.has("restaurant:r-1"))

	r, err = c.Restaurant(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.count(), "second read should be a cache hit")
	assert.Equal(t, "o-1", r.OwnerID)
	assert.Equal(t, "Diner", r.Name)
	assert.True(t, r.IsOpen)

	require.NoError(t, c.AssignOwner(ctx, "r-1", "o-2"))
	assert.False(t, hook.has("restaurant:r-1"))

	r, err = c.Restaurant(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "o-2", r.OwnerID)
	assert.Equal(t, 2, backing.count())

	hook.put("restaurant:r-1", "{not json")
	r, err = c.Restaurant(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "o-2", r.OwnerID)
	assert.Equal(t, 3, backing.count())
}
