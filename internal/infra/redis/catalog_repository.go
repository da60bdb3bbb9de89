package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/questions"
)

// CatalogRepository caches catalogs in Redis and falls back to a loader on cache miss.
// Catalogs are stored as JSON: SET catalog:{gameType} {json} EX ttl
type CatalogRepository struct {
	client *redis.Client
	loader questions.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader questions.CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, gameType domain.GameType) (domain.Catalog, error) {
	if catalog, ok := r.cached(ctx, gameType); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(string(gameType), func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if catalog, ok := r.cached(ctx, gameType); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadCatalog(ctx, gameType)
		if err != nil {
			return domain.Catalog{}, err
		}

		if data, err := json.Marshal(catalog); err == nil {
			_ = r.client.Set(ctx, r.key(gameType), data, r.ttlWithJitter()).Err()
		}
		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

func (r *CatalogRepository) cached(ctx context.Context, gameType domain.GameType) (domain.Catalog, bool) {
	data, err := r.client.Get(ctx, r.key(gameType)).Bytes()
	if err != nil {
		return domain.Catalog{}, false
	}
	var catalog domain.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil || len(catalog.Items) == 0 {
		return domain.Catalog{}, false
	}
	return catalog, true
}

// Invalidate drops the cached copy so the next read goes to the loader.
func (r *CatalogRepository) Invalidate(ctx context.Context, gameType domain.GameType) error {
	return r.client.Del(ctx, r.key(gameType)).Err()
}

func (r *CatalogRepository) key(gameType domain.GameType) string {
	return "catalog:" + string(gameType)
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
