package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/questions"
)

// CatalogRepository caches catalogs with TTL to avoid repeated loader hits.
type CatalogRepository struct {
	loader questions.CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[domain.GameType]cachedCatalog
}

type cachedCatalog struct {
	catalog   domain.Catalog
	expiresAt time.Time
}

func NewCatalogRepository(loader questions.CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.GameType]cachedCatalog),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, gameType domain.GameType) (domain.Catalog, error) {
	if catalog, ok := r.cached(gameType); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(string(gameType), func() (interface{}, error) {
		if catalog, ok := r.cached(gameType); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadCatalog(ctx, gameType)
		if err != nil {
			return domain.Catalog{}, err
		}

		r.mu.Lock()
		r.cache[gameType] = cachedCatalog{
			catalog:   catalog,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

func (r *CatalogRepository) cached(gameType domain.GameType) (domain.Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[gameType]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Catalog{}, false
	}
	return entry.catalog, true
}

func (r *CatalogRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalogLoader is a loader backed by an in-memory map (bundled catalogs, tests).
type StaticCatalogLoader struct {
	catalogs map[domain.GameType]domain.Catalog
}

func NewStaticCatalogLoader(catalogs map[domain.GameType]domain.Catalog) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalogs: catalogs}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context, gameType domain.GameType) (domain.Catalog, error) {
	if catalog, ok := l.catalogs[gameType]; ok {
		return catalog, nil
	}
	return domain.Catalog{}, domain.ErrCatalogNotFound
}
