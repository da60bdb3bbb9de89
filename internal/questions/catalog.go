package questions

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/samber/lo"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/engine"
)

// CatalogRepository loads catalog content (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, gameType domain.GameType) (domain.Catalog, error)
}

// CatalogSource asks "which answer belongs to this prompt" questions drawn from a catalog.
// Prompts are limited to items at or below the current difficulty; distractors come from
// the whole catalog so the answer set stays wide.
type CatalogSource struct {
	gameType domain.GameType
	repo     CatalogRepository

	mu  sync.Mutex
	rng *rand.Rand
}

func NewCatalogSource(gameType domain.GameType, repo CatalogRepository, seed int64) *CatalogSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &CatalogSource{
		gameType: gameType,
		repo:     repo,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (s *CatalogSource) NextQuestion(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	catalog, err := s.repo.GetCatalog(ctx, s.gameType)
	if err != nil {
		return domain.Question{}, err
	}

	answers := lo.Uniq(lo.FilterMap(catalog.Items, func(item domain.CatalogItem, _ int) (string, bool) {
		return item.Answer, item.Answer != ""
	}))
	if len(answers) < domain.OptionCount {
		return domain.Question{}, domain.ErrCatalogTooSmall
	}

	eligible := lo.Filter(catalog.Items, func(item domain.CatalogItem, _ int) bool {
		return item.Answer != "" && domain.ParseDifficulty(string(item.Tier)).Rank() <= difficulty.Rank()
	})
	if len(eligible) == 0 {
		eligible = lo.Filter(catalog.Items, func(item domain.CatalogItem, _ int) bool {
			return item.Answer != ""
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := eligible[s.rng.Intn(len(eligible))]
	pool := lo.Without(answers, item.Answer)
	engine.Shuffle(s.rng, pool)

	options := append(pool[:domain.OptionCount-1:domain.OptionCount-1], item.Answer)
	engine.Shuffle(s.rng, options)

	return domain.Question{
		GameType:   s.gameType,
		Difficulty: difficulty,
		Prompt:     item.Prompt,
		Image:      item.Image,
		Options:    options,
		Correct:    item.Answer,
	}, nil
}

// CatalogLoader fetches catalog content from a backing store (bundled files, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, gameType domain.GameType) (domain.Catalog, error)
}

// ChainLoader tries each loader in order; a loader without the catalog defers to the next one.
type ChainLoader []CatalogLoader

func (c ChainLoader) LoadCatalog(ctx context.Context, gameType domain.GameType) (domain.Catalog, error) {
	for _, loader := range c {
		catalog, err := loader.LoadCatalog(ctx, gameType)
		if err == nil {
			return catalog, nil
		}
		if !errors.Is(err, domain.ErrCatalogNotFound) {
			return domain.Catalog{}, err
		}
	}
	return domain.Catalog{}, domain.ErrCatalogNotFound
}
