package questions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/questions"
)

func TestCatalogSourceFiltersByTier(t *testing.T) {
	repo := fakeRepo{catalog: domain.Catalog{
		GameType: domain.GameCapitals,
		Items: []domain.CatalogItem{
			{Prompt: "France", Answer: "Paris", Tier: domain.DifficultyMedium},
			{Prompt: "Spain", Answer: "Madrid", Tier: domain.DifficultyMedium},
			{Prompt: "Italy", Answer: "Rome", Tier: domain.DifficultyMedium},
			{Prompt: "Peru", Answer: "Lima", Tier: domain.DifficultyHard},
			{Prompt: "Bhutan", Answer: "Thimphu", Tier: domain.DifficultyInsane},
			{Prompt: "Palau", Answer: "Ngerulmud", Tier: domain.DifficultyInsane},
		},
	}}
	source := questions.NewCatalogSource(domain.GameCapitals, repo, 3)

	for i := 0; i < 200; i++ {
		q, err := source.NextQuestion(context.Background(), domain.DifficultyMedium)
		require.NoError(t, err)
		require.NoError(t, q.Validate())
		require.Contains(t, []string{"France", "Spain", "Italy"}, q.Prompt)
		require.False(t, q.Numeric)
	}

	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		q, err := source.NextQuestion(context.Background(), domain.DifficultyInsane)
		require.NoError(t, err)
		require.NoError(t, q.Validate())
		seen[q.Prompt] = true
	}
	require.True(t, seen["Bhutan"] || seen["Palau"], "insane rounds reach insane items")
}

func TestCatalogSourceFallsBackToWholeCatalog(t *testing.T) {
	items := []domain.CatalogItem{
		{Prompt: "a", Answer: "A", Tier: domain.DifficultyInsane},
		{Prompt: "b", Answer: "B", Tier: domain.DifficultyInsane},
		{Prompt: "c", Answer: "C", Tier: domain.DifficultyInsane},
		{Prompt: "d", Answer: "D", Tier: domain.DifficultyInsane},
	}
	source := questions.NewCatalogSource(domain.GameFlags, fakeRepo{catalog: domain.Catalog{Items: items}}, 1)

	q, err := source.NextQuestion(context.Background(), domain.DifficultyMedium)
	require.NoError(t, err)
	require.NoError(t, q.Validate())
	require.ElementsMatch(t, []string{"A", "B", "C", "D"}, q.Options)
}

func TestCatalogSourceNeedsFourAnswers(t *testing.T) {
	items := []domain.CatalogItem{
		{Prompt: "a", Answer: "A"},
		{Prompt: "b", Answer: "B"},
		{Prompt: "c", Answer: "C"},
		{Prompt: "c again", Answer: "C"},
	}
	source := questions.NewCatalogSource(domain.GameFlags, fakeRepo{catalog: domain.Catalog{Items: items}}, 1)

	_, err := source.NextQuestion(context.Background(), domain.DifficultyMedium)
	require.ErrorIs(t, err, domain.ErrCatalogTooSmall)
}

func TestCatalogSourcePropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("redis down")
	source := questions.NewCatalogSource(domain.GameFlags, fakeRepo{err: boom}, 1)

	_, err := source.NextQuestion(context.Background(), domain.DifficultyMedium)
	require.ErrorIs(t, err, boom)
}

func TestChainLoader(t *testing.T) {
	want := domain.Catalog{GameType: domain.GameBadges, Items: []domain.CatalogItem{{Answer: "Arsenal"}}}
	chain := questions.ChainLoader{
		fakeRepo{err: domain.ErrCatalogNotFound},
		fakeRepo{catalog: want},
	}
	got, err := chain.LoadCatalog(context.Background(), domain.GameBadges)
	require.NoError(t, err)
	require.Equal(t, want, got)

	boom := errors.New("connection refused")
	chain = questions.ChainLoader{fakeRepo{err: boom}, fakeRepo{catalog: want}}
	_, err = chain.LoadCatalog(context.Background(), domain.GameBadges)
	require.ErrorIs(t, err, boom)

	_, err = questions.ChainLoader{}.LoadCatalog(context.Background(), domain.GameBadges)
	require.ErrorIs(t, err, domain.ErrCatalogNotFound)
}

type fakeRepo struct {
	catalog domain.Catalog
	err     error
}

func (r fakeRepo) GetCatalog(context.Context, domain.GameType) (domain.Catalog, error) {
	return r.catalog, r.err
}

func (r fakeRepo) LoadCatalog(context.Context, domain.GameType) (domain.Catalog, error) {
	return r.catalog, r.err
}
