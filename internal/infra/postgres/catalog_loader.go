package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-rush-service/internal/domain"
)

// CatalogLoader loads catalog items from the catalog_items table.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context, gameType domain.GameType) (domain.Catalog, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT prompt, image, answer, tier FROM catalog_items WHERE game_type=$1 ORDER BY id`,
		string(gameType))
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	catalog := domain.Catalog{GameType: gameType}
	for rows.Next() {
		var (
			item domain.CatalogItem
			tier string
		)
		if err := rows.Scan(&item.Prompt, &item.Image, &item.Answer, &tier); err != nil {
			return domain.Catalog{}, fmt.Errorf("scan catalog item: %w", err)
		}
		item.Tier = domain.ParseDifficulty(tier)
		catalog.Items = append(catalog.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	if len(catalog.Items) == 0 {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	return catalog, nil
}

// SaveCatalog replaces every item of the catalog's game type.
func (l *CatalogLoader) SaveCatalog(ctx context.Context, catalog domain.Catalog) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM catalog_items WHERE game_type=$1`, string(catalog.GameType)); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	for _, item := range catalog.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO catalog_items (game_type, prompt, image, answer, tier) VALUES ($1, $2, $3, $4, $5)`,
			string(catalog.GameType), item.Prompt, item.Image, item.Answer, string(domain.ParseDifficulty(string(item.Tier))))
		if err != nil {
			return fmt.Errorf("insert catalog item: %w", err)
		}
	}
	return tx.Commit(ctx)
}
