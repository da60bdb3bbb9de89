package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/leaderboard"
)

// LeaderboardStore keeps daily bests in daily_scores and win counts in player_wins.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

// Record only touches the row when the new score is strictly higher, so ties keep the earlier run.
func (s *LeaderboardStore) Record(ctx context.Context, entry domain.ScoreEntry) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO daily_scores (day, game_type, player_id, display_name, score, achieved_at)
VALUES ($1::date, $2, $3, $4, $5, $6)
ON CONFLICT (day, game_type, player_id) DO UPDATE
SET display_name = EXCLUDED.display_name, score = EXCLUDED.score, achieved_at = EXCLUDED.achieved_at
WHERE daily_scores.score < EXCLUDED.score`,
		entry.Date, string(entry.GameType), entry.PlayerID, entry.DisplayName, entry.Score, entry.At.UTC())
	if err != nil {
		return false, fmt.Errorf("upsert daily score: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *LeaderboardStore) Top(ctx context.Context, date string, gameType domain.GameType, limit int) ([]domain.ScoreEntry, error) {
	if limit <= 0 {
		limit = leaderboard.DefaultLimit
	}
	rows, err := s.pool.Query(ctx, `
SELECT player_id, display_name, score, achieved_at
FROM daily_scores
WHERE day = $1::date AND game_type = $2
ORDER BY score DESC, achieved_at ASC, display_name ASC
LIMIT $3`, date, string(gameType), limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.ScoreEntry
	for rows.Next() {
		entry := domain.ScoreEntry{Date: date, GameType: gameType}
		if err := rows.Scan(&entry.PlayerID, &entry.DisplayName, &entry.Score, &entry.At); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreditWin inserts the settled marker and bumps the winner's count in one transaction.
func (s *LeaderboardStore) CreditWin(ctx context.Context, date string, gameType domain.GameType, playerID string) (int, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`INSERT INTO settled_days (day, game_type, winner_id) VALUES ($1::date, $2, $3) ON CONFLICT DO NOTHING`,
		date, string(gameType), playerID)
	if err != nil {
		return 0, false, fmt.Errorf("mark settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		wins, err := s.Wins(ctx, playerID, gameType)
		return wins, false, err
	}

	var wins int
	err = tx.QueryRow(ctx, `
INSERT INTO player_wins (player_id, game_type, wins) VALUES ($1, $2, 1)
ON CONFLICT (player_id, game_type) DO UPDATE SET wins = player_wins.wins + 1
RETURNING wins`, playerID, string(gameType)).Scan(&wins)
	if err != nil {
		return 0, false, fmt.Errorf("increment wins: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("commit settlement: %w", err)
	}
	return wins, true, nil
}

func (s *LeaderboardStore) Wins(ctx context.Context, playerID string, gameType domain.GameType) (int, error) {
	var wins int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(wins), 0) FROM player_wins WHERE player_id=$1 AND game_type=$2`,
		playerID, string(gameType)).Scan(&wins)
	if err != nil {
		return 0, fmt.Errorf("load wins: %w", err)
	}
	return wins, nil
}
