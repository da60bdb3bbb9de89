package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"quiz-rush-service/internal/domain"
)

// DefaultLimit is how many rows a leaderboard shows unless asked otherwise.
const DefaultLimit = 10

// Store abstracts where daily best scores and win counts live (in-memory, Redis, Postgres).
type Store interface {
	// Record keeps entry only if it beats the player's best for that day and game type.
	Record(ctx context.Context, entry domain.ScoreEntry) (bool, error)
	// Top returns up to limit entries ordered with Sort.
	Top(ctx context.Context, date string, gameType domain.GameType, limit int) ([]domain.ScoreEntry, error)
	// CreditWin marks the day settled and adds a win for playerID in one atomic step.
	// credited is false, and nothing changes, when the day was already settled.
	CreditWin(ctx context.Context, date string, gameType domain.GameType, playerID string) (wins int, credited bool, err error)
	Wins(ctx context.Context, playerID string, gameType domain.GameType) (int, error)
}

// Publisher announces finished rounds to other systems.
type Publisher interface {
	PublishRoundFinished(ctx context.Context, result domain.RoundResult) error
}

// Service implements the daily leaderboard use cases.
type Service struct {
	store     Store
	publisher Publisher
	limit     int
	now       func() time.Time
	log       *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now when resolving "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, publisher Publisher, limit int, log *zap.Logger, opts ...Option) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: store, publisher: publisher, limit: limit, now: time.Now, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitScore records a finished round as a best-of-day candidate and publishes it.
func (s *Service) SubmitScore(ctx context.Context, result domain.RoundResult) error {
	at := result.EndedAt
	if at.IsZero() {
		at = s.now()
	}
	entry := domain.ScoreEntry{
		Date:        domain.DayKey(at),
		GameType:    result.GameType,
		PlayerID:    result.Player.ID,
		DisplayName: domain.NormalizeName(result.Player.DisplayName),
		Score:       result.Score,
		At:          at,
	}

	var errs []error
	improved, err := s.store.Record(ctx, entry)
	if err != nil {
		errs = append(errs, fmt.Errorf("record score: %w", err))
	} else if improved {
		s.log.Info("daily best improved",
			zap.String("player", entry.PlayerID),
			zap.String("game", string(entry.GameType)),
			zap.String("date", entry.Date),
			zap.Int("score", entry.Score))
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRoundFinished(ctx, result); err != nil {
			errs = append(errs, fmt.Errorf("publish round: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Leaderboard returns the ranked board for a day ("" means today).
func (s *Service) Leaderboard(ctx context.Context, gameType domain.GameType, date string, limit int) (domain.Leaderboard, error) {
	day, err := domain.ParseDay(date, s.now())
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	entries, err := s.store.Top(ctx, day, gameType, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		Date:     day,
		GameType: gameType,
		Entries:  Rank(entries),
	}, nil
}

// SettleDay credits the day's leader with a win. Settling a day twice is a no-op.
func (s *Service) SettleDay(ctx context.Context, gameType domain.GameType, date string) (domain.LeaderboardEntry, bool, error) {
	day, err := domain.ParseDay(date, s.now())
	if err != nil {
		return domain.LeaderboardEntry{}, false, err
	}

	top, err := s.store.Top(ctx, day, gameType, 1)
	if err != nil {
		return domain.LeaderboardEntry{}, false, err
	}
	if len(top) == 0 {
		return domain.LeaderboardEntry{}, false, nil
	}

	winner := Rank(top)[0]
	wins, credited, err := s.store.CreditWin(ctx, day, gameType, winner.PlayerID)
	if err != nil {
		return domain.LeaderboardEntry{}, false, fmt.Errorf("credit win: %w", err)
	}
	if !credited {
		return winner, false, nil
	}
	s.log.Info("day settled",
		zap.String("game", string(gameType)),
		zap.String("date", day),
		zap.String("winner", winner.PlayerID),
		zap.Int("wins", wins))
	return winner, true, nil
}

// Wins returns how many settled days the player has won for a game type.
func (s *Service) Wins(ctx context.Context, playerID string, gameType domain.GameType) (int, error) {
	return s.store.Wins(ctx, playerID, gameType)
}

// Sort orders entries by score desc, then earliest achievement, then name.
func Sort(entries []domain.ScoreEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].At.Equal(entries[j].At) {
			return entries[i].At.Before(entries[j].At)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
}

// Rank sorts a copy of entries and assigns places starting at 1.
func Rank(entries []domain.ScoreEntry) []domain.LeaderboardEntry {
	sorted := append([]domain.ScoreEntry(nil), entries...)
	Sort(sorted)
	out := make([]domain.LeaderboardEntry, 0, len(sorted))
	for i, entry := range sorted {
		out = append(out, domain.LeaderboardEntry{
			Place:       i + 1,
			PlayerID:    entry.PlayerID,
			DisplayName: entry.DisplayName,
			Score:       entry.Score,
			At:          entry.At,
		})
	}
	return out
}
