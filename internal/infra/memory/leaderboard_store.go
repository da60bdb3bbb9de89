package memory

import (
	"context"
	"sync"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/leaderboard"
)

type boardKey struct {
	date     string
	gameType domain.GameType
}

type winKey struct {
	playerID string
	gameType domain.GameType
}

// LeaderboardStore keeps daily bests and win counts in process memory.
type LeaderboardStore struct {
	mu      sync.RWMutex
	boards  map[boardKey]map[string]domain.ScoreEntry
	settled map[boardKey]struct{}
	wins    map[winKey]int
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		boards:  make(map[boardKey]map[string]domain.ScoreEntry),
		settled: make(map[boardKey]struct{}),
		wins:    make(map[winKey]int),
	}
}

func (s *LeaderboardStore) Record(_ context.Context, entry domain.ScoreEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := boardKey{date: entry.Date, gameType: entry.GameType}
	board, ok := s.boards[key]
	if !ok {
		board = make(map[string]domain.ScoreEntry)
		s.boards[key] = board
	}
	if best, ok := board[entry.PlayerID]; ok && best.Score >= entry.Score {
		return false, nil
	}
	board[entry.PlayerID] = entry
	return true, nil
}

func (s *LeaderboardStore) Top(_ context.Context, date string, gameType domain.GameType, limit int) ([]domain.ScoreEntry, error) {
	s.mu.RLock()
	board := s.boards[boardKey{date: date, gameType: gameType}]
	entries := make([]domain.ScoreEntry, 0, len(board))
	for _, entry := range board {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	leaderboard.Sort(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *LeaderboardStore) CreditWin(_ context.Context, date string, gameType domain.GameType, playerID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := boardKey{date: date, gameType: gameType}
	key := winKey{playerID: playerID, gameType: gameType}
	if _, done := s.settled[day]; done {
		return s.wins[key], false, nil
	}
	s.settled[day] = struct{}{}
	s.wins[key]++
	return s.wins[key], true, nil
}

func (s *LeaderboardStore) Wins(_ context.Context, playerID string, gameType domain.GameType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wins[winKey{playerID: playerID, gameType: gameType}], nil
}
