package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/leaderboard"
)

// LeaderboardStore keeps daily boards in Redis.
//
//	ZADD lb:{game}:{date} {rank} {playerID}        rank = score*1e8 + milliseconds left in the day
//	HSET lb:{game}:{date}:meta {playerID} {json}   display name, score and time of the best run
//	SET lb:{game}:{date}:settled {winnerID}        together with HINCRBY wins:{game} {winnerID} 1
//
// Encoding the time into the rank makes an equal score reached earlier sort first.
type LeaderboardStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewLeaderboardStore(client *redis.Client, retention time.Duration) *LeaderboardStore {
	return &LeaderboardStore{client: client, retention: retention}
}

// recordBest only replaces a player's row when the new rank is strictly higher.
var recordBest = redis.NewScript(`
local current = redis.call('ZSCORE', KEYS[1], ARGV[1])
if current and tonumber(current) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
local ttl = tonumber(ARGV[4])
if ttl > 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
  redis.call('EXPIRE', KEYS[2], ttl)
end
return 1
`)

// creditWin sets the settled marker and bumps the winner's count together; a settled day is left alone.
var creditWin = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  local wins = redis.call('HGET', KEYS[2], ARGV[1])
  if wins then
    return {0, tonumber(wins)}
  end
  return {0, 0}
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'EX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return {1, redis.call('HINCRBY', KEYS[2], ARGV[1], 1)}
`)

type storedEntry struct {
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	At          time.Time `json:"at"`
}

func (s *LeaderboardStore) Record(ctx context.Context, entry domain.ScoreEntry) (bool, error) {
	meta, err := json.Marshal(storedEntry{DisplayName: entry.DisplayName, Score: entry.Score, At: entry.At.UTC()})
	if err != nil {
		return false, err
	}
	keys := []string{s.boardKey(entry.Date, entry.GameType), s.metaKey(entry.Date, entry.GameType)}
	changed, err := recordBest.Run(ctx, s.client, keys,
		entry.PlayerID, rankOf(entry), string(meta), int64(s.retention/time.Second)).Int()
	if err != nil {
		return false, fmt.Errorf("record best: %w", err)
	}
	return changed == 1, nil
}

func (s *LeaderboardStore) Top(ctx context.Context, date string, gameType domain.GameType, limit int) ([]domain.ScoreEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.boardKey(date, gameType), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	metas, err := s.client.HMGet(ctx, s.metaKey(date, gameType), ids...).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.ScoreEntry, 0, len(ids))
	for i, id := range ids {
		raw, ok := metas[i].(string)
		if !ok {
			continue
		}
		var meta storedEntry
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, fmt.Errorf("decode leaderboard row %s: %w", id, err)
		}
		entries = append(entries, domain.ScoreEntry{
			Date:        date,
			GameType:    gameType,
			PlayerID:    id,
			DisplayName: meta.DisplayName,
			Score:       meta.Score,
			At:          meta.At,
		})
	}
	leaderboard.Sort(entries)
	return entries, nil
}

func (s *LeaderboardStore) CreditWin(ctx context.Context, date string, gameType domain.GameType, playerID string) (int, bool, error) {
	keys := []string{s.boardKey(date, gameType) + ":settled", s.winsKey(gameType)}
	res, err := creditWin.Run(ctx, s.client, keys, playerID, int64(s.retention/time.Second)).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("credit win: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("credit win: unexpected reply %v", res)
	}
	return int(res[1]), res[0] == 1, nil
}

func (s *LeaderboardStore) Wins(ctx context.Context, playerID string, gameType domain.GameType) (int, error) {
	raw, err := s.client.HGet(ctx, s.winsKey(gameType), playerID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func (s *LeaderboardStore) boardKey(date string, gameType domain.GameType) string {
	return "lb:" + string(gameType) + ":" + date
}

func (s *LeaderboardStore) metaKey(date string, gameType domain.GameType) string {
	return s.boardKey(date, gameType) + ":meta"
}

func (s *LeaderboardStore) winsKey(gameType domain.GameType) string {
	return "wins:" + string(gameType)
}

const (
	dayMillis = 24 * 60 * 60 * 1000
	rankScale = 100_000_000
)

// rankOf stays exact in a float64 ZSET score for scores below 9e7.
func rankOf(entry domain.ScoreEntry) int64 {
	at := entry.At.UTC()
	midnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	elapsed := at.Sub(midnight).Milliseconds()
	return int64(entry.Score)*rankScale + (dayMillis - 1 - elapsed)
}
