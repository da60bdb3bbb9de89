package domain

import (
	"strconv"
	"strings"
	"time"
)

// GameType identifies a question mode (math, flags, ...).
type GameType string

const (
	GameMath     GameType = "math"
	GameFlags    GameType = "flags"
	GameCapitals GameType = "capitals"
	GameBadges   GameType = "badges"
)

// Difficulty is derived from the running score; it is never stored.
type Difficulty string

const (
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyInsane Difficulty = "insane"
)

// Rank orders tiers so catalogs can filter items "at or below" a difficulty.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyHard:
		return 1
	case DifficultyInsane:
		return 2
	default:
		return 0
	}
}

// ParseDifficulty maps a tier name to a Difficulty. Unknown or empty names map to medium.
func ParseDifficulty(raw string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case DifficultyHard:
		return DifficultyHard
	case DifficultyInsane:
		return DifficultyInsane
	default:
		return DifficultyMedium
	}
}

// Status is the lifecycle state of a round.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusAwaitingAnswer Status = "awaiting_answer"
	StatusEnded          Status = "ended"
)

// EndReason explains why a round ended. It is EndNone until the round is Ended.
type EndReason string

const (
	EndNone        EndReason = ""
	EndWrongAnswer EndReason = "wrong_answer"
	EndTimeout     EndReason = "timeout"
)

// Question is one posed prompt with exactly four shuffled options.
type Question struct {
	GameType   GameType   `json:"gameType"`
	Difficulty Difficulty `json:"difficulty"`
	Prompt     string     `json:"prompt"`
	Image      string     `json:"image,omitempty"`
	Options    []string   `json:"options"`
	Correct    string     `json:"-"`
	// Numeric questions compare answers as integers ("07" matches "7").
	Numeric bool `json:"-"`
}

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Matches reports whether selected equals the correct answer.
func (q Question) Matches(selected string) bool {
	if q.Numeric {
		want, err := strconv.Atoi(strings.TrimSpace(q.Correct))
		if err != nil {
			return false
		}
		got, err := strconv.Atoi(strings.TrimSpace(selected))
		if err != nil {
			return false
		}
		return got == want
	}
	return selected == q.Correct
}

// Validate checks the option invariant: four pairwise distinct options, one of them correct.
func (q Question) Validate() error {
	if len(q.Options) != OptionCount {
		return ErrInvalidQuestion
	}
	seen := make(map[string]struct{}, len(q.Options))
	hits := 0
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return ErrInvalidQuestion
		}
		seen[opt] = struct{}{}
		if opt == q.Correct {
			hits++
		}
	}
	if hits != 1 {
		return ErrInvalidQuestion
	}
	return nil
}

// Player identifies whoever is playing a round.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// DefaultPlayerName replaces blank display names.
const DefaultPlayerName = "Player"

// NormalizeName trims the name and falls back to DefaultPlayerName.
func NormalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return DefaultPlayerName
	}
	return name
}

// RoundResult is what a finished round reports to persistence.
type RoundResult struct {
	RoundID  string    `json:"roundId"`
	GameType GameType  `json:"gameType"`
	Player   Player    `json:"player"`
	Score    int       `json:"score"`
	Reason   EndReason `json:"reason"`
	EndedAt  time.Time `json:"endedAt"`
}

// ScoreEntry is a best-of-day row keyed by (date, player, game type).
type ScoreEntry struct {
	Date        string    `json:"date"`
	GameType    GameType  `json:"gameType"`
	PlayerID    string    `json:"playerId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	At          time.Time `json:"at"`
}

// LeaderboardEntry is a ranked view of a ScoreEntry.
type LeaderboardEntry struct {
	Place       int       `json:"place"`
	PlayerID    string    `json:"playerId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	At          time.Time `json:"at"`
}

// Leaderboard captures the ordered daily scoreboard for a game type.
type Leaderboard struct {
	Date     string             `json:"date"`
	GameType GameType           `json:"gameType"`
	Entries  []LeaderboardEntry `json:"entries"`
}

// DateLayout is the day key format used by leaderboards.
const DateLayout = "2006-01-02"

// DayKey formats t as a leaderboard day key in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDay validates a day key; an empty value means "today".
func ParseDay(raw string, now time.Time) (string, error) {
	if raw == "" {
		return DayKey(now), nil
	}
	if _, err := time.Parse(DateLayout, raw); err != nil {
		return "", ErrInvalidDate
	}
	return raw, nil
}

// CatalogItem is one answerable entry of a catalog-backed game type.
type CatalogItem struct {
	Prompt string     `json:"prompt" yaml:"prompt"`
	Image  string     `json:"image,omitempty" yaml:"image,omitempty"`
	Answer string     `json:"answer" yaml:"answer"`
	Tier   Difficulty `json:"tier,omitempty" yaml:"tier,omitempty"`
}

// Catalog is the content behind a flags/capitals/badges style game type.
type Catalog struct {
	GameType GameType      `json:"gameType" yaml:"gameType"`
	Items    []CatalogItem `json:"items" yaml:"items"`
}
