package engine

import (
	"math/rand"

	"quiz-rush-service/internal/domain"
)

// DistractorRange is the perturbation width used for numeric wrong answers.
func DistractorRange(d domain.Difficulty) int {
	switch d {
	case domain.DifficultyHard:
		return 8
	case domain.DifficultyInsane:
		return 12
	default:
		return 5
	}
}

// WrongAnswers returns three distinct non-negative integers, none equal to correct.
// Draws mix near misses (correct±1), small offsets within the difficulty range and
// uniform values from a window around correct; collisions are simply redrawn.
func WrongAnswers(rng *rand.Rand, correct int, difficulty domain.Difficulty) []int {
	width := DistractorRange(difficulty)
	wrongs := make([]int, 0, domain.OptionCount-1)
	seen := map[int]struct{}{correct: {}}

	for len(wrongs) < domain.OptionCount-1 {
		var wrong int
		switch {
		case rng.Float64() < 0.3:
			if rng.Float64() < 0.5 {
				wrong = correct + 1
			} else {
				wrong = correct - 1
			}
		case rng.Float64() < 0.4:
			wrong = correct + RandInt(rng, -width, width)
		default:
			lo := correct - 2*width
			if lo < 0 {
				lo = 0
			}
			wrong = RandInt(rng, lo, correct+2*width)
		}

		if wrong < 0 {
			continue
		}
		if _, dup := seen[wrong]; dup {
			continue
		}
		seen[wrong] = struct{}{}
		wrongs = append(wrongs, wrong)
	}
	return wrongs
}

// Shuffle permutes items in place with Fisher-Yates.
func Shuffle[T any](rng *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// RandInt returns a uniform integer in [min, max].
func RandInt(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}
