package engine

import (
	"math"
	"time"

	"quiz-rush-service/internal/domain"
)

const (
	// DefaultQuestionTime is the countdown for every question.
	DefaultQuestionTime = 10 * time.Second
	// DefaultMaxPoints is the most a single answer can earn.
	DefaultMaxPoints = 5
	// DefaultTickInterval is how often the presenter hears about the countdown.
	DefaultTickInterval = 100 * time.Millisecond
)

// Points converts the time left on the clock into points. The question time is split
// into maxPoints equal slices and every started slice is worth one point, so a correct
// answer always earns at least 1 and never more than maxPoints.
func Points(remaining, questionTime time.Duration, maxPoints int) int {
	if maxPoints < 1 {
		maxPoints = 1
	}
	if questionTime <= 0 {
		return maxPoints
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > questionTime {
		remaining = questionTime
	}

	slice := msFloat(questionTime) / float64(maxPoints)
	raw := int(math.Ceil(msFloat(remaining) / slice))
	if raw < 1 {
		return 1
	}
	if raw > maxPoints {
		return maxPoints
	}
	return raw
}

// DifficultyFor derives the tier from the current score.
func DifficultyFor(score int) domain.Difficulty {
	if score < 3 {
		return domain.DifficultyMedium
	}
	if score < 8 {
		return domain.DifficultyHard
	}
	return domain.DifficultyInsane
}

func msFloat(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
