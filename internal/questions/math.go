package questions

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/engine"
)

const (
	opAdd = "+"
	opSub = "-"
	opMul = "×"
	opDiv = "÷"
)

// MathSource generates arithmetic questions whose operators and operand ranges grow with difficulty.
type MathSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewMathSource(seed int64) *MathSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MathSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *MathSource) NextQuestion(_ context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := operators(difficulty)
	op := ops[s.rng.Intn(len(ops))]
	a, b, answer := s.operands(op, difficulty)

	options := make([]string, 0, domain.OptionCount)
	for _, wrong := range engine.WrongAnswers(s.rng, answer, difficulty) {
		options = append(options, strconv.Itoa(wrong))
	}
	options = append(options, strconv.Itoa(answer))
	engine.Shuffle(s.rng, options)

	return domain.Question{
		GameType:   domain.GameMath,
		Difficulty: difficulty,
		Prompt:     fmt.Sprintf("%d %s %d = ?", a, op, b),
		Options:    options,
		Correct:    strconv.Itoa(answer),
		Numeric:    true,
	}, nil
}

func operators(difficulty domain.Difficulty) []string {
	switch difficulty {
	case domain.DifficultyHard:
		return []string{opAdd, opSub, opMul}
	case domain.DifficultyInsane:
		return []string{opAdd, opSub, opMul, opDiv}
	default:
		return []string{opAdd, opSub}
	}
}

// operands picks a and b for op; subtraction never goes negative and division is always exact.
func (s *MathSource) operands(op string, difficulty domain.Difficulty) (a, b, answer int) {
	pick := func(min, max int) int { return engine.RandInt(s.rng, min, max) }

	switch op {
	case opAdd:
		limit := tiered(difficulty, 15, 35, 80)
		a, b = pick(0, limit), pick(0, limit)
		return a, b, a + b
	case opSub:
		limit := tiered(difficulty, 15, 35, 80)
		a = pick(limit, limit*2)
		b = pick(0, a)
		return a, b, a - b
	case opMul:
		limit := tiered(difficulty, 6, 12, 15)
		a, b = pick(0, limit), pick(0, limit)
		return a, b, a * b
	default:
		limit := tiered(difficulty, 8, 12, 15)
		b = pick(2, limit)
		answer = pick(2, limit)
		return b * answer, b, answer
	}
}

func tiered(difficulty domain.Difficulty, medium, hard, insane int) int {
	switch difficulty {
	case domain.DifficultyHard:
		return hard
	case domain.DifficultyInsane:
		return insane
	default:
		return medium
	}
}
