package questions_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/questions"
)

func TestMathQuestionsAreSolvable(t *testing.T) {
	allowed := map[domain.Difficulty]string{
		domain.DifficultyMedium: "+-",
		domain.DifficultyHard:   "+-×",
		domain.DifficultyInsane: "+-×÷",
	}
	source := questions.NewMathSource(42)

	for difficulty, ops := range allowed {
		for i := 0; i < 300; i++ {
			q, err := source.NextQuestion(context.Background(), difficulty)
			require.NoError(t, err)
			require.NoError(t, q.Validate())
			require.True(t, q.Numeric)
			require.Equal(t, domain.GameMath, q.GameType)

			var (
				a, b int
				op   string
			)
			_, err = fmt.Sscanf(q.Prompt, "%d %s %d = ?", &a, &op, &b)
			require.NoError(t, err, q.Prompt)
			require.Contains(t, ops, op, "difficulty %s", difficulty)

			want := solve(t, a, op, b)
			require.GreaterOrEqual(t, want, 0, q.Prompt)
			require.Equal(t, strconv.Itoa(want), q.Correct, q.Prompt)

			for _, opt := range q.Options {
				n, err := strconv.Atoi(opt)
				require.NoError(t, err)
				require.GreaterOrEqual(t, n, 0)
			}
		}
	}
}

func solve(t *testing.T, a int, op string, b int) int {
	t.Helper()
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "×":
		return a * b
	case "÷":
		require.NotZero(t, b)
		require.Zero(t, a%b, "division must be exact")
		return a / b
	}
	t.Fatalf("unknown operator %q", op)
	return 0
}
