package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-rush-service/internal/config"
	"quiz-rush-service/internal/domain"
)

// NewSettleCmd credits a day's leaders with a win for every game type.
func NewSettleCmd(configPath *string) *cobra.Command {
	var (
		date  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Award daily wins to the leaderboard leaders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			day, err := settleDay(date, force, time.Now())
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, closeLog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			deps, err := buildDeps(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer deps.close()

			winners, err := deps.service.SettleDay(ctx, day)
			if err != nil {
				return err
			}
			for gameType, winner := range winners {
				log.Info("winner credited",
					zap.String("game", string(gameType)),
					zap.String("player", winner.PlayerID),
					zap.Int("score", winner.Score))
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\n", gameType, winner.PlayerID, winner.DisplayName, winner.Score)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to settle ("+domain.DateLayout+", default yesterday UTC)")
	cmd.Flags().BoolVar(&force, "force", false, "allow settling a day that has not finished yet")
	return cmd
}

// errDayNotOver rejects settling a day that is still open.
var errDayNotOver = errors.New("day has not finished yet (use --force to settle it anyway)")

// settleDay resolves the --date flag: empty means yesterday UTC, and only
// finished days are accepted unless force is set.
func settleDay(raw string, force bool, now time.Time) (string, error) {
	if raw == "" {
		return domain.DayKey(now.AddDate(0, 0, -1)), nil
	}
	day, err := domain.ParseDay(raw, now)
	if err != nil {
		return "", err
	}
	if !force && day >= domain.DayKey(now) {
		return "", errDayNotOver
	}
	return day, nil
}
