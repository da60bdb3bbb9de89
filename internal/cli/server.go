package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-rush-service/internal/app"
	"quiz-rush-service/internal/config"
	"quiz-rush-service/internal/domain"
	amqppub "quiz-rush-service/internal/infra/amqp"
	"quiz-rush-service/internal/infra/memory"
	pgstore "quiz-rush-service/internal/infra/postgres"
	redisstore "quiz-rush-service/internal/infra/redis"
	"quiz-rush-service/internal/leaderboard"
	"quiz-rush-service/internal/logger"
	"quiz-rush-service/internal/questions"
	transport "quiz-rush-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	wsHandler := transport.NewWSHandler(deps.service, cfg.Server.MessagesPerSecond, log)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(deps.service, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting game server", zap.String("addr", server.Addr), zap.Any("games", deps.service.GameTypes()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type deps struct {
	service *app.GameService
	closers []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDeps picks backends from config: Postgres and Redis when configured, memory otherwise.
func buildDeps(ctx context.Context, cfg config.Config, log *zap.Logger) (*deps, error) {
	d := &deps{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.close()
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)
	}

	bundled, err := questions.DefaultCatalogs()
	if err != nil {
		d.close()
		return nil, err
	}
	if cfg.Catalog.BadgesFile != "" {
		badges, err := questions.LoadBadgeFile(cfg.Catalog.BadgesFile)
		if err != nil {
			d.close()
			return nil, err
		}
		bundled[domain.GameBadges] = badges
		log.Info("badge catalog loaded", zap.String("file", cfg.Catalog.BadgesFile), zap.Int("badges", len(badges.Items)))
	}

	var loader questions.CatalogLoader = memory.NewStaticCatalogLoader(bundled)
	if pool != nil {
		loader = questions.ChainLoader{pgstore.NewCatalogLoader(pool), loader}
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalogs questions.CatalogRepository
	if redisClient != nil {
		catalogs = redisstore.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalogs = memory.NewCatalogRepository(loader, catalogTTL)
	}

	registry := questions.NewRegistry()
	registry.Register(domain.GameMath, questions.NewMathSource(0))
	for _, gameType := range []domain.GameType{domain.GameFlags, domain.GameCapitals, domain.GameBadges} {
		registry.Register(gameType, questions.NewCatalogSource(gameType, catalogs, 0))
	}

	var store leaderboard.Store
	switch {
	case pool != nil:
		store = pgstore.NewLeaderboardStore(pool)
	case redisClient != nil:
		store = redisstore.NewLeaderboardStore(redisClient, config.TTLDuration(cfg.Redis.Retention, 30*24*time.Hour))
	default:
		store = memory.NewLeaderboardStore()
	}

	var publisher leaderboard.Publisher
	if cfg.AMQP.URL != "" {
		pub, err := amqppub.Dial(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			d.close()
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = pub.Close() })
		publisher = pub
	}
	board := leaderboard.NewService(store, publisher, cfg.Game.LeaderboardLimit, log)

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		sessions = memory.NewSessionStore()
	}

	d.service = app.NewGameService(sessions, registry, board, cfg.Engine(), log)
	return d, nil
}

func newLogger(cfg config.Config) (*zap.Logger, func(), error) {
	return logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
}
