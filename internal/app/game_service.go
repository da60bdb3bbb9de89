package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/engine"
)

// SessionRepository abstracts how player sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session) *Session
	Get(playerID string) (*Session, bool)
	Delete(session *Session)
	Online(ctx context.Context) (int, error)
}

// QuestionCatalog resolves question sources and lists the playable game types.
type QuestionCatalog interface {
	engine.Sources
	GameTypes() []domain.GameType
}

// Leaderboard is the persistence side of finished rounds.
type Leaderboard interface {
	engine.ScoreRecorder
	Leaderboard(ctx context.Context, gameType domain.GameType, date string, limit int) (domain.Leaderboard, error)
	SettleDay(ctx context.Context, gameType domain.GameType, date string) (domain.LeaderboardEntry, bool, error)
	Wins(ctx context.Context, playerID string, gameType domain.GameType) (int, error)
}

// GameService contains the core game use cases.
type GameService struct {
	sessions   SessionRepository
	catalog    QuestionCatalog
	board      Leaderboard
	cfg        engine.Config
	log        *zap.Logger
	engineOpts []engine.Option
}

func NewGameService(store SessionRepository, catalog QuestionCatalog, board Leaderboard, cfg engine.Config, log *zap.Logger, opts ...engine.Option) *GameService {
	if log == nil {
		log = zap.NewNop()
	}
	return &GameService{
		sessions:   store,
		catalog:    catalog,
		board:      board,
		cfg:        cfg,
		log:        log,
		engineOpts: opts,
	}
}

// Session binds a player to their round engine.
type Session struct {
	player   domain.Player
	engine   *engine.Engine
	openedAt time.Time
}

// NewSession is exported for infrastructure layers and tests.
func NewSession(player domain.Player, e *engine.Engine) *Session {
	return &Session{player: player, engine: e, openedAt: time.Now()}
}

func (s *Session) PlayerID() string { return s.player.ID }

func (s *Session) Player() domain.Player { return s.player }

func (s *Session) OpenedAt() time.Time { return s.openedAt }

// Open creates the player's session; an older session for the same player is reset and replaced.
func (s *GameService) Open(player domain.Player, presenter engine.Presenter, observer engine.SubmitObserver) *Session {
	player.DisplayName = domain.NormalizeName(player.DisplayName)

	opts := []engine.Option{engine.WithLogger(s.log.With(zap.String("player", player.ID)))}
	if s.board != nil {
		opts = append(opts, engine.WithRecorder(s.board))
	}
	if observer != nil {
		opts = append(opts, engine.WithObserver(observer))
	}
	opts = append(opts, s.engineOpts...)

	session := NewSession(player, engine.New(s.catalog, presenter, s.cfg, opts...))
	if previous := s.sessions.Put(session); previous != nil {
		previous.engine.Reset()
		s.log.Info("session replaced", zap.String("player", player.ID))
	}
	return session
}

// Close stops the session's clock and forgets it.
func (s *GameService) Close(session *Session) {
	session.engine.Reset()
	s.sessions.Delete(session)
	s.log.Info("session closed",
		zap.String("player", session.PlayerID()),
		zap.Duration("open_for", time.Since(session.OpenedAt())))
}

// Start begins a new round for the player.
func (s *GameService) Start(ctx context.Context, playerID string, gameType domain.GameType) (engine.Round, error) {
	session, err := s.session(playerID)
	if err != nil {
		return engine.Round{}, err
	}
	if err := session.engine.Start(ctx, gameType, session.player); err != nil {
		return session.engine.Snapshot(), err
	}
	return session.engine.Snapshot(), nil
}

// Answer submits the player's selected option.
func (s *GameService) Answer(ctx context.Context, playerID, selected string) (engine.Outcome, error) {
	session, err := s.session(playerID)
	if err != nil {
		return engine.Outcome{}, err
	}
	return session.engine.SubmitAnswer(ctx, selected)
}

// Retry re-requests a question after a source failure.
func (s *GameService) Retry(ctx context.Context, playerID string) error {
	session, err := s.session(playerID)
	if err != nil {
		return err
	}
	return session.engine.Retry(ctx)
}

// Reset returns the player to setup.
func (s *GameService) Reset(playerID string) error {
	session, err := s.session(playerID)
	if err != nil {
		return err
	}
	session.engine.Reset()
	return nil
}

// Round returns the player's current round.
func (s *GameService) Round(playerID string) (engine.Round, error) {
	session, err := s.session(playerID)
	if err != nil {
		return engine.Round{}, err
	}
	return session.engine.Snapshot(), nil
}

// Online counts players with an open session.
func (s *GameService) Online(ctx context.Context) (int, error) {
	return s.sessions.Online(ctx)
}

// GameTypes lists the playable modes.
func (s *GameService) GameTypes() []domain.GameType {
	return s.catalog.GameTypes()
}

// Leaderboard returns a day's ranked board for a game type.
func (s *GameService) Leaderboard(ctx context.Context, gameType domain.GameType, date string, limit int) (domain.Leaderboard, error) {
	if err := s.supported(gameType); err != nil {
		return domain.Leaderboard{}, err
	}
	return s.board.Leaderboard(ctx, gameType, date, limit)
}

// Wins returns the player's settled-day wins for a game type.
func (s *GameService) Wins(ctx context.Context, playerID string, gameType domain.GameType) (int, error) {
	if err := s.supported(gameType); err != nil {
		return 0, err
	}
	return s.board.Wins(ctx, playerID, gameType)
}

// SettleDay credits the winners of a day for every game type.
func (s *GameService) SettleDay(ctx context.Context, date string) (map[domain.GameType]domain.LeaderboardEntry, error) {
	winners := make(map[domain.GameType]domain.LeaderboardEntry)
	for _, gameType := range s.catalog.GameTypes() {
		winner, credited, err := s.board.SettleDay(ctx, gameType, date)
		if err != nil {
			return winners, fmt.Errorf("settle %s: %w", gameType, err)
		}
		if credited {
			winners[gameType] = winner
		}
	}
	return winners, nil
}

func (s *GameService) session(playerID string) (*Session, error) {
	session, ok := s.sessions.Get(playerID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *GameService) supported(gameType domain.GameType) error {
	if _, ok := s.catalog.Source(gameType); !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedGameType, gameType)
	}
	return nil
}
