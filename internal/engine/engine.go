package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-rush-service/internal/domain"
)

// QuestionSource supplies questions for one game type.
type QuestionSource interface {
	NextQuestion(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error)
}

// Sources resolves the question source for a game type.
type Sources interface {
	Source(gameType domain.GameType) (QuestionSource, bool)
}

// Presenter receives round events. Methods are called with the round lock held,
// so they must return quickly and must not call back into the Engine.
type Presenter interface {
	OnQuestionShown(q domain.Question)
	OnTimerTick(remaining time.Duration)
	OnScoreChanged(score int)
	OnRoundEnded(finalScore int, reason domain.EndReason)
}

// ScoreRecorder persists a finished round.
type ScoreRecorder interface {
	SubmitScore(ctx context.Context, result domain.RoundResult) error
}

// SubmitObserver hears the outcome of a score submission.
type SubmitObserver interface {
	OnScoreSubmitted(result domain.RoundResult, err error)
}

// Config tunes the round clock and scoring.
type Config struct {
	QuestionTime  time.Duration
	MaxPoints     int
	TickInterval  time.Duration
	SubmitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QuestionTime <= 0 {
		c.QuestionTime = DefaultQuestionTime
	}
	if c.MaxPoints <= 0 {
		c.MaxPoints = DefaultMaxPoints
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 5 * time.Second
	}
	return c
}

// Round is a read-only view of the current run.
type Round struct {
	ID         string            `json:"id"`
	GameType   domain.GameType   `json:"gameType"`
	Player     domain.Player     `json:"player"`
	Score      int               `json:"score"`
	Answered   int               `json:"answered"`
	Status     domain.Status     `json:"status"`
	EndReason  domain.EndReason  `json:"endReason,omitempty"`
	Difficulty domain.Difficulty `json:"difficulty"`
	Question   *domain.Question  `json:"question,omitempty"`
	Remaining  time.Duration     `json:"remaining"`
	StartedAt  time.Time         `json:"startedAt"`
	EndedAt    time.Time         `json:"endedAt,omitempty"`
}

// Outcome describes what a submitted answer did.
type Outcome struct {
	// Ignored is set when the answer arrived while no question was live.
	Ignored bool             `json:"ignored"`
	Correct bool             `json:"correct"`
	Awarded int              `json:"awarded"`
	Score   int              `json:"score"`
	Status  domain.Status    `json:"status"`
	Reason  domain.EndReason `json:"reason,omitempty"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder submits finished rounds to r.
func WithRecorder(r ScoreRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithObserver reports submission outcomes to o.
func WithObserver(o SubmitObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithScheduler replaces the wall-clock ticker.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithIDGenerator replaces the round id generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// Engine owns a single player's run: the question clock, answer checks and scoring.
type Engine struct {
	sources   Sources
	presenter Presenter
	recorder  ScoreRecorder
	observer  SubmitObserver
	scheduler Scheduler
	cfg       Config
	log       *zap.Logger
	now       func() time.Time
	newID     func() string

	mu        sync.Mutex
	round     Round
	source    QuestionSource
	question  *domain.Question
	pending   bool
	deadline  time.Time
	stopTimer func()
	gen       uint64
}

func New(sources Sources, presenter Presenter, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		sources:   sources,
		presenter: presenter,
		scheduler: TickerScheduler{},
		cfg:       cfg.withDefaults(),
		log:       zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		round:     Round{Status: domain.StatusIdle, Difficulty: domain.DifficultyMedium},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a fresh round. An unsupported game type is rejected before any state changes.
// A question source failure leaves the round awaiting a question; use Retry or Reset.
func (e *Engine) Start(ctx context.Context, gameType domain.GameType, player domain.Player) error {
	source, ok := e.sources.Source(gameType)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedGameType, gameType)
	}
	player.DisplayName = domain.NormalizeName(player.DisplayName)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.disarmLocked()
	e.source = source
	e.question = nil
	e.round = Round{
		ID:         e.newID(),
		GameType:   gameType,
		Player:     player,
		Status:     domain.StatusAwaitingAnswer,
		Difficulty: DifficultyFor(0),
		StartedAt:  e.now(),
	}
	e.log.Info("round started",
		zap.String("round", e.round.ID),
		zap.String("game", string(gameType)),
		zap.String("player", player.ID))

	e.presenter.OnScoreChanged(0)
	return e.poseLocked(ctx)
}

// SubmitAnswer checks selected against the live question. Calls made while no question
// is live are ignored and reported with Outcome.Ignored.
func (e *Engine) SubmitAnswer(ctx context.Context, selected string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round.Status != domain.StatusAwaitingAnswer || e.question == nil {
		return e.outcomeLocked(Outcome{Ignored: true}), nil
	}

	if !e.question.Matches(selected) {
		e.endLocked(domain.EndWrongAnswer)
		return e.outcomeLocked(Outcome{}), nil
	}

	awarded := Points(e.remainingLocked(), e.cfg.QuestionTime, e.cfg.MaxPoints)
	e.disarmLocked()
	e.question = nil
	e.round.Score += awarded
	e.round.Answered++
	e.round.Difficulty = DifficultyFor(e.round.Score)
	e.presenter.OnScoreChanged(e.round.Score)

	out := Outcome{Correct: true, Awarded: awarded}
	if err := e.poseLocked(ctx); err != nil {
		return e.outcomeLocked(out), err
	}
	return e.outcomeLocked(out), nil
}

// Retry re-requests the question after a source failure.
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round.Status != domain.StatusAwaitingAnswer || !e.pending {
		return domain.ErrNoQuestionPending
	}
	return e.poseLocked(ctx)
}

// Reset cancels the clock and returns to Idle.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.disarmLocked()
	e.question = nil
	e.pending = false
	e.source = nil
	e.round = Round{Status: domain.StatusIdle, Difficulty: domain.DifficultyMedium}
}

// Snapshot returns a copy of the current round.
func (e *Engine) Snapshot() Round {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.round
	if e.question != nil {
		q := *e.question
		q.Options = append([]string(nil), e.question.Options...)
		snap.Question = &q
		snap.Remaining = e.remainingLocked()
	}
	return snap
}

// poseLocked fetches the next question at the current difficulty and arms the clock.
func (e *Engine) poseLocked(ctx context.Context) error {
	difficulty := DifficultyFor(e.round.Score)
	q, err := e.source.NextQuestion(ctx, difficulty)
	if err == nil {
		err = q.Validate()
	}
	if err != nil {
		e.pending = true
		e.log.Warn("question source failed",
			zap.String("round", e.round.ID),
			zap.String("game", string(e.round.GameType)),
			zap.String("difficulty", string(difficulty)),
			zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	q.GameType = e.round.GameType
	q.Difficulty = difficulty
	e.pending = false
	e.question = &q
	e.round.Difficulty = difficulty

	e.armLocked()
	e.presenter.OnQuestionShown(q)
	e.presenter.OnTimerTick(e.cfg.QuestionTime)
	return nil
}

// armLocked cancels any previous timer before starting a new one.
func (e *Engine) armLocked() {
	e.disarmLocked()
	gen := e.gen
	e.deadline = e.now().Add(e.cfg.QuestionTime)
	e.stopTimer = e.scheduler.Every(e.cfg.TickInterval, func() { e.tick(gen) })
}

// disarmLocked stops the timer and invalidates ticks already in flight.
func (e *Engine) disarmLocked() {
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
	e.gen++
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || e.round.Status != domain.StatusAwaitingAnswer || e.question == nil {
		return
	}
	remaining := e.remainingLocked()
	e.presenter.OnTimerTick(remaining)
	if remaining <= 0 {
		e.endLocked(domain.EndTimeout)
	}
}

func (e *Engine) remainingLocked() time.Duration {
	remaining := e.deadline.Sub(e.now())
	if remaining < 0 {
		return 0
	}
	if remaining > e.cfg.QuestionTime {
		return e.cfg.QuestionTime
	}
	return remaining
}

func (e *Engine) endLocked(reason domain.EndReason) {
	e.disarmLocked()
	e.question = nil
	e.pending = false
	e.round.Status = domain.StatusEnded
	e.round.EndReason = reason
	e.round.EndedAt = e.now()

	e.log.Info("round ended",
		zap.String("round", e.round.ID),
		zap.String("game", string(e.round.GameType)),
		zap.String("player", e.round.Player.ID),
		zap.Int("score", e.round.Score),
		zap.String("reason", string(reason)))

	e.presenter.OnRoundEnded(e.round.Score, reason)
	e.submitAsync(domain.RoundResult{
		RoundID:  e.round.ID,
		GameType: e.round.GameType,
		Player:   e.round.Player,
		Score:    e.round.Score,
		Reason:   reason,
		EndedAt:  e.round.EndedAt,
	})
}

// submitAsync hands the result to the recorder without holding up the round.
func (e *Engine) submitAsync(result domain.RoundResult) {
	if e.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SubmitTimeout)
		defer cancel()

		err := e.recorder.SubmitScore(ctx, result)
		if err != nil {
			e.log.Warn("score submission failed",
				zap.String("round", result.RoundID),
				zap.Error(err))
		}
		if e.observer != nil {
			e.observer.OnScoreSubmitted(result, err)
		}
	}()
}

func (e *Engine) outcomeLocked(out Outcome) Outcome {
	out.Score = e.round.Score
	out.Status = e.round.Status
	out.Reason = e.round.EndReason
	return out
}
