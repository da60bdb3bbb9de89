package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quiz-rush-service/internal/domain"
	"quiz-rush-service/internal/engine"
)

func TestStartRejectsUnsupportedGameType(t *testing.T) {
	h := newHarness(t)

	err := h.engine.Start(context.Background(), "chess", domain.Player{ID: "u1", DisplayName: "Alice"})
	require.ErrorIs(t, err, domain.ErrUnsupportedGameType)

	snap := h.engine.Snapshot()
	require.Equal(t, domain.StatusIdle, snap.Status)
	require.Empty(t, h.presenter.events())
	require.Empty(t, h.scheduler.all())
}

func TestScenarioCorrectAnswerRaisesDifficulty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1", DisplayName: "Alice"}))
	require.Equal(t, []domain.Difficulty{domain.DifficultyMedium}, h.source.requested())

	h.clock.advance(1000 * time.Millisecond)
	out, err := h.engine.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	require.True(t, out.Correct)
	require.Equal(t, 5, out.Awarded)
	require.Equal(t, 5, out.Score)
	require.Equal(t, domain.StatusAwaitingAnswer, out.Status)

	require.Equal(t, []domain.Difficulty{domain.DifficultyMedium, domain.DifficultyHard}, h.source.requested())
	require.Equal(t, []int{0, 5}, h.presenter.scores())
}

func TestScenarioWrongAnswerEndsRound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	for i := 0; i < 2; i++ {
		h.clock.advance(8 * time.Second)
		out, err := h.engine.SubmitAnswer(ctx, "4")
		require.NoError(t, err)
		require.Equal(t, 1, out.Awarded)
	}

	out, err := h.engine.SubmitAnswer(ctx, "1")
	require.NoError(t, err)
	require.False(t, out.Correct)
	require.Equal(t, domain.StatusEnded, out.Status)
	require.Equal(t, domain.EndWrongAnswer, out.Reason)

	snap := h.engine.Snapshot()
	require.Equal(t, 2, snap.Score)
	require.Equal(t, domain.EndWrongAnswer, snap.EndReason)
	require.Equal(t, []roundEnd{{score: 2, reason: domain.EndWrongAnswer}}, h.presenter.ends())

	late, err := h.engine.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	require.True(t, late.Ignored)
	require.Equal(t, 2, late.Score)
	require.Len(t, h.presenter.ends(), 1)
}

func TestScenarioTimeoutEndsRound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))

	h.clock.advance(4 * time.Second)
	h.scheduler.fire()
	require.Equal(t, domain.StatusAwaitingAnswer, h.engine.Snapshot().Status)

	h.clock.advance(6 * time.Second)
	h.scheduler.fire()

	snap := h.engine.Snapshot()
	require.Equal(t, domain.StatusEnded, snap.Status)
	require.Equal(t, domain.EndTimeout, snap.EndReason)
	require.Equal(t, []roundEnd{{score: 0, reason: domain.EndTimeout}}, h.presenter.ends())
	require.Equal(t, []time.Duration{10 * time.Second, 6 * time.Second, 0}, h.presenter.ticks())

	out, err := h.engine.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	require.True(t, out.Ignored)
	require.Equal(t, 0, h.engine.Snapshot().Score)

	h.scheduler.fire()
	require.Len(t, h.presenter.ends(), 1)
}

func TestSubmitBeforeExpiryTickStillScores(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	h.clock.advance(10 * time.Second)

	out, err := h.engine.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	require.True(t, out.Correct)
	require.Equal(t, 1, out.Awarded)

	// the expiry tick belonged to the previous question and must not end the new one
	h.scheduler.fireStale()
	require.Equal(t, domain.StatusAwaitingAnswer, h.engine.Snapshot().Status)
}

func TestSingleLiveTimer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	_, err := h.engine.SubmitAnswer(ctx, "4")
	require.NoError(t, err)

	require.Len(t, h.scheduler.all(), 3)
	require.Equal(t, 1, h.scheduler.live())

	before := len(h.presenter.ticks())
	h.scheduler.fireStale()
	require.Len(t, h.presenter.ticks(), before)

	h.scheduler.fire()
	require.Len(t, h.presenter.ticks(), before+1)
}

func TestSourceFailureCanBeRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.source.failNext(errors.New("backend down"))

	err := h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"})
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	snap := h.engine.Snapshot()
	require.Equal(t, domain.StatusAwaitingAnswer, snap.Status)
	require.Nil(t, snap.Question)
	require.Zero(t, h.scheduler.live())

	out, err := h.engine.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	require.True(t, out.Ignored)

	require.NoError(t, h.engine.Retry(ctx))
	require.NotNil(t, h.engine.Snapshot().Question)
	require.Equal(t, 1, h.scheduler.live())

	require.ErrorIs(t, h.engine.Retry(ctx), domain.ErrNoQuestionPending)
}

func TestInvalidQuestionIsASourceFailure(t *testing.T) {
	h := newHarness(t)
	h.source.override(domain.Question{Prompt: "?", Options: []string{"1", "1", "2", "3"}, Correct: "1"})

	err := h.engine.Start(context.Background(), domain.GameMath, domain.Player{ID: "u1"})
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	require.ErrorIs(t, err, domain.ErrInvalidQuestion)
}

func TestResetReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	h.engine.Reset()

	snap := h.engine.Snapshot()
	require.Equal(t, domain.StatusIdle, snap.Status)
	require.Zero(t, h.scheduler.live())

	h.scheduler.fireStale()
	require.Empty(t, h.presenter.ends())
}

func TestRestartClearsScore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	_, err := h.engine.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	_, err = h.engine.SubmitAnswer(ctx, "2")
	require.NoError(t, err)
	require.Equal(t, domain.StatusEnded, h.engine.Snapshot().Status)

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	snap := h.engine.Snapshot()
	require.Equal(t, 0, snap.Score)
	require.Equal(t, domain.EndNone, snap.EndReason)
	require.Equal(t, domain.StatusAwaitingAnswer, snap.Status)
}

func TestBlankPlayerNameDefaults(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start(context.Background(), domain.GameMath, domain.Player{ID: "u1", DisplayName: "  "}))
	require.Equal(t, domain.DefaultPlayerName, h.engine.Snapshot().Player.DisplayName)
}

func TestFinishedRoundIsSubmittedOnce(t *testing.T) {
	recorder := new(mockRecorder)
	observer := newChanObserver()
	recorder.On("SubmitScore", mock.Anything, mock.MatchedBy(func(r domain.RoundResult) bool {
		return r.RoundID == "round-1" && r.Score == 5 && r.Reason == domain.EndWrongAnswer && r.Player.ID == "u1" && r.GameType == domain.GameMath
	})).Return(nil).Once()

	ids := 0
	h := newHarness(t, engine.WithRecorder(recorder), engine.WithObserver(observer),
		engine.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("round-%d", ids)
		}))
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1", DisplayName: "Alice"}))
	require.Equal(t, "round-1", h.engine.Snapshot().ID)
	_, err := h.engine.SubmitAnswer(ctx, "4")
	require.NoError(t, err)
	_, err = h.engine.SubmitAnswer(ctx, "3")
	require.NoError(t, err)

	got := observer.wait(t)
	require.NoError(t, got.err)
	require.Equal(t, 5, got.result.Score)
	recorder.AssertExpectations(t)
}

func TestSubmissionFailureLeavesRoundAlone(t *testing.T) {
	recorder := new(mockRecorder)
	observer := newChanObserver()
	recorder.On("SubmitScore", mock.Anything, mock.Anything).Return(errors.New("db offline")).Once()

	h := newHarness(t, engine.WithRecorder(recorder), engine.WithObserver(observer))
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	_, err := h.engine.SubmitAnswer(ctx, "1")
	require.NoError(t, err)

	got := observer.wait(t)
	require.Error(t, got.err)
	require.Equal(t, domain.EndWrongAnswer, h.engine.Snapshot().EndReason)
	require.NoError(t, h.engine.Start(ctx, domain.GameMath, domain.Player{ID: "u1"}))
	recorder.AssertExpectations(t)
}

func TestTickerSchedulerDrivesTimeout(t *testing.T) {
	source := &stubSource{}
	presenter := &recordingPresenter{ended: make(chan struct{}, 1)}
	e := engine.New(registry{domain.GameMath: source}, presenter, engine.Config{
		QuestionTime: 40 * time.Millisecond,
		TickInterval: 5 * time.Millisecond,
	})

	require.NoError(t, e.Start(context.Background(), domain.GameMath, domain.Player{ID: "u1"}))

	select {
	case <-presenter.ended:
	case <-time.After(2 * time.Second):
		t.Fatalf("round did not time out")
	}
	require.Equal(t, domain.EndTimeout, e.Snapshot().EndReason)
}

// harness wires an engine to fakes for the clock, scheduler, source and presenter.
type harness struct {
	engine    *engine.Engine
	clock     *fakeClock
	scheduler *fakeScheduler
	source    *stubSource
	presenter *recordingPresenter
}

func newHarness(t *testing.T, opts ...engine.Option) *harness {
	t.Helper()
	h := &harness{
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		scheduler: &fakeScheduler{},
		source:    &stubSource{},
		presenter: &recordingPresenter{},
	}
	opts = append([]engine.Option{
		engine.WithClock(h.clock.Now),
		engine.WithScheduler(h.scheduler),
	}, opts...)
	h.engine = engine.New(registry{domain.GameMath: h.source}, h.presenter, engine.Config{}, opts...)
	return h
}

type registry map[domain.GameType]engine.QuestionSource

func (r registry) Source(gameType domain.GameType) (engine.QuestionSource, bool) {
	s, ok := r[gameType]
	return s, ok
}

type stubSource struct {
	mu         sync.Mutex
	difficulty []domain.Difficulty
	err        error
	next       *domain.Question
}

func (s *stubSource) NextQuestion(_ context.Context, d domain.Difficulty) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.difficulty = append(s.difficulty, d)
	if s.err != nil {
		err := s.err
		s.err = nil
		return domain.Question{}, err
	}
	if s.next != nil {
		q := *s.next
		s.next = nil
		return q, nil
	}
	return domain.Question{
		Prompt:  "2 + 2 = ?",
		Options: []string{"3", "1", "4", "2"},
		Correct: "4",
		Numeric: true,
	}, nil
}

func (s *stubSource) requested() []domain.Difficulty {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Difficulty(nil), s.difficulty...)
}

func (s *stubSource) failNext(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubSource) override(q domain.Question) {
	s.mu.Lock()
	s.next = &q
	s.mu.Unlock()
}

type roundEnd struct {
	score  int
	reason domain.EndReason
}

type recordingPresenter struct {
	mu        sync.Mutex
	log       []string
	questions []domain.Question
	tickLog   []time.Duration
	scoreLog  []int
	endLog    []roundEnd
	ended     chan struct{}
}

func (p *recordingPresenter) OnQuestionShown(q domain.Question) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, "question")
	p.questions = append(p.questions, q)
}

func (p *recordingPresenter) OnTimerTick(remaining time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, "tick")
	p.tickLog = append(p.tickLog, remaining)
}

func (p *recordingPresenter) OnScoreChanged(score int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, "score")
	p.scoreLog = append(p.scoreLog, score)
}

func (p *recordingPresenter) OnRoundEnded(finalScore int, reason domain.EndReason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, "ended")
	p.endLog = append(p.endLog, roundEnd{score: finalScore, reason: reason})
	if p.ended != nil {
		select {
		case p.ended <- struct{}{}:
		default:
		}
	}
}

func (p *recordingPresenter) events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.log...)
}

func (p *recordingPresenter) ticks() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.tickLog...)
}

func (p *recordingPresenter) scores() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.scoreLog...)
}

func (p *recordingPresenter) ends() []roundEnd {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]roundEnd(nil), p.endLog...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeScheduler keeps every registered callback so tests can fire live and stopped ones.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (s *fakeScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &fakeTimer{fn: fn}
	s.timers = append(s.timers, timer)
	return func() {
		s.mu.Lock()
		timer.stopped = true
		s.mu.Unlock()
	}
}

func (s *fakeScheduler) all() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeTimer(nil), s.timers...)
}

func (s *fakeScheduler) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, timer := range s.timers {
		if !timer.stopped {
			n++
		}
	}
	return n
}

func (s *fakeScheduler) pick(stopped bool) []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fns []func()
	for _, timer := range s.timers {
		if timer.stopped == stopped {
			fns = append(fns, timer.fn)
		}
	}
	return fns
}

// fire runs one tick on every live timer.
func (s *fakeScheduler) fire() {
	for _, fn := range s.pick(false) {
		fn()
	}
}

// fireStale runs callbacks of timers that were already stopped, as a late ticker goroutine would.
func (s *fakeScheduler) fireStale() {
	for _, fn := range s.pick(true) {
		fn()
	}
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) SubmitScore(ctx context.Context, result domain.RoundResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type submission struct {
	result domain.RoundResult
	err    error
}

type chanObserver struct {
	ch chan submission
}

func newChanObserver() *chanObserver {
	return &chanObserver{ch: make(chan submission, 4)}
}

func (o *chanObserver) OnScoreSubmitted(result domain.RoundResult, err error) {
	o.ch <- submission{result: result, err: err}
}

func (o *chanObserver) wait(t *testing.T) submission {
	t.Helper()
	select {
	case s := <-o.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("score submission not observed")
		return submission{}
	}
}
