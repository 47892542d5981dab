package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrLoadSuperseded is returned by Start when a restart or close replaced the load in flight.
var ErrLoadSuperseded = errors.New("question load superseded")

// ErrSessionClosed is returned for any operation after Close.
var ErrSessionClosed = errors.New("quiz session closed")

// RemoteSource fetches questions from the trivia provider.
type RemoteSource interface {
	FetchWithRetry(ctx context.Context, opts domain.SessionOptions, maxAttempts int) ([]domain.Question, error)
}

// LocalSource draws questions from the bundled pool.
type LocalSource interface {
	Draw(ctx context.Context, opts domain.SessionOptions) ([]domain.Question, error)
}

// CompletionFunc receives the result of a completed attempt. It is called once per attempt.
type CompletionFunc func(domain.Result, domain.SessionOptions)

// SessionConfig wires a Session to its collaborators.
type SessionConfig struct {
	Remote      RemoteSource
	Local       LocalSource
	MaxAttempts int
	OnComplete  CompletionFunc
	Logger      logrus.FieldLogger

	// TickInterval drives the countdown from a ticker goroutine. Zero leaves
	// the countdown to explicit Tick calls.
	TickInterval time.Duration

	Now   func() time.Time
	NewID func() string
}

// Session owns the state of one quiz handle. Restart replaces the attempt
// (new attempt id, new questions) while the handle id stays the same.
type Session struct {
	id           string
	opts         domain.SessionOptions
	remote       RemoteSource
	local        LocalSource
	maxAttempts  int
	onComplete   CompletionFunc
	log          logrus.FieldLogger
	tickInterval time.Duration
	now          func() time.Time
	newID        func() string

	mu          sync.Mutex
	st          domain.SessionState
	result      *domain.Result
	started     bool
	closed      bool
	loadGen     uint64
	cancelLoad  context.CancelFunc
	timerGen    uint64
	timerStop   chan struct{}
	pending     func()
	subscribers map[chan domain.SessionState]struct{}
}

func NewSession(id string, opts domain.SessionOptions, cfg SessionConfig) *Session {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	s := &Session{
		id:           id,
		opts:         opts,
		remote:       cfg.Remote,
		local:        cfg.Local,
		maxAttempts:  cfg.MaxAttempts,
		onComplete:   cfg.OnComplete,
		log:          cfg.Logger.WithField("session_id", id),
		tickInterval: cfg.TickInterval,
		now:          cfg.Now,
		newID:        cfg.NewID,
		subscribers:  make(map[chan domain.SessionState]struct{}),
	}
	s.st = domain.SessionState{
		Options: opts,
		Phase:   domain.PhaseLoading,
		Answers: map[int]int{},
		Skipped: map[int]bool{},
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Options() domain.SessionOptions { return s.opts }

// unlock releases the mutex and then runs a completion hook queued while it was held.
func (s *Session) unlock() {
	hook := s.pending
	s.pending = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Start sources questions and moves the session to ready. It is valid for a
// fresh session and as the retry from errored.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.started && s.st.Phase != domain.PhaseErrored && s.st.Phase != domain.PhaseLoading {
		phase := s.st.Phase
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", domain.ErrInvalidPhase, phase)
	}
	return s.load(ctx)
}

// Restart discards all state and sources a brand-new question set.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	return s.load(ctx)
}

// load is entered with s.mu held and releases it while the fetch is in flight.
func (s *Session) load(ctx context.Context) error {
	s.stopTimerLocked()
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.started = true
	s.result = nil
	s.loadGen++
	gen := s.loadGen
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	s.st = domain.SessionState{
		SessionID: s.newID(),
		Options:   s.opts,
		Phase:     domain.PhaseLoading,
		Answers:   map[int]int{},
		Skipped:   map[int]bool{},
	}
	s.broadcastLocked()
	s.mu.Unlock()

	questions, notice, err := s.source(loadCtx)
	cancel()

	s.mu.Lock()
	defer s.unlock()
	if gen != s.loadGen || s.closed {
		return ErrLoadSuperseded
	}
	s.cancelLoad = nil
	if err != nil {
		s.st.Phase = domain.PhaseErrored
		s.st.Err = err.Error()
		s.log.WithError(err).Warn("question load failed")
		s.broadcastLocked()
		return err
	}

	s.st.Questions = questions
	s.st.CurrentIndex = 0
	s.st.Notice = notice
	s.st.RemainingSeconds = s.opts.TimeLimitSeconds
	s.st.Phase = domain.PhaseReady
	s.log.WithField("questions", len(questions)).Info("session ready")
	s.broadcastLocked()
	return nil
}

// source runs the remote fetch (with retry) and, as a separate step, the local fallback.
func (s *Session) source(ctx context.Context) ([]domain.Question, domain.Notice, error) {
	if s.opts.Source != domain.SourceRemote || s.remote == nil {
		qs, err := s.drawLocal(ctx)
		if err != nil {
			return nil, domain.NoticeNone, err
		}
		return qs, domain.NoticeNone, nil
	}

	qs, remoteErr := s.remote.FetchWithRetry(ctx, s.opts, s.maxAttempts)
	if remoteErr == nil && len(qs) > 0 {
		return qs, domain.NoticeNone, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, domain.NoticeNone, ctxErr
	}
	if remoteErr == nil {
		remoteErr = domain.ErrNoResults
	}
	s.log.WithError(remoteErr).Warn("remote questions unavailable, falling back to local pool")

	qs, localErr := s.drawLocal(ctx)
	if localErr != nil {
		return nil, domain.NoticeNone, fmt.Errorf("%w (remote: %w)", localErr, remoteErr)
	}
	return qs, domain.NoticeOfflineFallback, nil
}

func (s *Session) drawLocal(ctx context.Context) ([]domain.Question, error) {
	if s.local == nil {
		return nil, domain.ErrEmptyQuestionSet
	}
	qs, err := s.local.Draw(ctx, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmptyQuestionSet, err)
	}
	if len(qs) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}
	return qs, nil
}

// Begin starts the first question's countdown.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.requirePhaseLocked(domain.PhaseReady); err != nil {
		return err
	}
	now := s.now()
	s.st.StartedAt = &now
	s.st.Phase = domain.PhaseRunning
	s.startTimerLocked()
	s.broadcastLocked()
	return nil
}

// SelectAnswer records (or replaces) the answer for the question in view.
func (s *Session) SelectAnswer(choice int) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.requirePhaseLocked(domain.PhaseRunning); err != nil {
		return err
	}
	return s.selectLocked(choice)
}

// SelectAnswerFor is SelectAnswer bound to the question the caller was shown.
// It returns ErrStaleQuestion when the countdown or another command moved on.
func (s *Session) SelectAnswerFor(questionID, choice int) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.requireQuestionLocked(questionID); err != nil {
		return err
	}
	return s.selectLocked(choice)
}

func (s *Session) selectLocked(choice int) error {
	q := s.st.Questions[s.st.CurrentIndex]
	if choice < 0 || choice >= len(q.Options) {
		return fmt.Errorf("%w: %d of %d", domain.ErrInvalidChoice, choice, len(q.Options))
	}
	s.st.Answers[q.ID] = choice
	delete(s.st.Skipped, q.ID)
	s.broadcastLocked()
	return nil
}

// Advance moves to the next question, or completes the session on the last one.
// Advancing without an answer records a skip.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.requirePhaseLocked(domain.PhaseRunning); err != nil {
		return err
	}
	s.advanceLocked()
	return nil
}

// AdvanceFrom advances only while questionID is still in view.
func (s *Session) AdvanceFrom(questionID int) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.requireQuestionLocked(questionID); err != nil {
		return err
	}
	s.advanceLocked()
	return nil
}

// AnswerAndAdvance records choice for questionID and moves on in one step.
func (s *Session) AnswerAndAdvance(questionID, choice int) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.requireQuestionLocked(questionID); err != nil {
		return err
	}
	if err := s.selectLocked(choice); err != nil {
		return err
	}
	s.advanceLocked()
	return nil
}

// Retreat goes back one question without touching recorded answers.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.requirePhaseLocked(domain.PhaseRunning); err != nil {
		return err
	}
	if s.st.CurrentIndex == 0 {
		return domain.ErrNothingToRetreat
	}
	s.st.CurrentIndex--
	s.startTimerLocked()
	s.broadcastLocked()
	return nil
}

// CompleteNow finishes the session. Calling it again returns the same Result.
func (s *Session) CompleteNow() (domain.Result, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.st.Phase == domain.PhaseCompleted && s.result != nil {
		return *s.result, nil
	}
	if err := s.requirePhaseLocked(domain.PhaseRunning); err != nil {
		return domain.Result{}, err
	}
	s.completeLocked()
	return *s.result, nil
}

// Tick advances the countdown by one second. It is a no-op when no countdown is running.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.unlock()
	s.tickLocked(s.timerGen)
}

func (s *Session) tick(gen uint64) bool {
	s.mu.Lock()
	defer s.unlock()
	return s.tickLocked(gen)
}

// tickLocked reports whether the countdown identified by gen is still live.
func (s *Session) tickLocked(gen uint64) bool {
	if gen != s.timerGen || !s.st.TimerRunning || s.st.Phase != domain.PhaseRunning {
		return false
	}
	if s.st.RemainingSeconds > 0 {
		s.st.RemainingSeconds--
	}
	if s.st.RemainingSeconds == 0 {
		s.log.WithField("question", s.st.CurrentIndex).Debug("time up")
		s.advanceLocked()
		return false
	}
	s.broadcastLocked()
	return true
}

func (s *Session) advanceLocked() {
	q := s.st.Questions[s.st.CurrentIndex]
	if _, answered := s.st.Answers[q.ID]; !answered {
		s.st.Skipped[q.ID] = true
	}
	if s.st.CurrentIndex == len(s.st.Questions)-1 {
		s.completeLocked()
		return
	}
	s.st.CurrentIndex++
	s.startTimerLocked()
	s.broadcastLocked()
}

func (s *Session) completeLocked() {
	s.stopTimerLocked()
	for _, q := range s.st.Questions {
		if _, answered := s.st.Answers[q.ID]; !answered {
			s.st.Skipped[q.ID] = true
		}
	}
	ended := s.now()
	s.st.EndedAt = &ended
	s.st.Phase = domain.PhaseCompleted
	result := computeResult(s.st)
	s.result = &result
	s.log.WithFields(logrus.Fields{
		"correct": result.CorrectCount,
		"total":   result.TotalCount,
		"percent": result.Percentage,
	}).Info("session completed")
	s.broadcastLocked()

	if s.onComplete != nil {
		hook, opts := s.onComplete, s.opts
		s.pending = func() { hook(result, opts) }
	}
}

func (s *Session) requirePhaseLocked(want domain.Phase) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.st.Phase != want {
		return fmt.Errorf("%w: want %s, have %s", domain.ErrInvalidPhase, want, s.st.Phase)
	}
	return nil
}

func (s *Session) requireQuestionLocked(questionID int) error {
	if err := s.requirePhaseLocked(domain.PhaseRunning); err != nil {
		return err
	}
	if current := s.st.Questions[s.st.CurrentIndex].ID; current != questionID {
		return fmt.Errorf("%w: question %d, now showing %d", domain.ErrStaleQuestion, questionID, current)
	}
	return nil
}

// Close stops the countdown, cancels any fetch in flight and closes subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// State returns a copy of the current state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Result returns the result once the session completed.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// Subscribe returns a channel receiving state snapshots after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionState, func()) {
	ch := make(chan domain.SessionState, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	// fresh buffered channel, so this cannot block
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest pending snapshot so slow readers never block the session
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionState {
	out := s.st
	out.Questions = append([]domain.Question(nil), s.st.Questions...)
	out.Answers = make(map[int]int, len(s.st.Answers))
	for k, v := range s.st.Answers {
		out.Answers[k] = v
	}
	out.Skipped = make(map[int]bool, len(s.st.Skipped))
	for k, v := range s.st.Skipped {
		out.Skipped[k] = v
	}
	if s.st.StartedAt != nil {
		t := *s.st.StartedAt
		out.StartedAt = &t
	}
	if s.st.EndedAt != nil {
		t := *s.st.EndedAt
		out.EndedAt = &t
	}
	return out
}
