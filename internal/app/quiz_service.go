package app

import (
	"context"
	"time"

	"trivia-quiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionRepository abstracts where live session handles are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Add(session *Session)
	Get(id string) (*Session, bool)
	Remove(id string)
}

// Recorder receives each completed attempt exactly once.
type Recorder interface {
	Record(ctx context.Context, result domain.Result, opts domain.SessionOptions)
}

// ServiceConfig tunes sessions created by the service.
type ServiceConfig struct {
	MaxAttempts int
	// TickInterval defaults to one second; a negative value disables automatic ticking.
	TickInterval time.Duration
	Logger       logrus.FieldLogger
}

// QuizService is the session launch surface.
type QuizService struct {
	sessions SessionRepository
	remote   RemoteSource
	local    LocalSource
	recorder Recorder
	cfg      ServiceConfig
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewQuizService(sessions SessionRepository, remote RemoteSource, local LocalSource, recorder Recorder, cfg ServiceConfig) *QuizService {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	return &QuizService{
		sessions: sessions,
		remote:   remote,
		local:    local,
		recorder: recorder,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(sessions SessionRepository, remote RemoteSource, local LocalSource, recorder Recorder, cfg ServiceConfig, now func() time.Time) *QuizService {
	s := NewQuizService(sessions, remote, local, recorder, cfg)
	s.now = now
	return s
}

// Launch creates a session, registers it and sources its questions. The
// session is returned (and stays registered) even when loading fails so the
// caller can retry it.
func (s *QuizService) Launch(ctx context.Context, opts domain.SessionOptions) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	session := NewSession(uuid.NewString(), opts, SessionConfig{
		Remote:       s.remote,
		Local:        s.local,
		MaxAttempts:  s.cfg.MaxAttempts,
		OnComplete:   s.handoff,
		Logger:       s.log,
		TickInterval: s.cfg.TickInterval,
		Now:          s.now,
	})
	s.sessions.Add(session)

	if err := session.Start(ctx); err != nil {
		return session, err
	}
	return session, nil
}

// Get looks up a live session handle.
func (s *QuizService) Get(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close stops a session and forgets it.
func (s *QuizService) Close(id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Remove(id)
}

func (s *QuizService) handoff(result domain.Result, opts domain.SessionOptions) {
	if s.recorder == nil {
		return
	}
	// the launching request context may already be gone when the countdown completes a session
	s.recorder.Record(context.Background(), result, opts)
}
