package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func TestLaunchRegistersReadySession(t *testing.T) {
	store := memory.NewSessionStore()
	service := newTestService(store, &fakeRemote{}, &fakeLocal{}, nil)

	session, err := service.Launch(context.Background(), remoteOptions(4))
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	if session.State().Phase != domain.PhaseReady {
		t.Fatalf("expected ready session, got %s", session.State().Phase)
	}
	got, err := service.Get(session.ID())
	if err != nil || got != session {
		t.Fatalf("expected registered session, got %v %v", got, err)
	}
}

func TestLaunchRejectsInvalidOptions(t *testing.T) {
	store := memory.NewSessionStore()
	service := newTestService(store, &fakeRemote{}, &fakeLocal{}, nil)

	_, err := service.Launch(context.Background(), domain.SessionOptions{Count: 0, TimeLimitSeconds: 10})
	if !errors.Is(err, domain.ErrInvalidOptions) {
		t.Fatalf("expected invalid options, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("invalid launch must not register a session")
	}
}

func TestLaunchKeepsErroredSessionForRetry(t *testing.T) {
	store := memory.NewSessionStore()
	local := &fakeLocal{empty: true}
	service := newTestService(store, nil, local, nil)

	session, err := service.Launch(context.Background(), localOptions(3))
	if !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected empty question set, got %v", err)
	}
	if session == nil || store.Len() != 1 {
		t.Fatalf("errored session should stay registered")
	}
	local.empty = false
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	service := newTestService(memory.NewSessionStore(), nil, &fakeLocal{}, nil)
	if _, err := service.Get("missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestCloseForgetsSession(t *testing.T) {
	store := memory.NewSessionStore()
	service := newTestService(store, nil, &fakeLocal{}, nil)
	session, err := service.Launch(context.Background(), localOptions(2))
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	service.Close(session.ID())
	if store.Len() != 0 {
		t.Fatalf("expected session removed")
	}
	if err := session.Begin(); !errors.Is(err, app.ErrSessionClosed) {
		t.Fatalf("expected closed session, got %v", err)
	}
}

func TestCompletionHandsOffToRecorderOnce(t *testing.T) {
	rec := &captureRecorder{}
	service := newTestService(memory.NewSessionStore(), nil, &fakeLocal{}, rec)

	opts := localOptions(2)
	opts.Difficulty = domain.DifficultyHard
	session, err := service.Launch(context.Background(), opts)
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	_ = session.Begin()
	_ = session.SelectAnswer(1)
	_, _ = session.CompleteNow()
	_, _ = session.CompleteNow()

	if len(rec.results) != 1 {
		t.Fatalf("expected exactly one recorded result, got %d", len(rec.results))
	}
	if rec.results[0].CorrectCount != 1 || rec.opts[0].Difficulty != domain.DifficultyHard {
		t.Fatalf("unexpected handoff %+v %+v", rec.results[0], rec.opts[0])
	}
	if rec.results[0].ElapsedMillis != 0 {
		t.Fatalf("fixed clock should give zero elapsed, got %d", rec.results[0].ElapsedMillis)
	}
}

func TestResultRecorderWritesScoresAndStats(t *testing.T) {
	scores := &fakeScores{}
	stats := &fakeStats{}
	rec := app.NewResultRecorder(scores, stats, nil)

	opts := localOptions(1)
	opts.Difficulty = domain.DifficultyMedium
	rec.Record(context.Background(), domain.Result{SessionID: "a1", CorrectCount: 1, TotalCount: 1, Percentage: 100}, opts)

	if len(scores.labels) != 1 || scores.labels[0] != "medium" {
		t.Fatalf("expected one score with medium label, got %v", scores.labels)
	}
	if stats.updates != 1 {
		t.Fatalf("expected one stats update, got %d", stats.updates)
	}
}

func TestResultRecorderSwallowsStorageErrors(t *testing.T) {
	scores := &fakeScores{err: errors.New("disk full")}
	stats := &fakeStats{err: domain.ErrAlreadyRecorded}
	rec := app.NewResultRecorder(scores, stats, nil)

	// must not panic or block
	rec.Record(context.Background(), domain.Result{SessionID: "a1"}, localOptions(1))

	if stats.updates != 1 {
		t.Fatalf("stats update should still be attempted after a score failure")
	}
}

func newTestService(store *memory.SessionStore, remote app.RemoteSource, local app.LocalSource, rec app.Recorder) *app.QuizService {
	cfg := app.ServiceConfig{MaxAttempts: 2, TickInterval: -1}
	fixed := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	return app.NewQuizServiceWithClock(store, remote, local, rec, cfg, func() time.Time { return fixed })
}

type captureRecorder struct {
	mu      sync.Mutex
	results []domain.Result
	opts    []domain.SessionOptions
}

func (c *captureRecorder) Record(_ context.Context, result domain.Result, opts domain.SessionOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
	c.opts = append(c.opts, opts)
}

type fakeScores struct {
	labels []string
	err    error
}

func (f *fakeScores) Record(_ context.Context, _ domain.Result, difficultyLabel string) error {
	f.labels = append(f.labels, difficultyLabel)
	return f.err
}

type fakeStats struct {
	updates int
	err     error
}

func (f *fakeStats) Update(_ context.Context, _ domain.Result) error {
	f.updates++
	return f.err
}
