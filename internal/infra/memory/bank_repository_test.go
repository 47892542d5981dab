package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
)

type countingLoader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (l *countingLoader) Questions(_ context.Context) ([]domain.Question, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return []domain.Question{{ID: 1, Prompt: "q", Options: []string{"a", "b"}, CorrectIndex: 0}}, nil
}

func TestBankRepositoryCachesUntilExpiry(t *testing.T) {
	loader := &countingLoader{}
	repo := NewBankRepository(loader, time.Minute)
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := repo.Questions(context.Background()); err != nil {
			t.Fatalf("questions: %v", err)
		}
	}
	if loader.calls != 1 {
		t.Fatalf("expected one load, got %d", loader.calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := repo.Questions(context.Background()); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d", loader.calls)
	}
}

func TestBankRepositoryPropagatesLoaderError(t *testing.T) {
	loader := &countingLoader{err: errors.New("db down")}
	repo := NewBankRepository(loader, time.Minute)
	if _, err := repo.Questions(context.Background()); err == nil {
		t.Fatalf("expected loader error")
	}
}

func TestStaticBankReturnsCopy(t *testing.T) {
	bank := NewStaticBank([]domain.Question{{ID: 1}, {ID: 2}})
	qs, _ := bank.Questions(context.Background())
	qs[0].ID = 99
	again, _ := bank.Questions(context.Background())
	if again[0].ID != 1 {
		t.Fatalf("static bank must not alias its slice")
	}
}
