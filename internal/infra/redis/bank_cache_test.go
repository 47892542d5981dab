package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
)

type countingLoader struct {
	calls int
	err   error
}

func (l *countingLoader) Questions(context.Context) ([]domain.Question, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return []domain.Question{
		{ID: 1, Category: "Science", Difficulty: domain.DifficultyEasy, Prompt: "H2O is?", Options: []string{"water", "salt"}, CorrectIndex: 0},
	}, nil
}

func TestBankCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{}
	cache := NewBankCache(newClient(mr), loader, time.Minute)

	qs, err := cache.Questions(context.Background())
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 1 || loader.calls != 1 {
		t.Fatalf("expected one question from one load, got %d/%d", len(qs), loader.calls)
	}
	if !mr.Exists(bankKey) {
		t.Fatalf("expected bank cached in redis")
	}
	if ttl := mr.TTL(bankKey); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	// second call hits the cache
	qs, _ = cache.Questions(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if qs[0].Options[qs[0].CorrectIndex] != "water" {
		t.Fatalf("cached question lost its answer: %+v", qs[0])
	}

	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.Questions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestBankCacheIgnoresCorruptEntry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	_ = mr.Set(bankKey, "garbage")

	loader := &countingLoader{}
	cache := NewBankCache(newClient(mr), loader, time.Minute)
	if _, err := cache.Questions(context.Background()); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader used for corrupt cache entry")
	}
}

func TestBankCachePropagatesLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewBankCache(newClient(mr), &countingLoader{err: errors.New("db down")}, time.Minute)
	if _, err := cache.Questions(context.Background()); err == nil {
		t.Fatalf("expected loader error")
	}
}
