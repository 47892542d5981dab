package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// BankLoader fetches the local question bank from a backing store (embedded file, Postgres).
type BankLoader interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// BankRepository caches the question bank with TTL to avoid repeated loader hits.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.Question
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Questions returns the cached bank, reloading it once per expiry across concurrent callers.
func (r *BankRepository) Questions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := r.cached(r.clock()); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do("bank", func() (interface{}, error) {
		now := r.clock()
		if qs, ok := r.cached(now); ok {
			return qs, nil
		}

		qs, err := r.loader.Questions(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.questions = qs
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *BankRepository) cached(now time.Time) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.questions != nil && r.expiresAt.After(now) {
		return r.questions, true
	}
	return nil, false
}

// StaticBank is a loader backed by a fixed slice (useful for tests/demos).
type StaticBank struct {
	questions []domain.Question
}

func NewStaticBank(questions []domain.Question) *StaticBank {
	return &StaticBank{questions: questions}
}

func (b *StaticBank) Questions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(b.questions))
	copy(out, b.questions)
	return out, nil
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
