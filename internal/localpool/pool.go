// Package localpool serves questions from a fixed local dataset.
package localpool

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
)

// Bank provides the full local dataset.
type Bank interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// Pool draws session question sets from a Bank.
type Pool struct {
	bank Bank

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPool(bank Bank) *Pool {
	return NewPoolWithSeed(bank, time.Now().UnixNano())
}

// NewPoolWithSeed is used by tests for reproducible draws.
func NewPoolWithSeed(bank Bank, seed int64) *Pool {
	return &Pool{bank: bank, rnd: rand.New(rand.NewSource(seed))}
}

// Draw returns exactly opts.Count questions matching the difficulty filter,
// repeating (with a fresh shuffle each pass) when the filtered set is smaller
// than requested. An empty filtered set yields an empty slice and no error.
func (p *Pool) Draw(ctx context.Context, opts domain.SessionOptions) ([]domain.Question, error) {
	all, err := p.bank.Questions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local bank: %w", err)
	}

	filtered := make([]domain.Question, 0, len(all))
	for _, q := range all {
		if opts.Difficulty == domain.DifficultyAny || q.Difficulty == opts.Difficulty {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) == 0 || opts.Count <= 0 {
		return []domain.Question{}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Question, 0, opts.Count)
	for len(out) < opts.Count {
		working := append([]domain.Question(nil), filtered...)
		p.rnd.Shuffle(len(working), func(i, j int) { working[i], working[j] = working[j], working[i] })
		for _, q := range working {
			if len(out) == opts.Count {
				break
			}
			out = append(out, cloneQuestion(q))
		}
	}
	for i := range out {
		out[i].ID = i + 1
	}
	return out, nil
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
