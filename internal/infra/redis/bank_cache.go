package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const bankKey = "quiz:bank"

// BankLoader fetches the question bank from its system of record (e.g. Postgres).
type BankLoader interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// BankCache keeps the question bank as a JSON blob in Redis and falls back to a loader on miss.
// Concurrent misses collapse into one load.
type BankCache struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewBankCache(client *redis.Client, loader BankLoader, ttl time.Duration) *BankCache {
	return &BankCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BankCache) Questions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := c.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(bankKey, func() (interface{}, error) {
		// another caller may have filled the cache meanwhile
		if qs, ok := c.cached(ctx); ok {
			return qs, nil
		}

		qs, err := c.loader.Questions(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(qs); err == nil {
			_ = c.client.Set(ctx, bankKey, raw, c.ttlWithJitter()).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached bank so the next read reloads it.
func (c *BankCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, bankKey).Err()
}

func (c *BankCache) cached(ctx context.Context) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, bankKey).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (c *BankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
