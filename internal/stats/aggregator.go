// Package stats maintains running totals across completed attempts.
package stats

import (
	"context"
	"errors"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/storage"

	"github.com/sirupsen/logrus"
)

const (
	Key = "quiz:stats"
	// StreakThreshold is the minimum percentage that extends the streak.
	StreakThreshold = 70
	recentIDLimit   = 50
)

type Aggregator struct {
	store storage.Store
	log   logrus.FieldLogger
	now   func() time.Time

	mu sync.Mutex
}

func NewAggregator(store storage.Store, log logrus.FieldLogger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{store: store, log: log.WithField("key", Key), now: time.Now}
}

// NewAggregatorWithClock is test-only for deterministic timestamps.
func NewAggregatorWithClock(store storage.Store, log logrus.FieldLogger, now func() time.Time) *Aggregator {
	a := NewAggregator(store, log)
	a.now = now
	return a
}

// Update folds result into the snapshot. A result whose session id was
// applied recently is rejected with domain.ErrAlreadyRecorded.
func (a *Aggregator) Update(ctx context.Context, result domain.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap, err := a.load(ctx)
	if err != nil {
		return err
	}
	if result.SessionID != "" {
		for _, id := range snap.RecentSessionIDs {
			if id == result.SessionID {
				return domain.ErrAlreadyRecorded
			}
		}
		snap.RecentSessionIDs = append(snap.RecentSessionIDs, result.SessionID)
		if n := len(snap.RecentSessionIDs); n > recentIDLimit {
			snap.RecentSessionIDs = snap.RecentSessionIDs[n-recentIDLimit:]
		}
	}

	snap.TotalSessions++
	snap.TotalQuestions += result.TotalCount
	snap.TotalCorrect += result.CorrectCount
	snap.AveragePercentage = domain.Percentage(snap.TotalCorrect, snap.TotalQuestions)
	if result.Percentage >= StreakThreshold {
		snap.CurrentStreak++
	} else {
		snap.CurrentStreak = 0
	}
	if snap.CurrentStreak > snap.BestStreak {
		snap.BestStreak = snap.CurrentStreak
	}
	snap.TotalTimeMillis += result.ElapsedMillis
	snap.LastPlayedAt = a.now()

	return storage.SetJSON(ctx, a.store, Key, snap)
}

func (a *Aggregator) Snapshot(ctx context.Context) (domain.StatsSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)
}

// Reset zeroes every field.
func (a *Aggregator) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Remove(ctx, Key)
}

func (a *Aggregator) load(ctx context.Context) (domain.StatsSnapshot, error) {
	var snap domain.StatsSnapshot
	_, err := storage.GetJSON(ctx, a.store, Key, &snap)
	if errors.Is(err, domain.ErrStorageCorrupt) {
		a.log.WithError(err).Warn("discarding corrupt statistics")
		return domain.StatsSnapshot{}, nil
	}
	return snap, err
}
