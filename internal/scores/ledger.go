// Package scores keeps the ranked history of completed attempts.
package scores

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	Key        = "quiz:scores"
	MaxEntries = 10
)

// Ledger stores the top entries by percentage. Ties keep the most recent entry first.
type Ledger struct {
	store storage.Store
	log   logrus.FieldLogger
	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

func NewLedger(store storage.Store, log logrus.FieldLogger) *Ledger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ledger{
		store: store,
		log:   log.WithField("key", Key),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// NewLedgerWithClock is test-only for deterministic timestamps.
func NewLedgerWithClock(store storage.Store, log logrus.FieldLogger, now func() time.Time) *Ledger {
	l := NewLedger(store, log)
	l.now = now
	return l
}

// Record adds an entry for result and trims the ledger to MaxEntries.
func (l *Ledger) Record(ctx context.Context, result domain.Result, difficultyLabel string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		return err
	}
	entry := domain.ScoreEntry{
		ID:           l.newID(),
		Percentage:   result.Percentage,
		CorrectCount: result.CorrectCount,
		TotalCount:   result.TotalCount,
		Difficulty:   difficultyLabel,
		RecordedAt:   l.now(),
	}
	entries = append([]domain.ScoreEntry{entry}, entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Percentage > entries[j].Percentage
	})
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return storage.SetJSON(ctx, l.store, Key, entries)
}

// List returns entries ordered by percentage, highest first.
func (l *Ledger) List(ctx context.Context) ([]domain.ScoreEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Best returns the top entry, if any.
func (l *Ledger) Best(ctx context.Context) (domain.ScoreEntry, bool, error) {
	entries, err := l.List(ctx)
	if err != nil || len(entries) == 0 {
		return domain.ScoreEntry{}, false, err
	}
	return entries[0], true, nil
}

// Clear removes every entry.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Remove(ctx, Key)
}

// load treats a corrupt stored value as an empty ledger.
func (l *Ledger) load(ctx context.Context) ([]domain.ScoreEntry, error) {
	var entries []domain.ScoreEntry
	_, err := storage.GetJSON(ctx, l.store, Key, &entries)
	if errors.Is(err, domain.ErrStorageCorrupt) {
		l.log.WithError(err).Warn("discarding corrupt score ledger")
		return []domain.ScoreEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.ScoreEntry{}
	}
	return entries, nil
}
