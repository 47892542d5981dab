package stats_test

import (
	"context"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/stats"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var playedAt = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

func newAggregator(store *memory.KVStore) *stats.Aggregator {
	return stats.NewAggregatorWithClock(store, nil, func() time.Time { return playedAt })
}

func attempt(correct, total int, elapsed int64) domain.Result {
	return domain.Result{
		SessionID:     uuid.NewString(),
		CorrectCount:  correct,
		TotalCount:    total,
		Percentage:    domain.Percentage(correct, total),
		ElapsedMillis: elapsed,
	}
}

func TestStreakResetsBelowThreshold(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(memory.NewKVStore())

	require.NoError(t, agg.Update(ctx, attempt(8, 10, 1000)))
	require.NoError(t, agg.Update(ctx, attempt(5, 10, 2000)))
	require.NoError(t, agg.Update(ctx, attempt(9, 10, 3000)))

	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentStreak)
	assert.Equal(t, 1, snap.BestStreak)
	assert.Equal(t, 3, snap.TotalSessions)
	assert.Equal(t, 30, snap.TotalQuestions)
	assert.Equal(t, 22, snap.TotalCorrect)
	assert.Equal(t, 73, snap.AveragePercentage)
	assert.Equal(t, int64(6000), snap.TotalTimeMillis)
	assert.True(t, snap.LastPlayedAt.Equal(playedAt))
}

func TestStreakThresholdIsInclusive(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(memory.NewKVStore())

	require.NoError(t, agg.Update(ctx, attempt(7, 10, 0)))
	require.NoError(t, agg.Update(ctx, attempt(10, 10, 0)))
	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentStreak)
	assert.Equal(t, 2, snap.BestStreak)
}

func TestDuplicateSessionIsRejected(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(memory.NewKVStore())

	r := attempt(3, 5, 100)
	require.NoError(t, agg.Update(ctx, r))
	assert.ErrorIs(t, agg.Update(ctx, r), domain.ErrAlreadyRecorded)

	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalSessions)
}

func TestRecentSessionIDsAreBounded(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(memory.NewKVStore())

	for i := 0; i < 60; i++ {
		require.NoError(t, agg.Update(ctx, attempt(1, 1, 0)))
	}
	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.RecentSessionIDs, 50)
	assert.Equal(t, 60, snap.TotalSessions)
}

func TestResetZeroesSnapshot(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(memory.NewKVStore())
	require.NoError(t, agg.Update(ctx, attempt(1, 2, 10)))
	require.NoError(t, agg.Reset(ctx))

	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatsSnapshot{}, snap)
}

func TestCorruptStatsFallBackToZero(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	require.NoError(t, store.Set(ctx, stats.Key, []byte(`{"totalSessions":"many"}`)))
	agg := newAggregator(store)

	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatsSnapshot{}, snap)

	require.NoError(t, agg.Update(ctx, attempt(2, 2, 0)))
	snap, err = agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalSessions)
}
