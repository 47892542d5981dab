package scores_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/scores"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(store *memory.KVStore) *scores.Ledger {
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	return scores.NewLedgerWithClock(store, nil, func() time.Time {
		at = at.Add(time.Minute)
		return at
	})
}

func result(pct int) domain.Result {
	return domain.Result{Percentage: pct, CorrectCount: pct / 10, TotalCount: 10}
}

func TestBestAfterMixedRecords(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(memory.NewKVStore())

	for _, pct := range []int{20, 95, 60} {
		require.NoError(t, ledger.Record(ctx, result(pct), "easy"))
	}
	best, ok, err := ledger.Best(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 95, best.Percentage)
	assert.Equal(t, "easy", best.Difficulty)
	assert.NotEmpty(t, best.ID)
}

func TestLedgerKeepsTopTen(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(memory.NewKVStore())

	for pct := 10; pct <= 100; pct += 10 {
		require.NoError(t, ledger.Record(ctx, result(pct), "any"))
	}
	require.NoError(t, ledger.Record(ctx, result(55), "any"))

	entries, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, scores.MaxEntries)
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].Percentage, entries[i].Percentage)
	}
	assert.Equal(t, 20, entries[len(entries)-1].Percentage, "lowest entry (10%) should be evicted")
}

func TestLedgerTiesMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(memory.NewKVStore())

	require.NoError(t, ledger.Record(ctx, result(80), "easy"))
	require.NoError(t, ledger.Record(ctx, result(80), "hard"))

	entries, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hard", entries[0].Difficulty)
	assert.True(t, entries[0].RecordedAt.After(entries[1].RecordedAt))
}

func TestLedgerClear(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(memory.NewKVStore())
	require.NoError(t, ledger.Record(ctx, result(50), "any"))
	require.NoError(t, ledger.Clear(ctx))

	entries, err := ledger.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, ok, err := ledger.Best(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerRecoversFromCorruptValue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	require.NoError(t, store.Set(ctx, scores.Key, []byte("{not json")))
	ledger := newLedger(store)

	entries, err := ledger.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, ledger.Record(ctx, result(70), "medium"))
	entries, err = ledger.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type brokenStore struct{ *memory.KVStore }

func (brokenStore) Set(context.Context, string, []byte) error { return errors.New("read-only") }

func TestLedgerSurfacesWriteErrors(t *testing.T) {
	ledger := scores.NewLedger(brokenStore{memory.NewKVStore()}, nil)
	assert.Error(t, ledger.Record(context.Background(), result(10), "any"))
}
