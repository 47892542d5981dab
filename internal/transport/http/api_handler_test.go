package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/opentdb"
	"trivia-quiz-service/internal/prefs"
	"trivia-quiz-service/internal/scores"
	"trivia-quiz-service/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCategories struct {
	cats []opentdb.Category
	err  error
}

func (s stubCategories) Categories(context.Context) ([]opentdb.Category, error) { return s.cats, s.err }

type apiFixture struct {
	router http.Handler
	ledger *scores.Ledger
	agg    *stats.Aggregator
}

func newAPIFixture(cats CategoryLister) apiFixture {
	kv := memory.NewKVStore()
	ledger := scores.NewLedger(kv, nil)
	agg := stats.NewAggregator(kv, nil)
	api := NewAPIHandler(ledger, agg, prefs.NewStore(kv, domain.SourceRemote, nil), cats)
	return apiFixture{router: NewRouter(RouterConfig{APIHandler: api}), ledger: ledger, agg: agg}
}

func (f apiFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestScoresEndpoints(t *testing.T) {
	f := newAPIFixture(nil)
	ctx := context.Background()

	rec := f.do(http.MethodGet, "/api/scores/best", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, pct := range []int{20, 95, 60} {
		require.NoError(t, f.ledger.Record(ctx, domain.Result{Percentage: pct, TotalCount: 10}, "any"))
	}

	rec = f.do(http.MethodGet, "/api/scores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []domain.ScoreEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, 95, entries[0].Percentage)

	rec = f.do(http.MethodGet, "/api/scores/best", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var best domain.ScoreEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &best))
	assert.Equal(t, 95, best.Percentage)

	rec = f.do(http.MethodDelete, "/api/scores", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodGet, "/api/scores", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStatsEndpoints(t *testing.T) {
	f := newAPIFixture(nil)
	require.NoError(t, f.agg.Update(context.Background(), domain.Result{SessionID: "s1", CorrectCount: 4, TotalCount: 5, Percentage: 80}))

	rec := f.do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.TotalSessions)
	assert.Equal(t, 1, snap.CurrentStreak)
	assert.Empty(t, snap.RecentSessionIDs, "dedupe bookkeeping stays internal")

	rec = f.do(http.MethodDelete, "/api/stats", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodGet, "/api/stats", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 0, snap.TotalSessions)
}

func TestPreferencesEndpoints(t *testing.T) {
	f := newAPIFixture(nil)

	rec := f.do(http.MethodGet, "/api/preferences", "")
	assert.JSONEq(t, `{"source":"remote"}`, rec.Body.String())

	rec = f.do(http.MethodPut, "/api/preferences", `{"source":"local"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/api/preferences", "")
	assert.JSONEq(t, `{"source":"local"}`, rec.Body.String())

	rec = f.do(http.MethodPut, "/api/preferences", `{"source":"smoke-signals"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(http.MethodPut, "/api/preferences", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoriesEndpoint(t *testing.T) {
	rec := newAPIFixture(nil).do(http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f := newAPIFixture(stubCategories{cats: []opentdb.Category{{ID: 9, Name: "General Knowledge"}}})
	rec = f.do(http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":9,"name":"General Knowledge"}]`, rec.Body.String())

	f = newAPIFixture(stubCategories{err: domain.ErrRateLimited})
	rec = f.do(http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := newAPIFixture(nil).do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
