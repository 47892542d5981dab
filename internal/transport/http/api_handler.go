package http

import (
	"context"
	"encoding/json"
	"net/http"

	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/opentdb"
	"trivia-quiz-service/internal/prefs"

	"github.com/go-chi/chi/v5"
)

type ScoreBoard interface {
	List(ctx context.Context) ([]domain.ScoreEntry, error)
	Best(ctx context.Context) (domain.ScoreEntry, bool, error)
	Clear(ctx context.Context) error
}

type StatsBoard interface {
	Snapshot(ctx context.Context) (domain.StatsSnapshot, error)
	Reset(ctx context.Context) error
}

type PreferenceStore interface {
	Get(ctx context.Context) (prefs.Preferences, error)
	SetSource(ctx context.Context, mode domain.SourceMode) error
}

type CategoryLister interface {
	Categories(ctx context.Context) ([]opentdb.Category, error)
}

// APIHandler serves the REST side: score history, statistics, preferences and categories.
type APIHandler struct {
	scores     ScoreBoard
	stats      StatsBoard
	prefs      PreferenceStore
	categories CategoryLister
}

// NewAPIHandler wires the REST handlers. categories may be nil when no provider is configured.
func NewAPIHandler(scores ScoreBoard, stats StatsBoard, prefs PreferenceStore, categories CategoryLister) *APIHandler {
	return &APIHandler{scores: scores, stats: stats, prefs: prefs, categories: categories}
}

func Routes(h *APIHandler) chi.Router {
	r := chi.NewRouter()

	r.Get("/scores", h.ListScores)
	r.Get("/scores/best", h.BestScore)
	r.Delete("/scores", h.ClearScores)
	r.Get("/stats", h.GetStats)
	r.Delete("/stats", h.ResetStats)
	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.PutPreferences)
	r.Get("/categories", h.ListCategories)
	return r
}

func (h *APIHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scores.List(r.Context())
	if err != nil {
		config.WithContext(r.Context()).WithError(err).Error("list scores failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) BestScore(w http.ResponseWriter, r *http.Request) {
	best, ok, err := h.scores.Best(r.Context())
	if err != nil {
		config.WithContext(r.Context()).WithError(err).Error("best score failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no scores recorded", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, best)
}

func (h *APIHandler) ClearScores(w http.ResponseWriter, r *http.Request) {
	if err := h.scores.Clear(r.Context()); err != nil {
		config.WithContext(r.Context()).WithError(err).Error("clear scores failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.stats.Snapshot(r.Context())
	if err != nil {
		config.WithContext(r.Context()).WithError(err).Error("read stats failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	snap.RecentSessionIDs = nil
	respondJSON(w, http.StatusOK, snap)
}

func (h *APIHandler) ResetStats(w http.ResponseWriter, r *http.Request) {
	if err := h.stats.Reset(r.Context()); err != nil {
		config.WithContext(r.Context()).WithError(err).Error("reset stats failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.prefs.Get(r.Context())
	if err != nil {
		config.WithContext(r.Context()).WithError(err).Error("read preferences failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *APIHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var payload prefs.Preferences
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.prefs.SetSource(r.Context(), payload.Source); err != nil {
		if errorKind(err) == "invalid_input" {
			http.Error(w, "source must be remote or local", http.StatusBadRequest)
			return
		}
		config.WithContext(r.Context()).WithError(err).Error("save preferences failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *APIHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if h.categories == nil {
		http.Error(w, "question provider not configured", http.StatusServiceUnavailable)
		return
	}
	cats, err := h.categories.Categories(r.Context())
	if err != nil {
		config.WithContext(r.Context()).WithError(err).Warn("list categories failed")
		status := http.StatusBadGateway
		if errorKind(err) == "rate_limited" {
			status = http.StatusTooManyRequests
		}
		http.Error(w, err.Error(), status)
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
