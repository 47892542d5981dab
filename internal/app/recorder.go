package app

import (
	"context"
	"errors"

	"trivia-quiz-service/internal/domain"

	"github.com/sirupsen/logrus"
)

// ScoreRecorder appends a result to the ranked score history.
type ScoreRecorder interface {
	Record(ctx context.Context, result domain.Result, difficultyLabel string) error
}

// StatsUpdater folds a result into running statistics.
type StatsUpdater interface {
	Update(ctx context.Context, result domain.Result) error
}

// ResultRecorder persists completed attempts. Storage failures are logged and
// never surface to the session.
type ResultRecorder struct {
	scores ScoreRecorder
	stats  StatsUpdater
	log    logrus.FieldLogger
}

func NewResultRecorder(scores ScoreRecorder, stats StatsUpdater, log logrus.FieldLogger) *ResultRecorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ResultRecorder{scores: scores, stats: stats, log: log}
}

func (r *ResultRecorder) Record(ctx context.Context, result domain.Result, opts domain.SessionOptions) {
	log := r.log.WithField("session_id", result.SessionID)

	if r.scores != nil {
		if err := r.scores.Record(ctx, result, opts.Difficulty.Label()); err != nil {
			log.WithError(err).Error("failed to save score")
		}
	}
	if r.stats != nil {
		err := r.stats.Update(ctx, result)
		switch {
		case errors.Is(err, domain.ErrAlreadyRecorded):
			log.Warn("statistics already include this session")
		case err != nil:
			log.WithError(err).Error("failed to update statistics")
		}
	}
}
