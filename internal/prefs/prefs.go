// Package prefs persists user preferences such as the question source toggle.
package prefs

import (
	"context"
	"errors"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/storage"

	"github.com/sirupsen/logrus"
)

const Key = "quiz:prefs"

type Preferences struct {
	Source domain.SourceMode `json:"source"`
}

type Store struct {
	store    storage.Store
	fallback domain.SourceMode
	log      logrus.FieldLogger
}

// NewStore returns a preference store whose default source mode is fallback.
func NewStore(store storage.Store, fallback domain.SourceMode, log logrus.FieldLogger) *Store {
	if fallback == "" {
		fallback = domain.SourceRemote
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{store: store, fallback: fallback, log: log.WithField("key", Key)}
}

// Get returns the saved preferences, or defaults when nothing usable is stored.
func (s *Store) Get(ctx context.Context) (Preferences, error) {
	var p Preferences
	found, err := storage.GetJSON(ctx, s.store, Key, &p)
	if errors.Is(err, domain.ErrStorageCorrupt) {
		s.log.WithError(err).Warn("discarding corrupt preferences")
		return Preferences{Source: s.fallback}, nil
	}
	if err != nil {
		return Preferences{}, err
	}
	if !found {
		return Preferences{Source: s.fallback}, nil
	}
	if mode, err := domain.ParseSourceMode(string(p.Source)); err == nil {
		p.Source = mode
	} else {
		p.Source = s.fallback
	}
	return p, nil
}

func (s *Store) SetSource(ctx context.Context, mode domain.SourceMode) error {
	if _, err := domain.ParseSourceMode(string(mode)); err != nil || mode == "" {
		return domain.ErrInvalidOptions
	}
	return storage.SetJSON(ctx, s.store, Key, Preferences{Source: mode})
}

// Source returns the preferred source mode, falling back to the default on any read error.
func (s *Store) Source(ctx context.Context) domain.SourceMode {
	p, err := s.Get(ctx)
	if err != nil {
		s.log.WithError(err).Warn("reading preferences failed")
		return s.fallback
	}
	return p.Source
}
