package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when the question provider throttles the caller.
	ErrRateLimited = errors.New("question provider rate limited")
	// ErrNoResults means the provider had too few questions for the query.
	ErrNoResults = errors.New("question provider returned no results")
	// ErrInvalidParameters means the provider rejected the query.
	ErrInvalidParameters = errors.New("question provider rejected parameters")
	// ErrNetwork wraps transport-level failures talking to the provider.
	ErrNetwork = errors.New("question provider unreachable")

	// ErrEmptyQuestionSet is fatal for a session: neither source produced questions.
	ErrEmptyQuestionSet = errors.New("no questions available")
	// ErrStorageCorrupt marks a stored value that could not be decoded.
	ErrStorageCorrupt = errors.New("stored value is corrupt")

	ErrInvalidOptions   = errors.New("invalid session options")
	ErrInvalidPhase     = errors.New("operation not allowed in current phase")
	ErrInvalidChoice    = errors.New("choice out of range")
	ErrSessionNotFound  = errors.New("quiz session not found")
	ErrAlreadyRecorded  = errors.New("result already recorded")
	ErrNothingToRetreat = errors.New("already at first question")
	// ErrStaleQuestion rejects input aimed at a question that is no longer in view.
	ErrStaleQuestion = errors.New("question no longer in view")
)

// ProviderError carries a provider response code (or HTTP status) that has no dedicated sentinel.
type ProviderError struct {
	Code   int
	Status int
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("question provider error: http status %d", e.Status)
	}
	return fmt.Sprintf("question provider error: response code %d", e.Code)
}

// IsTransient reports whether a sourcing error is worth waiting out.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
