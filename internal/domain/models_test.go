package domain

import (
	"errors"
	"testing"
)

func TestPercentageRounding(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{3, 5, 60},
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds up
		{7, 7, 100},
	}
	for _, tt := range tests {
		if got := Percentage(tt.correct, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestQuestionValidate(t *testing.T) {
	q := Question{ID: 1, Options: []string{"a", "b"}, CorrectIndex: 1}
	if err := q.Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}
	q.CorrectIndex = 2
	if err := q.Validate(); err == nil {
		t.Fatalf("expected out of range error")
	}
	q.Options = nil
	if err := q.Validate(); err == nil {
		t.Fatalf("expected empty options error")
	}
}

func TestSessionOptionsValidate(t *testing.T) {
	ok := SessionOptions{Count: 5, TimeLimitSeconds: 15, Source: SourceLocal}
	if err := ok.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	bad := ok
	bad.Count = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	bad = ok
	bad.Source = "carrier-pigeon"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions for source, got %v", err)
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(" Hard "); err != nil || d != DifficultyHard {
		t.Fatalf("got %q, %v", d, err)
	}
	if d, err := ParseDifficulty("any"); err != nil || d != DifficultyAny {
		t.Fatalf("got %q, %v", d, err)
	}
	if _, err := ParseDifficulty("extreme"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestProviderErrorIsNotTransient(t *testing.T) {
	if IsTransient(&ProviderError{Code: 3}) {
		t.Fatalf("provider error must not be transient")
	}
	if !IsTransient(ErrRateLimited) {
		t.Fatalf("rate limit must be transient")
	}
}
