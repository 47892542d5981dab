package localpool

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"trivia-quiz-service/internal/domain"
)

//go:embed data/questions.json
var embeddedQuestions []byte

// EmbeddedBank serves the dataset compiled into the binary.
type EmbeddedBank struct {
	once      sync.Once
	questions []domain.Question
	err       error
}

func NewEmbeddedBank() *EmbeddedBank {
	return &EmbeddedBank{}
}

func (b *EmbeddedBank) Questions(_ context.Context) ([]domain.Question, error) {
	b.once.Do(func() {
		b.questions, b.err = ParseBank(embeddedQuestions)
	})
	if b.err != nil {
		return nil, b.err
	}
	return append([]domain.Question(nil), b.questions...), nil
}

// ParseBank decodes and validates a JSON question array.
func ParseBank(raw []byte) ([]domain.Question, error) {
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return qs, nil
}
