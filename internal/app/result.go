package app

import "trivia-quiz-service/internal/domain"

// computeResult derives the Result from a completed state. Every completion
// path (finish, last-question advance, time up) goes through here.
func computeResult(st domain.SessionState) domain.Result {
	outcomes := make([]domain.QuestionOutcome, 0, len(st.Questions))
	correct := 0
	for _, q := range st.Questions {
		outcome := domain.QuestionOutcome{Question: q}
		if chosen, ok := st.Answers[q.ID]; ok {
			c := chosen
			outcome.Chosen = &c
			outcome.Correct = c == q.CorrectIndex
		}
		if outcome.Correct {
			correct++
		}
		outcomes = append(outcomes, outcome)
	}

	var elapsed int64
	if st.StartedAt != nil && st.EndedAt != nil {
		elapsed = st.EndedAt.Sub(*st.StartedAt).Milliseconds()
		if elapsed < 0 {
			elapsed = 0
		}
	}

	return domain.Result{
		SessionID:     st.SessionID,
		CorrectCount:  correct,
		TotalCount:    len(st.Questions),
		Percentage:    domain.Percentage(correct, len(st.Questions)),
		Outcomes:      outcomes,
		ElapsedMillis: elapsed,
	}
}
