package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Difficulty is the provider difficulty level. The zero value means "any".
type Difficulty string

const (
	DifficultyAny    Difficulty = ""
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty accepts easy/medium/hard (case-insensitive) or an empty string / "any".
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	case "", "any":
		return DifficultyAny, nil
	default:
		return DifficultyAny, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidOptions, raw)
	}
}

// Label is the human-facing name used on score entries.
func (d Difficulty) Label() string {
	if d == DifficultyAny {
		return "any"
	}
	return string(d)
}

// SourceMode selects where questions come from.
type SourceMode string

const (
	SourceRemote SourceMode = "remote"
	SourceLocal  SourceMode = "local"
)

func ParseSourceMode(raw string) (SourceMode, error) {
	switch m := SourceMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case SourceRemote, SourceLocal:
		return m, nil
	case "":
		return SourceRemote, nil
	default:
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalidOptions, raw)
	}
}

// Question is a multiple-choice question. Options are in display order.
type Question struct {
	ID           int        `json:"id"`
	Category     string     `json:"category"`
	Difficulty   Difficulty `json:"difficulty"`
	Prompt       string     `json:"prompt"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correctIndex"`
	Explanation  string     `json:"explanation,omitempty"`
}

// Validate checks the option/correct-index invariant.
func (q Question) Validate() error {
	if len(q.Options) == 0 {
		return fmt.Errorf("question %d: no options", q.ID)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("question %d: correct index %d out of range", q.ID, q.CorrectIndex)
	}
	return nil
}

// SessionOptions configure one session and never change for its lifetime.
type SessionOptions struct {
	Count            int        `json:"count"`
	Difficulty       Difficulty `json:"difficulty,omitempty"`
	Category         int        `json:"category,omitempty"` // 0 = any
	TimeLimitSeconds int        `json:"timeLimitSeconds"`
	Source           SourceMode `json:"source"`
}

func (o SessionOptions) Validate() error {
	if o.Count <= 0 {
		return fmt.Errorf("%w: count must be positive", ErrInvalidOptions)
	}
	if o.TimeLimitSeconds <= 0 {
		return fmt.Errorf("%w: time limit must be positive", ErrInvalidOptions)
	}
	if o.Category < 0 {
		return fmt.Errorf("%w: category must not be negative", ErrInvalidOptions)
	}
	if o.Source != SourceRemote && o.Source != SourceLocal {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidOptions, o.Source)
	}
	return nil
}

// Phase is the session lifecycle phase.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseRunning
	PhaseCompleted
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	case PhaseErrored:
		return "errored"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Notice is a non-fatal message surfaced alongside session state.
type Notice string

const (
	NoticeNone            Notice = ""
	NoticeOfflineFallback Notice = "offline-fallback"
)

// SessionState is a point-in-time copy of a session.
// Answers maps question id to chosen option index; Skipped holds ids advanced past without an answer.
type SessionState struct {
	SessionID        string         `json:"sessionId"`
	Options          SessionOptions `json:"options"`
	Questions        []Question     `json:"questions"`
	CurrentIndex     int            `json:"currentIndex"`
	Answers          map[int]int    `json:"answers"`
	Skipped          map[int]bool   `json:"skipped,omitempty"`
	Phase            Phase          `json:"phase"`
	RemainingSeconds int            `json:"remainingSeconds"`
	TimerRunning     bool           `json:"timerRunning"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	EndedAt          *time.Time     `json:"endedAt,omitempty"`
	Notice           Notice         `json:"notice,omitempty"`
	Err              string         `json:"error,omitempty"`
}

// CurrentQuestion returns the question in view, if any.
func (s SessionState) CurrentQuestion() (Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// QuestionOutcome is the per-question line of a Result. Chosen is nil when unanswered.
type QuestionOutcome struct {
	Question Question `json:"question"`
	Chosen   *int     `json:"chosen,omitempty"`
	Correct  bool     `json:"correct"`
}

// Result is the immutable outcome of a completed session.
type Result struct {
	SessionID     string            `json:"sessionId"`
	CorrectCount  int               `json:"correctCount"`
	TotalCount    int               `json:"totalCount"`
	Percentage    int               `json:"percentage"`
	Outcomes      []QuestionOutcome `json:"outcomes"`
	ElapsedMillis int64             `json:"elapsedMillis"`
}

// ScoreEntry is one row of the score ledger.
type ScoreEntry struct {
	ID           string    `json:"id"`
	Percentage   int       `json:"percentage"`
	CorrectCount int       `json:"correctCount"`
	TotalCount   int       `json:"totalCount"`
	Difficulty   string    `json:"difficulty"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// StatsSnapshot holds running totals across all completed sessions.
type StatsSnapshot struct {
	TotalSessions     int       `json:"totalSessions"`
	TotalQuestions    int       `json:"totalQuestions"`
	TotalCorrect      int       `json:"totalCorrect"`
	AveragePercentage int       `json:"averagePercentage"`
	CurrentStreak     int       `json:"currentStreak"`
	BestStreak        int       `json:"bestStreak"`
	TotalTimeMillis   int64     `json:"totalTimeMillis"`
	LastPlayedAt      time.Time `json:"lastPlayedAt"`
	RecentSessionIDs  []string  `json:"recentSessionIds,omitempty"`
}

// Percentage rounds 100*correct/total half-up; a zero total yields 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
