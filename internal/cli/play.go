package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"

	"github.com/spf13/cobra"
)

type playFlags struct {
	count      int
	difficulty string
	category   int
	timeLimit  int
	source     string
}

// NewPlayCmd runs a single quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var flags playFlags
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := newDeps(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts, err := flags.apply(cmd, rt.defaultOptions(ctx))
			if err != nil {
				return err
			}
			done := make(chan struct{})
			service := app.NewQuizService(memory.NewSessionStore(), rt.remote, rt.pool,
				notifyingRecorder{inner: rt.recorder(), done: done},
				app.ServiceConfig{MaxAttempts: rt.cfg.Provider.MaxAttempts, Logger: rt.log})
			return playSession(ctx, service, opts, cmd.InOrStdin(), cmd.OutOrStdout(), done)
		},
	}
	cmd.Flags().IntVar(&flags.count, "count", 0, "number of questions")
	cmd.Flags().StringVar(&flags.difficulty, "difficulty", "", "easy, medium, hard or any")
	cmd.Flags().IntVar(&flags.category, "category", 0, "provider category id (see the categories command)")
	cmd.Flags().IntVar(&flags.timeLimit, "time", 0, "seconds per question")
	cmd.Flags().StringVar(&flags.source, "source", "", "remote or local")
	return cmd
}

func (f playFlags) apply(cmd *cobra.Command, opts domain.SessionOptions) (domain.SessionOptions, error) {
	if cmd.Flags().Changed("count") {
		opts.Count = f.count
	}
	if cmd.Flags().Changed("time") {
		opts.TimeLimitSeconds = f.timeLimit
	}
	if cmd.Flags().Changed("category") {
		opts.Category = f.category
	}
	if cmd.Flags().Changed("difficulty") {
		d, err := domain.ParseDifficulty(f.difficulty)
		if err != nil {
			return opts, err
		}
		opts.Difficulty = d
	}
	if cmd.Flags().Changed("source") {
		m, err := domain.ParseSourceMode(f.source)
		if err != nil {
			return opts, err
		}
		opts.Source = m
	}
	return opts, opts.Validate()
}

// notifyingRecorder closes done once the result has been persisted, so the
// process does not exit while a countdown-driven completion is still saving.
type notifyingRecorder struct {
	inner app.Recorder
	done  chan struct{}
}

func (r notifyingRecorder) Record(ctx context.Context, result domain.Result, opts domain.SessionOptions) {
	defer close(r.done)
	r.inner.Record(ctx, result, opts)
}

// playSession drives one session from line-based input. A letter answers and
// moves on, an empty line skips, "b" goes back and "q" finishes early.
func playSession(ctx context.Context, service *app.QuizService, opts domain.SessionOptions, in io.Reader, out io.Writer, recorded <-chan struct{}) error {
	fmt.Fprintln(out, "Loading questions...")
	session, err := service.Launch(ctx, opts)
	if err != nil {
		fmt.Fprintln(out, loadFailureHint(err))
		return err
	}
	defer service.Close(session.ID())

	if session.State().Notice == domain.NoticeOfflineFallback {
		fmt.Fprintln(out, "The question provider is unavailable; playing with the offline question set.")
	}

	updates, cancel := session.Subscribe()
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := session.Begin(); err != nil {
		return err
	}

	shown := -1
	acted := false
	for {
		st := session.State()
		if st.Phase == domain.PhaseCompleted {
			res, _ := session.Result()
			printResult(out, res)
			select {
			case <-recorded:
			case <-time.After(5 * time.Second):
				fmt.Fprintln(out, "warning: result may not have been saved")
			}
			return nil
		}
		if st.CurrentIndex != shown {
			if shown >= 0 && !acted {
				fmt.Fprintln(out, "Time's up!")
			}
			printQuestion(out, st)
			shown = st.CurrentIndex
			acted = false
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				_, _ = session.CompleteNow()
				continue
			}
			acted = true
			if err := handleInput(session, st, strings.TrimSpace(line)); err != nil {
				acted = false
				fmt.Fprintf(out, "%v\n", err)
			}
		}
	}
}

func handleInput(session *app.Session, st domain.SessionState, input string) error {
	switch strings.ToLower(input) {
	case "q":
		_, err := session.CompleteNow()
		return err
	case "b":
		if err := session.Retreat(); errors.Is(err, domain.ErrNothingToRetreat) {
			return errors.New("already at the first question")
		} else if err != nil {
			return err
		}
		return nil
	}

	// input answers the question that was printed, not whatever the countdown moved to
	q, ok := st.CurrentQuestion()
	if !ok {
		return errors.New("no question in view")
	}
	if input == "" {
		return staleHint(session.AdvanceFrom(q.ID))
	}
	choice, ok := letterIndex(input, len(q.Options))
	if !ok {
		return fmt.Errorf("please enter a letter A-%c, b, q or press enter to skip", 'A'+rune(len(q.Options)-1))
	}
	return staleHint(session.AnswerAndAdvance(q.ID, choice))
}

func staleHint(err error) error {
	if errors.Is(err, domain.ErrStaleQuestion) {
		return errors.New("too late, that question timed out")
	}
	return err
}

func letterIndex(input string, optionCount int) (int, bool) {
	if len(input) != 1 || optionCount < 1 {
		return -1, false
	}
	idx := int(strings.ToUpper(input)[0] - 'A')
	if idx < 0 || idx >= optionCount {
		return -1, false
	}
	return idx, true
}

func printQuestion(out io.Writer, st domain.SessionState) {
	q, ok := st.CurrentQuestion()
	if !ok {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d [%s, %s] %s\n\n", st.CurrentIndex+1, len(st.Questions), q.Category, q.Difficulty.Label(), q.Prompt)
	for i, opt := range q.Options {
		marker := " "
		if chosen, ok := st.Answers[q.ID]; ok && chosen == i {
			marker = "*"
		}
		fmt.Fprintf(out, "%s%c. %s\n", marker, 'A'+rune(i), opt)
	}
	fmt.Fprintf(out, "\n(%ds) > ", st.Options.TimeLimitSeconds)
}

func printResult(out io.Writer, res domain.Result) {
	fmt.Fprintln(out)
	for i, o := range res.Outcomes {
		correctText := o.Question.Options[o.Question.CorrectIndex]
		switch {
		case o.Chosen == nil:
			fmt.Fprintf(out, "%2d. skipped (answer: %s)\n", i+1, correctText)
		case o.Correct:
			fmt.Fprintf(out, "%2d. correct\n", i+1)
		default:
			fmt.Fprintf(out, "%2d. wrong (answer: %s)\n", i+1, correctText)
		}
	}
	fmt.Fprintf(out, "\nFinal score: %d/%d (%d%%) in %s\n", res.CorrectCount, res.TotalCount, res.Percentage,
		(time.Duration(res.ElapsedMillis) * time.Millisecond).Round(time.Second))
}

func loadFailureHint(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "The question provider is rate limiting requests. Wait a few seconds and try again, or use --source local."
	case errors.Is(err, domain.ErrNetwork):
		return "Could not reach the question provider. Check your connection or use --source local."
	default:
		return fmt.Sprintf("Could not load questions: %v", err)
	}
}
