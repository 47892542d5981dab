package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"trivia-quiz-service/internal/domain"

	"github.com/spf13/cobra"
)

// NewScoresCmd lists (or clears) the score history.
func NewScoresCmd(configPath *string) *cobra.Command {
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show the top scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rt, err := newDeps(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if clearAll {
				if err := rt.ledger.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Score history cleared.")
				return nil
			}
			entries, err := rt.ledger.List(ctx)
			if err != nil {
				return err
			}
			printScores(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every recorded score")
	return cmd
}

// NewStatsCmd shows (or resets) the running statistics.
func NewStatsCmd(configPath *string) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show running statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rt, err := newDeps(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if reset {
				if err := rt.stats.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Statistics reset.")
				return nil
			}
			snap, err := rt.stats.Snapshot(ctx)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "zero every statistic")
	return cmd
}

// NewCategoriesCmd lists the provider's question categories.
func NewCategoriesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List question categories from the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rt, err := newDeps(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			cats, err := rt.remote.Categories(ctx)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), loadFailureHint(err))
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, c := range cats {
				fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
			}
			return w.Flush()
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printScores(out io.Writer, entries []domain.ScoreEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No scores recorded yet.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSCORE\tCORRECT\tDIFFICULTY\tDATE")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%d%%\t%d/%d\t%s\t%s\n", i+1, e.Percentage, e.CorrectCount, e.TotalCount,
			e.Difficulty, e.RecordedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func printStats(out io.Writer, s domain.StatsSnapshot) {
	if s.TotalSessions == 0 {
		fmt.Fprintln(out, "No quizzes played yet.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Quizzes played\t%d\n", s.TotalSessions)
	fmt.Fprintf(w, "Questions answered\t%d\n", s.TotalQuestions)
	fmt.Fprintf(w, "Correct answers\t%d\n", s.TotalCorrect)
	fmt.Fprintf(w, "Average\t%d%%\n", s.AveragePercentage)
	fmt.Fprintf(w, "Current streak\t%d\n", s.CurrentStreak)
	fmt.Fprintf(w, "Best streak\t%d\n", s.BestStreak)
	fmt.Fprintf(w, "Time played\t%s\n", (time.Duration(s.TotalTimeMillis) * time.Millisecond).Round(time.Second))
	fmt.Fprintf(w, "Last played\t%s\n", s.LastPlayedAt.Local().Format("2006-01-02 15:04"))
	_ = w.Flush()
}
