package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/longregen/amaru/internal/domain/models"
)

// runsCmd inspects recorded scheduler runs
func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded scheduler runs",
	}
	cmd.AddCommand(runsListCmd(), runsShowCmd(), runsRoundsCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			runs, err := st.runs.List(ctx, limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRun(cmd.Context(), args[0], func(st *stores, run *models.Run) error {
				return printRun(cmd.OutOrStdout(), run)
			})
		},
	}
}

func runsRoundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rounds <run-id>",
		Short: "Show the rounds of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withRun(ctx, args[0], func(st *stores, run *models.Run) error {
				rounds, err := st.runs.GetRounds(ctx, run.ID)
				if err != nil {
					return fmt.Errorf("failed to get rounds: %w", err)
				}
				return printRounds(cmd.OutOrStdout(), rounds)
			})
		},
	}
}

func withRun(ctx context.Context, id string, fn func(*stores, *models.Run) error) error {
	st, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	run, err := st.runs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return fn(st, run)
}

func printRuns(out io.Writer, runs []*models.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTRATEGY\tSTATUS\tROUNDS\tGENERATIONS\tBEST\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Strategy, r.Status, r.Rounds, r.Generations,
			formatQuality(r.BestQuality), r.StartedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func printRun(out io.Writer, r *models.Run) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Strategy:\t%s\n", r.Strategy)
	fmt.Fprintf(tw, "Problem:\t%s\n", r.ProblemID)
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	fmt.Fprintf(tw, "Rounds:\t%d\n", r.Rounds)
	fmt.Fprintf(tw, "Generations:\t%d\n", r.Generations)
	fmt.Fprintf(tw, "Baseline:\t%s\n", formatQuality(r.BaselineQuality))
	fmt.Fprintf(tw, "Best:\t%s\n", formatQuality(r.BestQuality))
	if r.BestCandidateID != "" {
		fmt.Fprintf(tw, "Best candidate:\t%s\n", r.BestCandidateID)
	}
	for _, name := range slices.Sorted(maps.Keys(r.BestCachets)) {
		fmt.Fprintf(tw, "  %s:\t%.4f\n", name, r.BestCachets[name])
	}
	if r.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", r.Error)
	}
	fmt.Fprintf(tw, "Started:\t%s\n", r.StartedAt.Format(time.DateTime))
	if r.CompletedAt != nil {
		fmt.Fprintf(tw, "Completed:\t%s (%s)\n", r.CompletedAt.Format(time.DateTime), r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	return tw.Flush()
}

func printRounds(out io.Writer, rounds []*models.RunRound) error {
	if len(rounds) == 0 {
		fmt.Fprintln(out, "No rounds recorded")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUND\tGROUPS\tTESTS\tGENERATIONS\tBEST\tCANDIDATE")
	for _, r := range rounds {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\n",
			r.Round, r.Groups, r.Tests, r.Generations, formatQuality(r.BestQuality), r.BestCandidateID)
	}
	return tw.Flush()
}

func formatQuality(q float64) string {
	if q >= models.WorstQuality {
		return "-"
	}
	return fmt.Sprintf("%.4f", q)
}
