package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/adapters/http/dto"
	"github.com/longregen/amaru/internal/adapters/id"
	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/config"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/evaluation"
)

type evaluateOptions struct {
	tree     string
	annotate bool
	profiles bool
	json     bool
}

// evaluateCmd runs a candidate tree, or the original program, of a problem
// through the pipeline
func evaluateCmd() *cobra.Command {
	var opts evaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate <problem.yaml>",
		Short: "Evaluate the original program or a candidate tree of a problem",
		Long: `Run the original program of a problem, or the tree given with --tree,
against its tests on the configured executor and score it with the enabled
cachets. Runtime cachets compare against the original program, which is
measured first.

The result is stored in the fitness cache when the store backend has one,
so later evaluations of the same tree and test suite are served from it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEvaluate(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.tree, "tree", "", "JSON file with the candidate tree to evaluate instead of the original program")
	cmd.Flags().BoolVar(&opts.annotate, "annotate", false, "trace the program first and annotate tests with node counts")
	cmd.Flags().BoolVar(&opts.profiles, "profiles", false, "print the runtime profile of every test")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the evaluation as JSON")
	return cmd
}

func runEvaluate(ctx context.Context, out io.Writer, path string, opts evaluateOptions) error {
	problem, err := config.LoadProblem(path)
	if err != nil {
		return err
	}
	var tree ast.Node = ast.Origin()
	if opts.tree != "" {
		if tree, err = ast.ReadFile(opts.tree); err != nil {
			return err
		}
	}

	st, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	ev, err := newEvaluator(st.fitness)
	if err != nil {
		return err
	}
	defer func() {
		if err := ev.binder.Close(); err != nil {
			logger.Warn("failed to close executor", zap.Error(err))
		}
	}()

	sess, err := ev.binder.Bind(ctx, problem)
	if err != nil {
		return err
	}
	if opts.annotate {
		if problem, err = evaluation.AnnotateComplexity(ctx, sess, problem); err != nil {
			return err
		}
	}

	ids := id.New()
	origin := models.NewCandidate(ids.GenerateCandidateID(), ast.Origin(), problem)
	if err := ev.pipeline.Calibrate(ctx, sess, origin); err != nil {
		return err
	}
	c := origin
	if !ast.IsOrigin(tree) {
		c = models.NewCandidate(ids.GenerateCandidateID(), tree, problem)
	}
	if !c.Evaluated() {
		if _, err := ev.pipeline.Evaluate(ctx, sess, c); err != nil {
			return err
		}
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(dto.NewEvaluationResponse(c.Record()))
	}
	return printEvaluation(out, c, opts.profiles)
}

func printEvaluation(out io.Writer, c *models.Candidate, profiles bool) error {
	fmt.Fprintf(out, "Problem %s (%s.%s), %d tests\n\n", c.Problem.ID(), c.Problem.EntryPoint, c.Problem.Function, len(c.Problem.Tests))

	results, _ := c.Results()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEST\tSTATUS\tOUTPUT\tEXPECTED\tMEDIAN\tMEAN")
	for _, r := range results {
		status, output := "ok", ""
		if r.Output != nil {
			output = r.Output.String()
		}
		expected := ""
		if r.Test != nil && r.Test.Expected != nil {
			expected = r.Test.Expected.String()
			if r.Output == nil || !r.Output.Equal(r.Test.Expected) {
				status = "wrong"
			}
		}
		if r.Failed() {
			status, output = string(r.Failure.Kind), r.Failure.Message
		}
		median, mean := "-", "-"
		if !r.Runtime.IsFailed() {
			median = fmt.Sprintf("%.0f", r.Runtime.Median)
			mean = fmt.Sprintf("%.1f", r.Runtime.Mean)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.TestID, status, output, expected, median, mean)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	if c.HardFailed() {
		fmt.Fprintln(out, "Hard failed")
	}
	for _, ch := range c.Cachets() {
		fmt.Fprintf(out, "%-40s %12.4f (weight %g)\n", ch.Name, ch.Value, ch.Weight)
	}
	fmt.Fprintf(out, "%-40s %12.4f\n", "quality", c.Quality())

	if !profiles {
		return nil
	}
	for _, r := range results {
		if r.Runtime.IsFailed() {
			continue
		}
		fmt.Fprintf(out, "\nTest %s:\n", r.TestID)
		if err := r.Runtime.Report(out); err != nil {
			return err
		}
	}
	return nil
}
