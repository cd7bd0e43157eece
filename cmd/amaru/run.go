package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/adapters/http/dto"
	"github.com/longregen/amaru/internal/adapters/id"
	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/config"
	"github.com/longregen/amaru/internal/evaluation"
	"github.com/longregen/amaru/internal/scheduler"
)

type runOptions struct {
	seeds    []string
	annotate bool
	json     bool
}

// runCmd optimises a problem with the configured strategy
func runCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <problem.yaml>",
		Short: "Run the configured strategy on a problem",
		Long: `Run the configured scheduling strategy on a problem. Initial populations
are drawn from the original program and the trees given with --seed; the
original program is measured first so runtime cachets can compare against it.

The run and each of its rounds are recorded in the configured store and can
be inspected with "amaru runs".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runOptimize(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.seeds, "seed", nil, "JSON file with a tree to seed the population with (repeatable)")
	cmd.Flags().BoolVar(&opts.annotate, "annotate", false, "trace the program first and annotate tests with node counts")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the best evaluation as JSON")
	return cmd
}

func runOptimize(ctx context.Context, out io.Writer, path string, opts runOptions) error {
	problem, err := config.LoadProblem(path)
	if err != nil {
		return err
	}
	trees := []ast.Node{ast.Origin()}
	for _, p := range opts.seeds {
		tree, err := ast.ReadFile(p)
		if err != nil {
			return err
		}
		trees = append(trees, tree)
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

	if opts.annotate {
		sess, err := ev.binder.Bind(ctx, problem)
		if err != nil {
			return err
		}
		if problem, err = evaluation.AnnotateComplexity(ctx, sess, problem); err != nil {
			return err
		}
	}

	s, err := newRunScheduler(cfg.Scheduler.Settings(), st, evaluation.NewBoundEvaluator(ev.binder, ev.pipeline), trees)
	if err != nil {
		return err
	}
	res, err := s.Run(ctx, problem)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(dto.NewEvaluationResponse(res.Best.Record()))
	}
	fmt.Fprintf(out, "Run %s finished after %d rounds, best candidate %s\n\n", res.RunID, res.Rounds, res.Best.ID)
	return printEvaluation(out, res.Best, false)
}

// newRunScheduler assembles the scheduler of the run command. Runs are
// recorded in the configured store, each round in one transaction when the
// store supports them.
func newRunScheduler(settings scheduler.Settings, st *stores, eval scheduler.Evaluator, trees []ast.Node) (*scheduler.Scheduler, error) {
	recorder := scheduler.NewRunRecorder(st.runs, settings.Describe(), logger)
	if st.tx != nil {
		recorder = recorder.WithTransactions(st.tx)
	}
	ops := scheduler.Operators{Creator: scheduler.SeedCreator{Trees: trees}}
	return scheduler.FromSettings(settings, ops, eval, id.New(), recorder, logger)
}
