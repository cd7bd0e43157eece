package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/longregen/amaru/internal/adapters/tracing"
	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// Options configure a Scheduler.
type Options struct {
	GA GAConfig
	// ConcurrentGroups evolves the groups of one round on separate
	// goroutines.
	ConcurrentGroups bool
	// Seed makes runs reproducible; 0 draws a random seed per run.
	Seed      uint64
	Observers []Observer
	Logger    *zap.Logger
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Best   *models.Candidate
	Rounds int
}

// Calibrator is implemented by evaluators that measure the original program
// of a problem before any candidate of it is scored.
type Calibrator interface {
	Calibrate(ctx context.Context, origin *models.Candidate) error
}

// Scheduler runs the generational loop for one strategy: the strategy
// partitions the tests into groups, every group evolves to completion and
// the strategy merges the finished groups into the next round.
type Scheduler struct {
	strategy  Strategy
	ops       Operators
	evaluator Evaluator
	ids       ports.IDGenerator
	opts      Options
	observer  Observers
	logger    *zap.Logger
}

func New(strategy Strategy, ops Operators, evaluator Evaluator, ids ports.IDGenerator, opts Options) (*Scheduler, error) {
	if strategy == nil {
		return nil, domain.NewDomainError(domain.ErrUnknownStrategy, "no strategy given")
	}
	if evaluator == nil || ids == nil {
		return nil, domain.NewDomainError(domain.ErrInvalidConfig, "scheduler needs an evaluator and an id generator")
	}
	if err := opts.GA.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		strategy:  strategy,
		ops:       ops,
		evaluator: evaluator,
		ids:       ids,
		opts:      opts,
		observer:  Observers(opts.Observers),
		logger:    logger,
	}, nil
}

// Run optimises problem and returns the best candidate, evaluated against the
// whole problem. A cancelled run returns the context error; its result only
// carries a best candidate when a finished round already covered the whole
// problem in one group.
func (s *Scheduler) Run(ctx context.Context, problem *models.Problem) (*Result, error) {
	if problem == nil {
		return nil, domain.NewDomainError(domain.ErrMissingProblem, "scheduler run")
	}
	if len(problem.Tests) == 0 {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "problem "+problem.ID()+" has no tests")
	}

	res := &Result{RunID: s.ids.GenerateRunID()}
	seed := s.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	ctx, span := tracing.Start(ctx, "scheduler.run",
		attribute.String("run", res.RunID),
		attribute.String("strategy", s.strategy.Name()),
		attribute.String("problem", problem.ID()))
	defer span.End()

	err := s.loop(ctx, problem, seed, res)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	s.observer.OnRunFinished(ctx, RunReport{
		RunID:     res.RunID,
		Strategy:  s.strategy.Name(),
		ProblemID: problem.ID(),
		Rounds:    res.Rounds,
		Best:      res.Best,
		Err:       err,
	})
	return res, err
}

func (s *Scheduler) loop(ctx context.Context, problem *models.Problem, seed uint64, res *Result) error {
	if cal, ok := s.evaluator.(Calibrator); ok {
		origin := models.NewCandidate(s.ids.GenerateCandidateID(), ast.Origin(), problem)
		if err := cal.Calibrate(ctx, origin); err != nil {
			return fmt.Errorf("measure original program: %w", err)
		}
	}

	groups := s.strategy.Partition(problem.Tests)
	if len(groups) == 0 {
		return domain.NewDomainError(domain.ErrEmptyPopulation, s.strategy.Name()+" produced no groups")
	}

	var last []Group
	for round := 0; len(groups) > 0; round++ {
		tests := 0
		for _, g := range groups {
			tests += len(g.Tests)
		}
		s.observer.OnRoundStart(ctx, RoundStart{
			RunID:     res.RunID,
			Strategy:  s.strategy.Name(),
			ProblemID: problem.ID(),
			Round:     round,
			Groups:    len(groups),
			Tests:     tests,
		})

		if err := s.runRound(ctx, problem, seed, res.RunID, round, groups); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			if covers(last, problem) {
				res.Best = last[0].Final.Best()
			}
			return err
		}
		res.Rounds = round + 1
		last = groups
		groups = s.strategy.OnMergeBoundary(round, groups)
	}

	res.Best = s.finalBest(ctx, problem, last)
	if res.Best == nil {
		return domain.NewDomainError(domain.ErrEmptyPopulation, "no candidate survived the final round")
	}
	return ctx.Err()
}

func (s *Scheduler) runRound(ctx context.Context, problem *models.Problem, seed uint64, runID string, round int, groups []Group) error {
	ctx, span := tracing.Start(ctx, "scheduler.round",
		attribute.Int("round", round),
		attribute.Int("groups", len(groups)))
	defer span.End()

	if !s.opts.ConcurrentGroups || len(groups) == 1 {
		for i := range groups {
			if err := s.runGroup(ctx, problem, seed, runID, round, i, &groups[i]); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range groups {
		eg.Go(func() error {
			return s.runGroup(egCtx, problem, seed, runID, round, i, &groups[i])
		})
	}
	return eg.Wait()
}

// runGroup evolves one group until its engine stops and stores the final
// population on g.
func (s *Scheduler) runGroup(ctx context.Context, problem *models.Problem, seed uint64, runID string, round, index int, g *Group) error {
	sub := problem
	if len(g.Tests) != len(problem.Tests) {
		sub = problem.Narrow(testIDs(g.Tests))
	}

	rng := rand.New(rand.NewPCG(seed, uint64(round)<<32|uint64(index)))
	ga := NewGeneticAlgorithm(s.opts.GA, s.ops, s.evaluator, s.ids, rng, s.logger)
	ga.label = s.strategy.Name()
	for _, c := range g.Seeds {
		ga.AddIndividual(c)
	}

	for {
		before := ga.Generation()
		pop, more, err := ga.NextGeneration(ctx, sub)
		if err != nil {
			return fmt.Errorf("round %d group %d: %w", round, index, err)
		}
		if ga.Generation() > before {
			s.observer.OnGeneration(ctx, GenerationReport{
				RunID:      runID,
				Strategy:   s.strategy.Name(),
				Round:      round,
				Group:      index,
				Generation: ga.Generation(),
				Size:       len(pop),
				Best:       pop.Best(),
			})
		}
		if !more {
			break
		}
	}
	g.Final = ga.Population()
	return nil
}

// finalBest returns the best candidate of the last round. When that round
// did not evaluate the whole problem in one group, the best candidate of
// every group is re-evaluated against the whole problem first.
func (s *Scheduler) finalBest(ctx context.Context, problem *models.Problem, last []Group) *models.Candidate {
	if covers(last, problem) {
		return last[0].Final.Best()
	}
	var contenders models.Population
	for _, g := range last {
		best := g.Final.Best()
		if best == nil {
			continue
		}
		c := best.Rebind(s.ids.GenerateCandidateID(), problem)
		if _, err := s.evaluator.Evaluate(ctx, c); err != nil {
			s.logger.Warn("failed to evaluate group best against the whole problem", zap.String("candidate", best.ID), zap.Error(err))
			continue
		}
		contenders = append(contenders, c)
	}
	return contenders.Best()
}

func covers(groups []Group, problem *models.Problem) bool {
	return len(groups) == 1 && len(groups[0].Tests) == len(problem.Tests)
}
