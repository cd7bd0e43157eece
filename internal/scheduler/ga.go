// Package scheduler drives the generational search: a genetic algorithm
// engine and one generic loop that stages the problem's tests according to a
// strategy.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/adapters/metrics"
	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// Evaluator scores a candidate against its own problem.
type Evaluator interface {
	Evaluate(ctx context.Context, c *models.Candidate) (float64, error)
}

// GAConfig holds the engine parameters shared by all strategies.
type GAConfig struct {
	PopulationSize       int
	Elites               int
	MaxGenerations       int
	MutationProbability  float64
	CrossoverProbability float64
	// StagnationLimit stops a run after that many generations without
	// improvement of the best quality; 0 disables it.
	StagnationLimit int
}

func DefaultGAConfig() GAConfig {
	return GAConfig{
		PopulationSize:       50,
		Elites:               2,
		MaxGenerations:       20,
		MutationProbability:  0.3,
		CrossoverProbability: 0.8,
	}
}

// Validate rejects parameters the engine cannot run with.
func (c GAConfig) Validate() error {
	switch {
	case c.PopulationSize < 1:
		return domain.NewDomainError(domain.ErrInvalidConfig, "population size must be positive")
	case c.Elites < 0 || c.Elites > c.PopulationSize:
		return domain.NewDomainError(domain.ErrInvalidConfig, "elites must be between 0 and the population size")
	case c.MaxGenerations < 1:
		return domain.NewDomainError(domain.ErrInvalidConfig, "max generations must be positive")
	case c.MutationProbability < 0 || c.MutationProbability > 1:
		return domain.NewDomainError(domain.ErrInvalidConfig, "mutation probability must be within [0, 1]")
	case c.CrossoverProbability < 0 || c.CrossoverProbability > 1:
		return domain.NewDomainError(domain.ErrInvalidConfig, "crossover probability must be within [0, 1]")
	}
	return nil
}

// Operators are the tree operators the engine breeds with.
type Operators struct {
	Selector  ports.Selector
	Crossover ports.Crossover
	Mutator   ports.Mutator
	Creator   ports.Creator
}

// attemptsPerSlot bounds how often the engine retries filling one
// population slot when operators or evaluations fail.
const attemptsPerSlot = 3

// GeneticAlgorithm evolves one population against one problem. It is not
// safe for concurrent use; the scheduler runs one engine per group.
type GeneticAlgorithm struct {
	cfg       GAConfig
	ops       Operators
	evaluator Evaluator
	ids       ports.IDGenerator
	rng       *rand.Rand
	logger    *zap.Logger
	label     string

	generation int
	seeds      []*models.Candidate
	population models.Population
	best       *models.Candidate
	stagnant   int
}

func NewGeneticAlgorithm(cfg GAConfig, ops Operators, evaluator Evaluator, ids ports.IDGenerator, rng *rand.Rand, logger *zap.Logger) *GeneticAlgorithm {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ops.Selector == nil {
		ops.Selector = TournamentSelector{Size: 2}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &GeneticAlgorithm{cfg: cfg, ops: ops, evaluator: evaluator, ids: ids, rng: rng, logger: logger, label: "ga"}
}

// Reset forgets the population, the seeds and the best candidate.
func (g *GeneticAlgorithm) Reset() {
	g.generation = 0
	g.seeds = nil
	g.population = nil
	g.best = nil
	g.stagnant = 0
}

// AddIndividual seeds the next initial population with c. Seeds are carried
// into the initial population before any created individual.
func (g *GeneticAlgorithm) AddIndividual(c *models.Candidate) {
	if c != nil {
		g.seeds = append(g.seeds, c)
	}
}

// Population returns the current population, best first.
func (g *GeneticAlgorithm) Population() models.Population {
	return g.population.Sorted()
}

// Best is the best candidate seen since the last reset.
func (g *GeneticAlgorithm) Best() *models.Candidate {
	return g.best
}

// Generation is the number of generations produced since the last reset,
// the initial population included.
func (g *GeneticAlgorithm) Generation() int {
	return g.generation
}

// NextGeneration produces and evaluates the next population against
// problem. It reports false once the run should stop: the generation cap
// was reached, the best quality stagnated or ctx was cancelled. Failures of
// single operators or evaluations are logged and absorbed; only a missing
// problem or an empty population are returned as errors.
func (g *GeneticAlgorithm) NextGeneration(ctx context.Context, problem *models.Problem) (models.Population, bool, error) {
	if problem == nil {
		return nil, false, domain.NewDomainError(domain.ErrMissingProblem, "next generation needs a problem")
	}
	if ctx.Err() != nil || g.done() {
		return g.Population(), false, nil
	}

	var next models.Population
	if g.population == nil {
		next = g.initial(ctx, problem)
		if ctx.Err() != nil {
			return g.Population(), false, nil
		}
		if len(next) == 0 {
			return nil, false, domain.NewDomainError(domain.ErrEmptyPopulation, fmt.Sprintf("%s: no individual of the initial population could be evaluated", g.label))
		}
	} else {
		next = g.breed(ctx, problem)
		if ctx.Err() != nil {
			return g.Population(), false, nil
		}
	}

	next.Sort()
	g.population = next
	g.generation++
	metrics.GenerationsTotal.WithLabelValues(g.label).Inc()

	if best := next[0]; g.best == nil || best.Quality() < g.best.Quality() {
		g.best = best
		g.stagnant = 0
	} else {
		g.stagnant++
	}
	return g.Population(), !g.done(), nil
}

func (g *GeneticAlgorithm) done() bool {
	if g.generation >= g.cfg.MaxGenerations {
		return true
	}
	return g.cfg.StagnationLimit > 0 && g.stagnant >= g.cfg.StagnationLimit
}

// initial evaluates the seeds against problem and fills the population up
// with created individuals.
func (g *GeneticAlgorithm) initial(ctx context.Context, problem *models.Problem) models.Population {
	pop := make(models.Population, 0, max(g.cfg.PopulationSize, len(g.seeds)))
	for _, s := range g.seeds {
		if s.Problem == problem && s.Evaluated() {
			pop = append(pop, s)
			continue
		}
		if s.Problem != problem {
			s = s.Rebind(g.ids.GenerateCandidateID(), problem)
		}
		if g.evaluate(ctx, s) {
			pop = append(pop, s)
		}
		if ctx.Err() != nil {
			return pop
		}
	}
	g.seeds = nil

	for attempts := 0; len(pop) < g.cfg.PopulationSize && attempts < g.cfg.PopulationSize*attemptsPerSlot; attempts++ {
		if ctx.Err() != nil {
			return pop
		}
		if g.ops.Creator == nil {
			break
		}
		tree, err := g.ops.Creator.Create(ctx, problem, g.rng)
		if err != nil {
			g.stepFailed("create individual", err)
			continue
		}
		c := models.NewCandidate(g.ids.GenerateCandidateID(), tree, problem)
		if g.evaluate(ctx, c) {
			pop = append(pop, c)
		}
	}
	return pop
}

// breed keeps the elites of the current population unmodified and fills
// the rest with evaluated offspring. When no offspring survives the current
// population is kept.
func (g *GeneticAlgorithm) breed(ctx context.Context, problem *models.Problem) models.Population {
	parents := g.population.Sorted()
	next := make(models.Population, 0, g.cfg.PopulationSize)
	next = append(next, parents.Top(g.cfg.Elites)...)

	for attempts := 0; len(next) < g.cfg.PopulationSize && attempts < g.cfg.PopulationSize*attemptsPerSlot; attempts++ {
		if ctx.Err() != nil {
			return parents
		}
		tree, err := g.offspring(ctx, parents)
		if err != nil {
			g.stepFailed("breed offspring", err)
			continue
		}
		c := models.NewCandidate(g.ids.GenerateCandidateID(), tree, problem)
		if g.evaluate(ctx, c) {
			next = append(next, c)
		}
	}
	if len(next) == 0 {
		return parents
	}
	return next
}

func (g *GeneticAlgorithm) offspring(ctx context.Context, parents models.Population) (ast.Node, error) {
	a := g.ops.Selector.Select(parents, g.rng)
	if a == nil {
		return nil, errors.New("selector returned no parent")
	}
	tree := a.AST
	if g.ops.Crossover != nil && g.rng.Float64() < g.cfg.CrossoverProbability {
		b := g.ops.Selector.Select(parents, g.rng)
		if b == nil {
			return nil, errors.New("selector returned no parent")
		}
		child, err := g.ops.Crossover.Breed(ctx, a.AST, b.AST, g.rng)
		if err != nil {
			return nil, fmt.Errorf("crossover failed: %w", err)
		}
		tree = child
	}
	if g.ops.Mutator != nil && g.rng.Float64() < g.cfg.MutationProbability {
		mutated, err := g.ops.Mutator.Mutate(ctx, tree, g.rng)
		if err != nil {
			return nil, fmt.Errorf("mutation failed: %w", err)
		}
		tree = mutated
	}
	if tree == nil {
		return nil, errors.New("operators produced no tree")
	}
	return tree, nil
}

// evaluate scores c and reports whether it may enter the population.
func (g *GeneticAlgorithm) evaluate(ctx context.Context, c *models.Candidate) bool {
	if _, err := g.evaluator.Evaluate(ctx, c); err != nil {
		if ctx.Err() == nil {
			g.stepFailed("evaluate candidate "+c.ID, err)
		}
		return false
	}
	return true
}

func (g *GeneticAlgorithm) stepFailed(step string, err error) {
	metrics.GenerationStepErrorsTotal.WithLabelValues(g.label).Inc()
	g.logger.Warn("generation step failed",
		zap.String("strategy", g.label),
		zap.String("step", step),
		zap.Int("generation", g.generation),
		zap.Error(err))
}
