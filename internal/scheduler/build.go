package scheduler

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// Settings are the knobs a Scheduler is assembled from.
type Settings struct {
	Strategy       string
	StrategyConfig StrategyConfig
	GA             GAConfig
	// TournamentSize configures the default selector.
	TournamentSize   int
	ConcurrentGroups bool
	Seed             uint64
}

// Describe flattens the settings into the config stored with a run.
func (s Settings) Describe() map[string]any {
	return map[string]any{
		"strategy":              s.Strategy,
		"population_size":       s.GA.PopulationSize,
		"elites":                s.GA.Elites,
		"max_generations":       s.GA.MaxGenerations,
		"mutation_probability":  s.GA.MutationProbability,
		"crossover_probability": s.GA.CrossoverProbability,
		"stagnation_limit":      s.GA.StagnationLimit,
		"tournament_size":       s.TournamentSize,
		"concurrent_groups":     s.ConcurrentGroups,
		"seed":                  s.Seed,
		"sequences":             s.StrategyConfig.Sequences,
		"generational_elites":   s.StrategyConfig.GenerationalElites,
		"starting_groups":       s.StrategyConfig.StartingGroups,
		"combination_rate":      s.StrategyConfig.CombinationRate,
		"group_similar":         s.StrategyConfig.GroupSimilar,
	}
}

// FromSettings assembles a scheduler: the named strategy, a tournament
// selector when ops has none, and observers that log and count progress.
// When recorder is non-nil every run is also persisted through it.
func FromSettings(settings Settings, ops Operators, evaluator Evaluator, ids ports.IDGenerator, recorder *RunRecorder, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	strategy, err := NewStrategy(settings.Strategy, settings.StrategyConfig)
	if err != nil {
		return nil, err
	}
	if ops.Selector == nil && settings.TournamentSize > 0 {
		ops.Selector = TournamentSelector{Size: settings.TournamentSize}
	}

	observers := []Observer{LogObserver{Logger: logger}, MetricsObserver{}}
	if recorder != nil {
		observers = append(observers, recorder)
	}
	return New(strategy, ops, evaluator, ids, Options{
		GA:               settings.GA,
		ConcurrentGroups: settings.ConcurrentGroups,
		Seed:             settings.Seed,
		Observers:        observers,
		Logger:           logger,
	})
}

// SeedCreator fills initial populations by drawing from a fixed set of
// trees.
type SeedCreator struct {
	Trees []ast.Node
}

func (s SeedCreator) Create(_ context.Context, _ *models.Problem, rng *rand.Rand) (ast.Node, error) {
	if len(s.Trees) == 0 {
		return nil, domain.NewDomainError(domain.ErrInvalidConfig, "no seed trees")
	}
	return s.Trees[rng.IntN(len(s.Trees))], nil
}
