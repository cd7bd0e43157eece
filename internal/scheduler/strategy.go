package scheduler

import (
	"slices"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
)

// Strategy names
const (
	StrategySequential = "sequential-complexity"
	StrategyParallel   = "parallel-complexity"
	StrategyRepeating  = "repeating"
)

// Group is one unit of work of a round: the tests a population evolves
// against and the candidates it starts from.
type Group struct {
	Tests []*models.TestCase
	Seeds models.Population
	// Final is the group's population at the end of its run, best first.
	// The scheduler fills it before the merge boundary.
	Final models.Population
}

// Strategy decides how the tests of a problem are staged. Partition starts a
// run and returns the groups of the first round; OnMergeBoundary receives the
// finished groups of a round and returns the groups of the next one, or none
// to stop. A Strategy drives one run at a time.
type Strategy interface {
	Name() string
	Partition(tests []*models.TestCase) []Group
	OnMergeBoundary(round int, finished []Group) []Group
}

// StrategyConfig carries the parameters of all strategies.
type StrategyConfig struct {
	// Sequences is the number of stages (sequential) or repetitions (repeating).
	Sequences int `yaml:"sequences" validate:"gte=1"`
	// GenerationalElites is the number of candidates carried per group into
	// the next round.
	GenerationalElites int `yaml:"generational_elites" validate:"gte=0"`
	StartingGroups     int `yaml:"starting_groups" validate:"gte=1"`
	// CombinationRate divides the group count after every round.
	CombinationRate int  `yaml:"combination_rate" validate:"gte=2"`
	GroupSimilar    bool `yaml:"group_similar"`
}

func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Sequences:          3,
		GenerationalElites: 10,
		StartingGroups:     3,
		CombinationRate:    2,
		GroupSimilar:       true,
	}
}

// NewStrategy builds the named strategy.
func NewStrategy(name string, cfg StrategyConfig) (Strategy, error) {
	switch name {
	case StrategySequential:
		if cfg.Sequences < 1 {
			return nil, domain.NewDomainError(domain.ErrInvalidConfig, "sequences must be positive")
		}
		return &SequentialComplexity{Sequences: cfg.Sequences, GenerationalElites: cfg.GenerationalElites}, nil
	case StrategyParallel:
		if cfg.StartingGroups < 1 {
			return nil, domain.NewDomainError(domain.ErrInvalidConfig, "starting groups must be positive")
		}
		if cfg.CombinationRate < 2 {
			return nil, domain.NewDomainError(domain.ErrInvalidConfig, "combination rate must be at least 2")
		}
		return &ParallelComplexity{
			StartingGroups:     cfg.StartingGroups,
			CombinationRate:    cfg.CombinationRate,
			GenerationalElites: cfg.GenerationalElites,
			GroupSimilar:       cfg.GroupSimilar,
		}, nil
	case StrategyRepeating:
		if cfg.Sequences < 1 {
			return nil, domain.NewDomainError(domain.ErrInvalidConfig, "sequences must be positive")
		}
		return &Repeating{Sequences: cfg.Sequences, GenerationalElites: cfg.GenerationalElites}, nil
	}
	return nil, domain.NewDomainError(domain.ErrUnknownStrategy, name)
}

// Strategies lists the known strategy names.
func Strategies() []string {
	return []string{StrategySequential, StrategyParallel, StrategyRepeating}
}

func testIDs(tests []*models.TestCase) []string {
	ids := make([]string, len(tests))
	for i, t := range tests {
		ids[i] = t.ID
	}
	return ids
}

func intersects(a, b []*models.TestCase) bool {
	for _, t := range a {
		if slices.ContainsFunc(b, func(o *models.TestCase) bool { return o.ID == t.ID }) {
			return true
		}
	}
	return false
}
