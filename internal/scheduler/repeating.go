package scheduler

import "github.com/longregen/amaru/internal/domain/models"

// Repeating restarts the engine Sequences times on the whole problem. Each
// restart is seeded with the best candidate found so far followed by the
// remaining top GenerationalElites of the previous run.
type Repeating struct {
	Sequences          int
	GenerationalElites int

	tests []*models.TestCase
}

func (r *Repeating) Name() string { return StrategyRepeating }

func (r *Repeating) Partition(tests []*models.TestCase) []Group {
	r.tests = tests
	if r.Sequences < 1 {
		return nil
	}
	return []Group{{Tests: tests}}
}

func (r *Repeating) OnMergeBoundary(round int, finished []Group) []Group {
	if round+1 >= r.Sequences {
		return nil
	}
	var seeds models.Population
	for _, g := range finished {
		seeds = append(seeds, g.Final...)
	}
	return []Group{{Tests: r.tests, Seeds: seeds.Top(max(r.GenerationalElites, 1))}}
}
