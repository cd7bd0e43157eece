package scheduler

import (
	"cmp"
	"slices"

	"github.com/longregen/amaru/internal/domain/models"
)

// SequentialComplexity stages tests from simple to complex. Tests are sorted
// by complexity and split into Sequences ordered buckets; stage i evolves
// against the union of buckets 0..i, seeded with the best
// GenerationalElites candidates of stage i-1.
type SequentialComplexity struct {
	Sequences          int
	GenerationalElites int

	buckets [][]*models.TestCase
}

func (s *SequentialComplexity) Name() string { return StrategySequential }

func (s *SequentialComplexity) Partition(tests []*models.TestCase) []Group {
	s.buckets = complexityBuckets(tests, s.Sequences)
	if len(s.buckets) == 0 {
		return nil
	}
	return []Group{{Tests: s.cumulative(0)}}
}

func (s *SequentialComplexity) OnMergeBoundary(round int, finished []Group) []Group {
	next := round + 1
	if next >= len(s.buckets) {
		return nil
	}
	var seeds models.Population
	for _, g := range finished {
		seeds = append(seeds, g.Final.Top(s.GenerationalElites)...)
	}
	return []Group{{Tests: s.cumulative(next), Seeds: seeds.Top(s.GenerationalElites)}}
}

func (s *SequentialComplexity) cumulative(stage int) []*models.TestCase {
	var tests []*models.TestCase
	for _, b := range s.buckets[:stage+1] {
		tests = append(tests, b...)
	}
	return tests
}

// complexityBuckets sorts tests by ascending complexity, ties by ID, and
// splits them into min(n, len(tests)) contiguous buckets whose sizes differ
// by at most one.
func complexityBuckets(tests []*models.TestCase, n int) [][]*models.TestCase {
	n = min(n, len(tests))
	if n < 1 {
		return nil
	}
	sorted := slices.Clone(tests)
	slices.SortStableFunc(sorted, func(a, b *models.TestCase) int {
		if c := cmp.Compare(a.Complexity(), b.Complexity()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	buckets := make([][]*models.TestCase, n)
	for i, t := range sorted {
		b := i * n / len(sorted)
		buckets[b] = append(buckets[b], t)
	}
	return buckets
}
