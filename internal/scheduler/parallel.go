package scheduler

import (
	"cmp"
	"slices"

	"github.com/longregen/amaru/internal/domain/models"
)

// ParallelComplexity evolves groups of similar (or dissimilar) tests
// independently and merges them round by round. The group count starts at
// min(StartingGroups, tests) and is divided by CombinationRate after every
// round until it reaches zero. Each new group is seeded with the best
// GenerationalElites candidates of every finished group sharing a test
// with it.
type ParallelComplexity struct {
	StartingGroups     int
	CombinationRate    int
	GenerationalElites int
	GroupSimilar       bool

	tests  []*models.TestCase
	groups int
}

func (p *ParallelComplexity) Name() string { return StrategyParallel }

func (p *ParallelComplexity) Partition(tests []*models.TestCase) []Group {
	p.tests = tests
	p.groups = min(p.StartingGroups, len(tests))
	return p.distribute(nil)
}

func (p *ParallelComplexity) OnMergeBoundary(_ int, finished []Group) []Group {
	p.groups /= max(p.CombinationRate, 2)
	return p.distribute(finished)
}

// distribute partitions the tests into p.groups groups and seeds them from
// the finished groups of the previous round.
func (p *ParallelComplexity) distribute(finished []Group) []Group {
	if p.groups < 1 {
		return nil
	}
	parts := groupByOverlap(p.tests, p.groups, p.GroupSimilar)
	groups := make([]Group, len(parts))
	for j, tests := range parts {
		groups[j].Tests = tests
		for _, f := range finished {
			if intersects(f.Tests, tests) {
				groups[j].Seeds = append(groups[j].Seeds, f.Final.Top(p.GenerationalElites)...)
			}
		}
	}
	return groups
}

// groupByOverlap splits tests into n groups whose sizes differ by at most
// one. Tests are taken in ID order: every group is led by the first
// ungrouped test and filled with the ungrouped tests overlapping most with
// the leader (similar) or least (dissimilar). Ties go to the lower ID.
func groupByOverlap(tests []*models.TestCase, n int, similar bool) [][]*models.TestCase {
	n = min(n, len(tests))
	if n < 1 {
		return nil
	}
	remaining := slices.Clone(tests)
	slices.SortStableFunc(remaining, func(a, b *models.TestCase) int { return cmp.Compare(a.ID, b.ID) })

	groups := make([][]*models.TestCase, n)
	base, extra := len(tests)/n, len(tests)%n
	for i := range groups {
		size := base
		if i < extra {
			size++
		}
		lead := remaining[0]
		remaining = remaining[1:]
		group := []*models.TestCase{lead}
		for len(group) < size {
			pick := 0
			for k := 1; k < len(remaining); k++ {
				o, best := lead.Overlap(remaining[k]), lead.Overlap(remaining[pick])
				if (similar && o > best) || (!similar && o < best) {
					pick = k
				}
			}
			group = append(group, remaining[pick])
			remaining = slices.Delete(remaining, pick, pick+1)
		}
		groups[i] = group
	}
	return groups
}
