package models

import (
	"cmp"
	"slices"
)

// Population is the set of candidates of one generation.
type Population []*Candidate

// Sort orders the population by quality, best first. Ties are broken by
// candidate ID so equal populations always sort the same way.
func (p Population) Sort() {
	qualities := make(map[*Candidate]float64, len(p))
	for _, c := range p {
		qualities[c] = c.Quality()
	}
	slices.SortStableFunc(p, func(a, b *Candidate) int {
		if c := cmp.Compare(qualities[a], qualities[b]); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Sorted returns a sorted copy.
func (p Population) Sorted() Population {
	s := slices.Clone(p)
	s.Sort()
	return s
}

// Best returns the best candidate, or nil for an empty population.
func (p Population) Best() *Candidate {
	if len(p) == 0 {
		return nil
	}
	return p.Sorted()[0]
}

// Top returns the k best candidates, best first.
func (p Population) Top(k int) Population {
	s := p.Sorted()
	if k < len(s) {
		s = s[:max(k, 0)]
	}
	return s
}
