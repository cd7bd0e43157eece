package scheduler

import (
	"math/rand/v2"

	"github.com/longregen/amaru/internal/domain/models"
)

// TournamentSelector draws Size candidates at random and returns the best
// of them.
type TournamentSelector struct {
	Size int
}

func (s TournamentSelector) Select(pop models.Population, rng *rand.Rand) *models.Candidate {
	if len(pop) == 0 {
		return nil
	}
	var winner *models.Candidate
	for range max(s.Size, 1) {
		c := pop[rng.IntN(len(pop))]
		if winner == nil || better(c, winner) {
			winner = c
		}
	}
	return winner
}

// better orders candidates like Population.Sort.
func better(a, b *models.Candidate) bool {
	qa, qb := a.Quality(), b.Quality()
	if qa != qb {
		return qa < qb
	}
	return a.ID < b.ID
}
