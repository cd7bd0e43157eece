package ports

import (
	"context"
	"math/rand/v2"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain/models"
)

// Selector picks a parent from a population sorted best first.
type Selector interface {
	Select(pop models.Population, rng *rand.Rand) *models.Candidate
}

// Crossover recombines two parent trees into a child tree.
type Crossover interface {
	Breed(ctx context.Context, a, b ast.Node, rng *rand.Rand) (ast.Node, error)
}

// Mutator derives a modified tree.
type Mutator interface {
	Mutate(ctx context.Context, tree ast.Node, rng *rand.Rand) (ast.Node, error)
}

// Creator builds initial trees for a problem.
type Creator interface {
	Create(ctx context.Context, problem *models.Problem, rng *rand.Rand) (ast.Node, error)
}

// WeightModel estimates the cost of a tree from execution traces without
// running it.
type WeightModel interface {
	Weight(tree ast.Node, traces []*models.Trace) float64
}
