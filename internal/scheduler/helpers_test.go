package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain/models"
)

// seqIDs hands out sortable, predictable IDs.
type seqIDs struct {
	n atomic.Int64
}

func (s *seqIDs) GenerateCandidateID() string { return fmt.Sprintf("cd_%06d", s.n.Add(1)) }
func (s *seqIDs) GenerateRunID() string       { return fmt.Sprintf("sr_%06d", s.n.Add(1)) }

func number(n int) *ast.Tree { return ast.Leaf("const", strconv.Itoa(n)) }

func valueOf(tree ast.Node) int {
	n, _ := strconv.Atoi(tree.(*ast.Tree).Literal)
	return n
}

type evalCall struct {
	candidate string
	value     int
	tests     []string
}

// targetEvaluator scores a constant by its distance to target, scaled by
// the number of tests of the candidate's problem.
type targetEvaluator struct {
	target int
	fail   func(c *models.Candidate) error

	mu    sync.Mutex
	calls []evalCall
}

func (e *targetEvaluator) Evaluate(ctx context.Context, c *models.Candidate) (float64, error) {
	if err := ctx.Err(); err != nil {
		return models.WorstQuality, err
	}
	e.mu.Lock()
	e.calls = append(e.calls, evalCall{candidate: c.ID, value: valueOf(c.AST), tests: testIDs(c.Problem.Tests)})
	e.mu.Unlock()
	if e.fail != nil {
		if err := e.fail(c); err != nil {
			return models.WorstQuality, err
		}
	}
	q := math.Abs(float64(valueOf(c.AST)-e.target)) * float64(len(c.Problem.Tests))
	c.SetQuality(q, []models.Cachet{{Name: "distance", Value: q, Weight: 1}})
	return q, nil
}

func (e *targetEvaluator) Calls() []evalCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]evalCall(nil), e.calls...)
}

// randomCreator creates constants in [0, 100).
type randomCreator struct {
	err error
}

func (r randomCreator) Create(_ context.Context, _ *models.Problem, rng *rand.Rand) (ast.Node, error) {
	if r.err != nil {
		return nil, r.err
	}
	return number(rng.IntN(100)), nil
}

// stepMutator moves a constant by one.
type stepMutator struct {
	failEvery int64
	calls     atomic.Int64
}

func (m *stepMutator) Mutate(_ context.Context, tree ast.Node, rng *rand.Rand) (ast.Node, error) {
	n := m.calls.Add(1)
	if m.failEvery > 0 && n%m.failEvery == 0 {
		return nil, errors.New("mutation produced an invalid tree")
	}
	if rng.IntN(2) == 0 {
		return number(valueOf(tree) - 1), nil
	}
	return number(valueOf(tree) + 1), nil
}

// meanCrossover averages two constants.
type meanCrossover struct{}

func (meanCrossover) Breed(_ context.Context, a, b ast.Node, _ *rand.Rand) (ast.Node, error) {
	return number((valueOf(a) + valueOf(b)) / 2), nil
}

func operators() Operators {
	return Operators{
		Selector:  TournamentSelector{Size: 3},
		Crossover: meanCrossover{},
		Mutator:   &stepMutator{},
		Creator:   randomCreator{},
	}
}

func gaConfig() GAConfig {
	return GAConfig{
		PopulationSize:       10,
		Elites:               2,
		MaxGenerations:       5,
		MutationProbability:  0.5,
		CrossoverProbability: 0.5,
	}
}

func rng() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

// testProblem builds n tests t0..t{n-1}; test i has complexity n-i and
// executes nodes shared with its neighbours.
func testProblem(n int) *models.Problem {
	tests := make([]*models.TestCase, n)
	for i := range tests {
		tests[i] = &models.TestCase{
			ID:        fmt.Sprintf("t%d", i),
			Inputs:    []*models.Value{models.IntValue(int64(i))},
			Expected:  models.IntValue(int64(i)),
			NodeCount: n - i,
			Nodes:     []string{fmt.Sprintf("n%d", i/2), fmt.Sprintf("m%d", i)},
		}
	}
	return models.NewProblem(models.Problem{Language: "minic", Code: "int f(int x) { return x; }", Function: "f", Repeats: 1, Tests: tests})
}

func candidateWithQuality(id string, q float64) *models.Candidate {
	c := models.NewCandidate(id, number(0), testProblem(1))
	c.SetQuality(q, nil)
	return c
}

// calibratingEvaluator records the original program it was calibrated with
// and how many candidates were scored before that.
type calibratingEvaluator struct {
	*targetEvaluator
	err error

	origin      *models.Candidate
	scoredFirst int
}

func (e *calibratingEvaluator) Calibrate(_ context.Context, origin *models.Candidate) error {
	e.origin = origin
	e.scoredFirst = len(e.Calls())
	return e.err
}
