package evaluation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/longregen/amaru/internal/adapters/retry"
	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// fakeExecutor answers every call through fn and counts calls.
type fakeExecutor struct {
	fn    func(call int64, tree ast.Node, inputs []any) (*ports.ExecutionResult, error)
	trace func(tree ast.Node, inputs []any) (*models.Trace, error)

	calls       atomic.Int64
	inflight    atomic.Int64
	maxInflight atomic.Int64

	mu      sync.Mutex
	repeats int
	timeout time.Duration
	closed  bool
}

func (e *fakeExecutor) Test(ctx context.Context, tree ast.Node, inputs []any) (*ports.ExecutionResult, error) {
	call := e.calls.Add(1)
	n := e.inflight.Add(1)
	defer e.inflight.Add(-1)
	for {
		m := e.maxInflight.Load()
		if n <= m || e.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	return e.fn(call, tree, inputs)
}

func (e *fakeExecutor) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeout = timeout
}

func (e *fakeExecutor) SetRepeats(repeats int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeats = repeats
}

func (e *fakeExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// tracingExecutor adds tracing to fakeExecutor.
type tracingExecutor struct {
	*fakeExecutor
}

func (e tracingExecutor) Trace(ctx context.Context, tree ast.Node, inputs []any) (*models.Trace, error) {
	return e.trace(tree, inputs)
}

// doubling answers like a correct implementation of f(x) = 2x.
func doubling(samples ...int64) func(int64, ast.Node, []any) (*ports.ExecutionResult, error) {
	if len(samples) == 0 {
		samples = []int64{100, 110, 120, 90}
	}
	return func(_ int64, _ ast.Node, inputs []any) (*ports.ExecutionResult, error) {
		x := inputs[0].(int64)
		return &ports.ExecutionResult{ReturnValue: 2 * x, Samples: samples, Success: true}, nil
	}
}

// failureScorer scores a candidate by its number of failed tests.
type failureScorer struct{}

func (failureScorer) Score(c *models.Candidate) float64 {
	results, ok := c.Results()
	if !ok {
		c.SetQuality(models.WorstQuality, nil)
		return models.WorstQuality
	}
	q := 0.0
	for _, r := range results {
		if r.Failed() {
			q++
		}
	}
	c.SetQuality(q, []models.Cachet{{Name: "failures", Value: q, Weight: 1}})
	return q
}

func newProblem(repeats int, n int) *models.Problem {
	tests := make([]*models.TestCase, n)
	for i := range tests {
		x := int64(i + 1)
		tests[i] = &models.TestCase{
			ID:       string(rune('a' + i)),
			Inputs:   []*models.Value{models.IntValue(x)},
			Expected: models.IntValue(2 * x),
		}
	}
	return models.NewProblem(models.Problem{
		Language:   "minic",
		Code:       "int f(int x) { return 2 * x; }",
		EntryPoint: "main",
		Function:   "f",
		Repeats:    repeats,
		Tests:      tests,
	})
}

func session(exec ports.Executor, p *models.Problem) *Session {
	return &Session{Executor: exec, Key: p.ExecutionKey(), Repeats: p.Repeats}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = retry.SettleConfig{MaxRetries: 20}
	return cfg
}

func tree() ast.Node {
	return ast.New("mul", ast.Leaf("const", "2"), ast.Leaf("local", "x"))
}
