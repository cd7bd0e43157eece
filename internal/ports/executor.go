package ports

import (
	"context"
	"time"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain/models"
)

// ExecutionResult is what an executor reports for one run of a tree.
type ExecutionResult struct {
	// ReturnValue is the produced value. On failure it holds a *ProgramError
	// when the program raised one, or the executor's message otherwise.
	ReturnValue any
	// Output is what the program wrote to its output stream.
	Output string
	// Samples are the per-repeat timings in nanoseconds.
	Samples []int64
	Success bool
}

// ProgramError is an error raised by the program under test, as opposed to
// an error of the executor itself.
type ProgramError struct {
	Type    string `json:"type" msgpack:"type"`
	Message string `json:"message" msgpack:"message"`
}

func (e *ProgramError) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return e.Type + ": " + e.Message
}

// Executor runs candidate trees of one bound problem.
//
// Test returns an error only when the executor itself cannot continue;
// program failures are reported through ExecutionResult.Success. A timeout
// is reported as an error wrapping domain.ErrTimeout or context.DeadlineExceeded.
type Executor interface {
	Test(ctx context.Context, tree ast.Node, inputs []any) (*ExecutionResult, error)
	SetTimeout(timeout time.Duration)
	SetRepeats(repeats int)
	Close() error
}

// TracingExecutor is an executor that can also record node execution counts.
type TracingExecutor interface {
	Executor
	Trace(ctx context.Context, tree ast.Node, inputs []any) (*models.Trace, error)
}

// ExecutorFactory creates executors bound to one execution key.
type ExecutorFactory interface {
	NewExecutor(ctx context.Context, key models.ExecutionKey) (Executor, error)
}
