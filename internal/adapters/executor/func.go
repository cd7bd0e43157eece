package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// RunFunc runs tree on inputs. A returned error is a failure of the program,
// not of the executor; a *ports.ProgramError keeps its type.
type RunFunc func(ctx context.Context, tree ast.Node, inputs []any) (any, error)

// TraceFunc reports how often each node of tree runs on inputs.
type TraceFunc func(ctx context.Context, tree ast.Node, inputs []any) (*models.Trace, error)

// FuncExecutor runs candidates in process and times every repeat.
type FuncExecutor struct {
	run RunFunc

	mu      sync.RWMutex
	timeout time.Duration
	repeats int
}

func NewFuncExecutor(run RunFunc) *FuncExecutor {
	return &FuncExecutor{run: run, repeats: 1}
}

func (e *FuncExecutor) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeout = timeout
}

func (e *FuncExecutor) SetRepeats(repeats int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeats = max(repeats, 1)
}

// Test runs tree once per repeat, each run bounded by the timeout. The
// result of the last run is reported; the first failing run stops the loop.
func (e *FuncExecutor) Test(ctx context.Context, tree ast.Node, inputs []any) (*ports.ExecutionResult, error) {
	e.mu.RLock()
	timeout, repeats := e.timeout, e.repeats
	e.mu.RUnlock()

	res := &ports.ExecutionResult{Samples: make([]int64, 0, repeats)}
	for range repeats {
		runCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		start := time.Now()
		value, err := e.run(runCtx, tree, inputs)
		elapsed := time.Since(start)
		cancel()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if timeout > 0 && (elapsed > timeout || errors.Is(err, context.DeadlineExceeded)) {
			return nil, domain.NewDomainError(domain.ErrTimeout, fmt.Sprintf("program exceeded %s", timeout))
		}
		if err != nil {
			var progErr *ports.ProgramError
			if errors.As(err, &progErr) {
				res.ReturnValue = progErr
			} else {
				res.ReturnValue = err.Error()
			}
			res.Success = false
			return res, nil
		}
		res.ReturnValue = value
		res.Success = true
		res.Samples = append(res.Samples, elapsed.Nanoseconds())
	}
	return res, nil
}

func (e *FuncExecutor) Close() error { return nil }

// TracingFuncExecutor is a FuncExecutor that can also trace.
type TracingFuncExecutor struct {
	*FuncExecutor
	trace TraceFunc
}

func (e *TracingFuncExecutor) Trace(ctx context.Context, tree ast.Node, inputs []any) (*models.Trace, error) {
	return e.trace(ctx, tree, inputs)
}

// FuncFactory creates in-process executors. Every execution key gets the
// same functions; a nil Trace gives executors without tracing.
type FuncFactory struct {
	Run   RunFunc
	Trace TraceFunc
}

func (f FuncFactory) NewExecutor(_ context.Context, _ models.ExecutionKey) (ports.Executor, error) {
	if f.Run == nil {
		return nil, domain.NewDomainError(domain.ErrExecutorUnavailable, "no run function configured")
	}
	exec := NewFuncExecutor(f.Run)
	if f.Trace != nil {
		return &TracingFuncExecutor{FuncExecutor: exec, trace: f.Trace}, nil
	}
	return exec, nil
}
