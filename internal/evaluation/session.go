package evaluation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// Session is an executor bound to the execution key of one problem. It is
// passed explicitly into every evaluation.
type Session struct {
	Executor ports.Executor
	Key      models.ExecutionKey
	Repeats  int
	Timeout  time.Duration
}

// Binder hands out sessions and only creates a new executor when the
// execution key changes.
type Binder struct {
	factory        ports.ExecutorFactory
	defaultTimeout time.Duration
	logger         *zap.Logger

	mu      sync.Mutex
	current *Session
}

func NewBinder(factory ports.ExecutorFactory, defaultTimeout time.Duration, logger *zap.Logger) *Binder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Binder{factory: factory, defaultTimeout: defaultTimeout, logger: logger}
}

// Bind returns a session able to run candidates of problem.
func (b *Binder) Bind(ctx context.Context, problem *models.Problem) (*Session, error) {
	if problem == nil {
		return nil, domain.NewDomainError(domain.ErrMissingProblem, "cannot bind executor")
	}
	timeout := problem.Timeout
	if timeout <= 0 {
		timeout = b.defaultTimeout
	}
	repeats := max(problem.Repeats, 1)
	key := problem.ExecutionKey()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil && b.current.Key == key {
		if b.current.Repeats != repeats || b.current.Timeout != timeout {
			b.current.Executor.SetRepeats(repeats)
			b.current.Executor.SetTimeout(timeout)
			b.current = &Session{Executor: b.current.Executor, Key: key, Repeats: repeats, Timeout: timeout}
		}
		return b.current, nil
	}

	if b.factory == nil {
		return nil, domain.NewDomainError(domain.ErrExecutorUnavailable, "no executor factory configured")
	}
	exec, err := b.factory.NewExecutor(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor for %s/%s: %w", key.Language, key.Function, err)
	}
	exec.SetRepeats(repeats)
	exec.SetTimeout(timeout)

	if b.current != nil {
		if err := b.current.Executor.Close(); err != nil {
			b.logger.Warn("failed to close previous executor", zap.Error(err))
		}
	}
	b.logger.Debug("bound executor",
		zap.String("language", key.Language),
		zap.String("function", key.Function),
		zap.Int("repeats", repeats),
		zap.Duration("timeout", timeout))
	b.current = &Session{Executor: exec, Key: key, Repeats: repeats, Timeout: timeout}
	return b.current, nil
}

// Close releases the bound executor.
func (b *Binder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	err := b.current.Executor.Close()
	b.current = nil
	return err
}

// BoundEvaluator evaluates candidates through a pipeline, binding the
// executor to each candidate's problem first.
type BoundEvaluator struct {
	binder   *Binder
	pipeline *Pipeline
}

func NewBoundEvaluator(binder *Binder, pipeline *Pipeline) *BoundEvaluator {
	return &BoundEvaluator{binder: binder, pipeline: pipeline}
}

func (e *BoundEvaluator) Evaluate(ctx context.Context, c *models.Candidate) (float64, error) {
	if c.Problem == nil {
		return models.WorstQuality, domain.NewDomainError(domain.ErrMissingProblem, "candidate "+c.ID+" has no problem")
	}
	sess, err := e.binder.Bind(ctx, c.Problem)
	if err != nil {
		return models.WorstQuality, err
	}
	return e.pipeline.Evaluate(ctx, sess, c)
}

// Calibrate measures the original program of origin's problem once, see
// Pipeline.Calibrate.
func (e *BoundEvaluator) Calibrate(ctx context.Context, origin *models.Candidate) error {
	if origin.Problem == nil {
		return domain.NewDomainError(domain.ErrMissingProblem, "candidate "+origin.ID+" has no problem")
	}
	sess, err := e.binder.Bind(ctx, origin.Problem)
	if err != nil {
		return err
	}
	return e.pipeline.Calibrate(ctx, sess, origin)
}
