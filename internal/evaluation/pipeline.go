// Package evaluation runs candidates against their problem's tests, turns
// the timings into runtime profiles and scores the results.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/longregen/amaru/internal/adapters/metrics"
	"github.com/longregen/amaru/internal/adapters/retry"
	"github.com/longregen/amaru/internal/adapters/tracing"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
	"github.com/longregen/amaru/internal/profile"
)

const (
	// DefaultParallelRepeatsThreshold is the highest repeat count for which
	// tests still run concurrently. Above it timings matter and tests run one
	// after another.
	DefaultParallelRepeatsThreshold = 10

	warmupCap       = 100_000
	warmupThreshold = 200_000
)

// DefaultTransientPatterns are executor messages that signal a fault of the
// execution environment rather than of the program.
var DefaultTransientPatterns = []string{
	"WARNING: An illegal reflective access",
	"The worker crashed",
}

// Scorer turns an evaluated candidate's results into its quality and stores
// it on the candidate.
type Scorer interface {
	Score(c *models.Candidate) float64
}

// Calibrator is implemented by scorers that compare candidates with the
// original program of their problem.
type Calibrator interface {
	NeedsBaseline() bool
	SetBaseline(original *models.Candidate) bool
}

type Config struct {
	ParallelRepeatsThreshold int
	// MaxParallelTests bounds concurrent tests of one candidate; 0 means GOMAXPROCS.
	MaxParallelTests  int
	Retry             retry.SettleConfig
	TransientPatterns []string
	// CollectTraces asks tracing executors for node execution counts.
	CollectTraces bool
	// ProfileDir receives raw samples of sequential runs when set.
	ProfileDir string
}

func DefaultConfig() Config {
	return Config{
		ParallelRepeatsThreshold: DefaultParallelRepeatsThreshold,
		Retry:                    retry.TransientConfig(),
		TransientPatterns:        DefaultTransientPatterns,
	}
}

type Pipeline struct {
	cache  *FitnessCache
	scorer Scorer
	cfg    Config
	logger *zap.Logger
}

func NewPipeline(cache *FitnessCache, scorer Scorer, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxParallelTests <= 0 {
		cfg.MaxParallelTests = runtime.GOMAXPROCS(0)
	}
	if cfg.TransientPatterns == nil {
		cfg.TransientPatterns = DefaultTransientPatterns
	}
	return &Pipeline{cache: cache, scorer: scorer, cfg: cfg, logger: logger}
}

// Evaluate scores c against its problem using the executor of sess and
// returns its quality. A candidate that cannot be run at all is hard failed
// and scored, not reported as an error; errors are reserved for a missing
// executor or problem and for cancellation.
func (p *Pipeline) Evaluate(ctx context.Context, sess *Session, c *models.Candidate) (float64, error) {
	if c.Problem == nil {
		return 0, domain.NewDomainError(domain.ErrMissingProblem, "candidate "+c.ID+" has no problem")
	}
	if sess == nil || sess.Executor == nil {
		return 0, domain.NewDomainError(domain.ErrExecutorUnavailable, "no executor session")
	}
	if sess.Key != c.Problem.ExecutionKey() {
		return 0, domain.NewDomainError(domain.ErrExecutorUnavailable, "session is bound to another program")
	}

	ctx, span := tracing.Start(ctx, "pipeline.evaluate",
		attribute.String("candidate", c.ID),
		attribute.Int("tests", len(c.Problem.Tests)))
	defer span.End()

	cached, err := p.cache.Resolve(ctx, c, func(ctx context.Context) error {
		return p.run(ctx, sess, c, nil)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	outcome := "evaluated"
	switch {
	case cached:
		outcome = "cached"
	case c.HardFailed():
		outcome = "hard_failed"
	}
	metrics.EvaluationsTotal.WithLabelValues(outcome).Inc()
	quality := c.Quality()
	span.SetAttributes(attribute.String("outcome", outcome), attribute.Float64("quality", quality))
	return quality, nil
}

// Calibrate evaluates origin, a candidate holding the original program of
// its problem, and hands it to the scorer as the baseline of the runtime
// cachets. The baseline is set before origin itself is scored so that every
// quality the fitness cache stores is relative to it. Calibrate does nothing
// when the scorer needs no baseline or already has one, and leaves origin
// unevaluated in that case.
func (p *Pipeline) Calibrate(ctx context.Context, sess *Session, origin *models.Candidate) error {
	cal, ok := p.scorer.(Calibrator)
	if !ok || !cal.NeedsBaseline() {
		return nil
	}
	if origin.Problem == nil {
		return domain.NewDomainError(domain.ErrMissingProblem, "cannot calibrate without a problem")
	}
	if sess == nil || sess.Executor == nil || sess.Key != origin.Problem.ExecutionKey() {
		return domain.NewDomainError(domain.ErrExecutorUnavailable, "no executor session for the original program")
	}

	ctx, span := tracing.Start(ctx, "pipeline.calibrate", attribute.String("problem", origin.Problem.ID()))
	defer span.End()

	cached, err := p.cache.Resolve(ctx, origin, func(ctx context.Context) error {
		return p.run(ctx, sess, origin, func(c *models.Candidate) { cal.SetBaseline(c) })
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if cached {
		cal.SetBaseline(origin)
	}
	if origin.HardFailed() {
		p.logger.Warn("original program failed, runtimes are compared per candidate",
			zap.String("problem", origin.Problem.ID()))
		return nil
	}
	p.logger.Debug("calibrated runtime baseline",
		zap.String("problem", origin.Problem.ID()), zap.Bool("cached", cached))
	return nil
}

// run executes all tests of c and scores it. beforeScore, when set, sees
// the executed candidate before the scorer does.
func (p *Pipeline) run(ctx context.Context, sess *Session, c *models.Candidate, beforeScore func(*models.Candidate)) error {
	start := time.Now()
	c.ResetResults()

	if err := p.runTests(ctx, sess, c); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.ResetResults()
			return ctxErr
		}
		p.logger.Warn("candidate hard failed", zap.String("candidate", c.ID), zap.Error(err))
		c.HardFail()
	}

	if beforeScore != nil {
		beforeScore(c)
	}
	quality := p.scorer.Score(c)
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	p.logger.Debug("evaluated candidate",
		zap.String("candidate", c.ID),
		zap.Float64("quality", quality),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (p *Pipeline) runTests(ctx context.Context, sess *Session, c *models.Candidate) error {
	tests := c.Problem.Tests
	if c.Problem.Repeats <= p.cfg.ParallelRepeatsThreshold {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.MaxParallelTests)
		for _, tc := range tests {
			g.Go(func() error {
				return p.runTest(gctx, sess, c, tc, false)
			})
		}
		return g.Wait()
	}

	for _, tc := range tests {
		if err := p.runTest(ctx, sess, c, tc, true); err != nil {
			return err
		}
	}
	return nil
}

// runTest runs one test and adds its result to c. It returns an error only
// when the whole candidate has to be given up.
func (p *Pipeline) runTest(ctx context.Context, sess *Session, c *models.Candidate, tc *models.TestCase, benchmark bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewDomainError(domain.ErrHardFailure, fmt.Sprintf("panic in test %s: %v", tc.ID, r))
		}
	}()

	args := tc.InputArgs()
	var result *ports.ExecutionResult
	retries, err := retry.UntilSettled(ctx, p.cfg.Retry, func(attempt int) (bool, error) {
		res, err := sess.Executor.Test(ctx, c.AST, args)
		if err != nil {
			return false, err
		}
		if res == nil {
			return false, domain.NewDomainError(domain.ErrExecutionFailed, "executor returned no result")
		}
		result = res
		transient := !res.Success && p.isTransient(res.ReturnValue)
		if transient {
			p.logger.Debug("transient executor fault",
				zap.String("candidate", c.ID), zap.String("test", tc.ID), zap.Int("attempt", attempt))
		}
		return transient, nil
	})
	if retries > 0 {
		metrics.TransientRetriesTotal.Add(float64(retries))
	}
	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			metrics.TestFailuresTotal.WithLabelValues(string(models.FailureTimeout)).Inc()
			c.AddResult(models.FailedResult(tc, models.FailureTimeout, err.Error()))
			return nil
		}
		return fmt.Errorf("test %s: %w", tc.ID, err)
	}

	tr := buildResult(tc, result)
	if tr.Failed() {
		metrics.TestFailuresTotal.WithLabelValues(string(tr.Failure.Kind)).Inc()
	} else {
		p.attachTrace(ctx, sess, c, tc, tr)
		if benchmark {
			p.dumpSamples(c, tc, result.Samples)
		}
	}
	c.AddResult(tr)
	return nil
}

func (p *Pipeline) attachTrace(ctx context.Context, sess *Session, c *models.Candidate, tc *models.TestCase, tr *models.TestResult) {
	if !p.cfg.CollectTraces {
		return
	}
	tracer, ok := sess.Executor.(ports.TracingExecutor)
	if !ok {
		return
	}
	trace, err := tracer.Trace(ctx, c.AST, tc.InputArgs())
	if err != nil {
		p.logger.Warn("failed to trace test", zap.String("candidate", c.ID), zap.String("test", tc.ID), zap.Error(err))
		return
	}
	tr.Trace = trace
}

func (p *Pipeline) dumpSamples(c *models.Candidate, tc *models.TestCase, samples []int64) {
	if p.cfg.ProfileDir == "" || len(samples) == 0 {
		return
	}
	path := filepath.Join(p.cfg.ProfileDir, c.ID+"_"+tc.ID+".rtp")
	f, err := os.Create(path)
	if err != nil {
		p.logger.Warn("failed to create sample dump", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()
	if err := profile.WriteSamples(f, samples); err != nil {
		p.logger.Warn("failed to write sample dump", zap.String("path", path), zap.Error(err))
	}
}

func (p *Pipeline) isTransient(v any) bool {
	msg, ok := failureText(v)
	if !ok {
		return false
	}
	for _, pattern := range p.cfg.TransientPatterns {
		if strings.HasPrefix(msg, pattern) {
			return true
		}
	}
	return false
}

func failureText(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case error:
		return v.Error(), true
	}
	return "", false
}

func isTimeout(err error) bool {
	return errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// buildResult converts an executor result into a test result.
func buildResult(tc *models.TestCase, res *ports.ExecutionResult) *models.TestResult {
	if !res.Success {
		kind, msg := classifyFailure(res.ReturnValue)
		return models.FailedResult(tc, kind, msg)
	}

	out := models.ValueOf(res.ReturnValue, tc.ExpectedValueKind())
	kind := tc.ExpectedValueKind()
	if out != nil {
		kind = out.Kind
	}
	optimized, unoptimized := SplitSamples(res.Samples)
	return &models.TestResult{
		TestID:      tc.ID,
		Test:        tc,
		Output:      out,
		OutputKind:  kind,
		Runtime:     optimized,
		Unoptimized: unoptimized,
	}
}

func classifyFailure(v any) (models.FailureKind, string) {
	switch v := v.(type) {
	case error:
		return models.FailureThrowable, v.Error()
	case string:
		return models.FailureMessage, v
	case nil:
		return models.FailureMessage, "execution failed without a message"
	default:
		return models.FailureMessage, fmt.Sprint(v)
	}
}

// SplitSamples separates warm-up from measured samples: with 200 000 samples
// or more the first 100 000 are warm-up, otherwise the first half. The
// warm-up profile is nil when there is no warm-up part. Without samples both
// profiles are the failed sentinel.
func SplitSamples(samples []int64) (optimized, unoptimized *profile.RuntimeProfile) {
	n := len(samples)
	if n == 0 {
		return profile.Failed(), profile.Failed()
	}
	size := n / 2
	if n >= warmupThreshold {
		size = warmupCap
	}
	optimized, err := profile.New(samples[size:])
	if err != nil {
		optimized = profile.Failed()
	}
	if size > 0 {
		if unoptimized, err = profile.New(samples[:size]); err != nil {
			unoptimized = profile.Failed()
		}
	}
	return optimized, unoptimized
}
