package scheduler

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/adapters/metrics"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// RoundStart describes a round about to run.
type RoundStart struct {
	RunID     string
	Strategy  string
	ProblemID string
	Round     int
	Groups    int
	Tests     int
}

// GenerationReport describes one generation of one group.
type GenerationReport struct {
	RunID      string
	Strategy   string
	Round      int
	Group      int
	Generation int
	Size       int
	Best       *models.Candidate
}

// RunReport describes a finished run.
type RunReport struct {
	RunID     string
	Strategy  string
	ProblemID string
	Rounds    int
	Best      *models.Candidate
	Err       error
}

// Observer is notified while a run progresses. OnGeneration may be called
// concurrently when groups run concurrently.
type Observer interface {
	OnRoundStart(ctx context.Context, r RoundStart)
	OnGeneration(ctx context.Context, r GenerationReport)
	OnRunFinished(ctx context.Context, r RunReport)
}

// Observers fans out to several observers.
type Observers []Observer

func (o Observers) OnRoundStart(ctx context.Context, r RoundStart) {
	for _, obs := range o {
		obs.OnRoundStart(ctx, r)
	}
}

func (o Observers) OnGeneration(ctx context.Context, r GenerationReport) {
	for _, obs := range o {
		obs.OnGeneration(ctx, r)
	}
}

func (o Observers) OnRunFinished(ctx context.Context, r RunReport) {
	for _, obs := range o {
		obs.OnRunFinished(ctx, r)
	}
}

// LogObserver logs run progress.
type LogObserver struct {
	Logger *zap.Logger
}

func (l LogObserver) OnRoundStart(_ context.Context, r RoundStart) {
	l.Logger.Info("round started",
		zap.String("run", r.RunID),
		zap.String("strategy", r.Strategy),
		zap.Int("round", r.Round),
		zap.Int("groups", r.Groups),
		zap.Int("tests", r.Tests))
}

func (l LogObserver) OnGeneration(_ context.Context, r GenerationReport) {
	fields := []zap.Field{
		zap.String("run", r.RunID),
		zap.Int("round", r.Round),
		zap.Int("group", r.Group),
		zap.Int("generation", r.Generation),
		zap.Int("size", r.Size),
	}
	if r.Best != nil {
		fields = append(fields, zap.String("best", r.Best.ID), zap.Float64("quality", r.Best.Quality()))
	}
	l.Logger.Debug("generation evaluated", fields...)
}

func (l LogObserver) OnRunFinished(_ context.Context, r RunReport) {
	if r.Err != nil {
		l.Logger.Error("run failed", zap.String("run", r.RunID), zap.String("strategy", r.Strategy), zap.Error(r.Err))
		return
	}
	fields := []zap.Field{
		zap.String("run", r.RunID),
		zap.String("strategy", r.Strategy),
		zap.String("problem", r.ProblemID),
		zap.Int("rounds", r.Rounds),
	}
	if r.Best != nil {
		fields = append(fields, zap.String("best", r.Best.ID), zap.Float64("quality", r.Best.Quality()))
	}
	l.Logger.Info("run finished", fields...)
}

// MetricsObserver publishes the best quality of the final round.
type MetricsObserver struct{}

func (MetricsObserver) OnRoundStart(context.Context, RoundStart)       {}
func (MetricsObserver) OnGeneration(context.Context, GenerationReport) {}

func (MetricsObserver) OnRunFinished(_ context.Context, r RunReport) {
	if r.Best != nil && r.Err == nil {
		metrics.BestQuality.WithLabelValues(r.Strategy).Set(r.Best.Quality())
	}
}

// RunRecorder persists the bookkeeping of a run and of each of its rounds.
// Repository failures are logged and do not stop the run.
type RunRecorder struct {
	repo   ports.RunRepository
	tx     ports.TransactionManager
	logger *zap.Logger

	mu      sync.Mutex
	run     *models.Run
	round   *models.RunRound
	config  map[string]any
	created bool
}

func NewRunRecorder(repo ports.RunRepository, config map[string]any, logger *zap.Logger) *RunRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunRecorder{repo: repo, config: config, logger: logger}
}

// WithTransactions makes the run update and the round insert of each
// finished round commit together.
func (rr *RunRecorder) WithTransactions(tm ports.TransactionManager) *RunRecorder {
	rr.tx = tm
	return rr
}

// Run returns a copy of the recorded run.
func (rr *RunRecorder) Run() *models.Run {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rr.run == nil {
		return nil
	}
	run := *rr.run
	return &run
}

func (rr *RunRecorder) OnRoundStart(ctx context.Context, r RoundStart) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.run == nil || rr.run.ID != r.RunID {
		rr.run = models.NewRun(r.RunID, r.Strategy, r.ProblemID)
		maps.Copy(rr.run.Config, rr.config)
		rr.round = nil
		rr.created = false
		rr.save(ctx)
	}
	rr.flushRound(ctx)
	rr.round = &models.RunRound{
		RunID:       r.RunID,
		Round:       r.Round,
		Groups:      r.Groups,
		Tests:       r.Tests,
		BestQuality: models.WorstQuality,
	}
}

func (rr *RunRecorder) OnGeneration(_ context.Context, r GenerationReport) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rr.round == nil || rr.round.Round != r.Round {
		return
	}
	rr.round.Generations++
	if r.Best != nil && bestOfRound(rr.round, r.Best) {
		rr.round.BestQuality = r.Best.Quality()
		rr.round.BestCandidateID = r.Best.ID
		rr.round.BestCachets = cachetValues(r.Best)
	}
}

func (rr *RunRecorder) OnRunFinished(ctx context.Context, r RunReport) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rr.run == nil {
		rr.run = models.NewRun(r.RunID, r.Strategy, r.ProblemID)
		maps.Copy(rr.run.Config, rr.config)
	}
	rr.flushRound(ctx)

	if r.Best != nil {
		rr.run.BestQuality = r.Best.Quality()
		rr.run.BestCandidateID = r.Best.ID
		rr.run.BestCachets = cachetValues(r.Best)
	}
	if r.Err != nil {
		rr.run.MarkFailed(r.Err)
	} else {
		rr.run.MarkCompleted()
	}
	rr.save(ctx)
}

// flushRound folds the open round into the run and persists both.
func (rr *RunRecorder) flushRound(ctx context.Context) {
	if rr.round == nil {
		return
	}
	round := rr.round
	rr.round = nil
	round.CreatedAt = rr.run.UpdatedAt
	rr.run.Observe(*round)
	if rr.repo == nil {
		return
	}
	if !rr.created {
		rr.save(ctx)
		if !rr.created {
			return
		}
	}

	persist := func(ctx context.Context) error {
		if err := rr.repo.Update(ctx, rr.run); err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if err := rr.repo.AddRound(ctx, round); err != nil {
			return fmt.Errorf("add round: %w", err)
		}
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if rr.tx != nil {
		err = rr.tx.WithTransaction(ctx, persist)
	} else {
		err = persist(ctx)
	}
	if err != nil {
		rr.logger.Warn("failed to record run round", zap.String("run", round.RunID), zap.Int("round", round.Round), zap.Error(err))
	}
}

func (rr *RunRecorder) save(ctx context.Context) {
	if rr.repo == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if !rr.created {
		if err := rr.repo.Create(ctx, rr.run); err != nil {
			rr.logger.Warn("failed to create run", zap.String("run", rr.run.ID), zap.Error(err))
			return
		}
		rr.created = true
		return
	}
	if err := rr.repo.Update(ctx, rr.run); err != nil {
		rr.logger.Warn("failed to update run", zap.String("run", rr.run.ID), zap.Error(err))
	}
}

func bestOfRound(round *models.RunRound, c *models.Candidate) bool {
	q := c.Quality()
	if q != round.BestQuality {
		return q < round.BestQuality
	}
	return round.BestCandidateID == "" || c.ID < round.BestCandidateID
}

func cachetValues(c *models.Candidate) map[string]float64 {
	cachets := c.Cachets()
	if len(cachets) == 0 {
		return nil
	}
	values := make(map[string]float64, len(cachets))
	for _, ch := range cachets {
		values[ch.Name] = ch.Value
	}
	return values
}
