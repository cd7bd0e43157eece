package evaluation

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/longregen/amaru/internal/adapters/metrics"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// FitnessCache makes sure a tree is evaluated at most once per test suite.
// Without a store every lookup misses and nothing is shared.
type FitnessCache struct {
	store  ports.AnalyticsStore
	group  singleflight.Group
	logger *zap.Logger
}

func NewFitnessCache(store ports.AnalyticsStore, logger *zap.Logger) *FitnessCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FitnessCache{store: store, logger: logger}
}

// Enabled reports whether evaluations are shared through a store.
func (fc *FitnessCache) Enabled() bool {
	return fc != nil && fc.store != nil
}

// Lookup returns the stored evaluation of c's tree against c's problem.
// Store failures are logged and reported as a miss.
func (fc *FitnessCache) Lookup(ctx context.Context, c *models.Candidate) (*models.EvaluationRecord, bool) {
	if !fc.Enabled() || c.Problem == nil {
		return nil, false
	}
	rec, err := fc.store.FindByHash(ctx, c.Hash(), c.Problem.SuiteHash())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			metrics.CacheStoreErrorsTotal.Inc()
			fc.logger.Warn("fitness store lookup failed, evaluating without cache",
				zap.String("candidate", c.ID), zap.Error(err))
		}
		return nil, false
	}
	return rec, rec != nil
}

// Record stores the evaluation of c. Failures are logged only.
func (fc *FitnessCache) Record(ctx context.Context, c *models.Candidate) {
	if !fc.Enabled() {
		return
	}
	fc.record(ctx, c.Record())
}

func (fc *FitnessCache) record(ctx context.Context, rec *models.EvaluationRecord) {
	if err := fc.store.LogEvaluation(ctx, rec); err != nil {
		metrics.CacheStoreErrorsTotal.Inc()
		fc.logger.Warn("failed to record evaluation",
			zap.String("candidate", rec.CandidateID), zap.Error(err))
	}
}

type flight struct {
	record *models.EvaluationRecord
	owner  *models.Candidate
}

// Resolve fills c either from the store or by calling evaluate, which must
// leave c fully scored. Concurrent calls for equal trees and suites share one
// evaluation; the others adopt its result. cached reports whether c adopted
// a result instead of being evaluated itself.
func (fc *FitnessCache) Resolve(ctx context.Context, c *models.Candidate, evaluate func(context.Context) error) (cached bool, err error) {
	if !fc.Enabled() || c.Problem == nil {
		return false, evaluate(ctx)
	}
	if rec, ok := fc.Lookup(ctx, c); ok {
		c.Adopt(rec)
		return true, nil
	}

	key := models.RecordKey(c.Hash(), c.Problem.SuiteHash())
	led := false
	v, err, _ := fc.group.Do(key, func() (any, error) {
		led = true
		if rec, ok := fc.Lookup(ctx, c); ok {
			return flight{record: rec}, nil
		}
		if err := evaluate(ctx); err != nil {
			return nil, err
		}
		rec := c.Record()
		fc.record(ctx, rec)
		return flight{record: rec, owner: c}, nil
	})
	if err != nil {
		if led {
			return false, err
		}
		// The leader's evaluation was aborted, possibly by its own context.
		if err := evaluate(ctx); err != nil {
			return false, err
		}
		fc.Record(ctx, c)
		return false, nil
	}

	f := v.(flight)
	if f.owner == c {
		return false, nil
	}
	c.Adopt(f.record)
	return true, nil
}
