// Package memory keeps evaluations and runs in process memory, for offline
// runs and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
)

// FitnessStore is an in-memory content-addressed evaluation store.
type FitnessStore struct {
	mu      sync.RWMutex
	records map[string]*models.EvaluationRecord
}

func NewFitnessStore() *FitnessStore {
	return &FitnessStore{records: make(map[string]*models.EvaluationRecord)}
}

func (s *FitnessStore) FindByHash(ctx context.Context, astHash, suiteHash string) (*models.EvaluationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[models.RecordKey(astHash, suiteHash)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (s *FitnessStore) LogEvaluation(ctx context.Context, record *models.EvaluationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.Key()
	if _, exists := s.records[key]; !exists {
		s.records[key] = record
	}
	return nil
}

func (s *FitnessStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// RunRepository is an in-memory ports.RunRepository.
type RunRepository struct {
	mu     sync.RWMutex
	runs   map[string]*models.Run
	rounds map[string][]*models.RunRound
}

func NewRunRepository() *RunRepository {
	return &RunRepository{
		runs:   make(map[string]*models.Run),
		rounds: make(map[string][]*models.RunRound),
	}
}

func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *run
	r.runs[run.ID] = &c
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *run
	return &c, nil
}

func (r *RunRepository) Update(ctx context.Context, run *models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *run
	r.runs[run.ID] = &c
	return nil
}

func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := make([]*models.Run, 0, len(r.runs))
	for _, run := range r.runs {
		c := *run
		runs = append(runs, &c)
	}
	slices.SortFunc(runs, func(a, b *models.Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if offset >= len(runs) {
		return []*models.Run{}, nil
	}
	runs = runs[offset:]
	if limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *RunRepository) AddRound(ctx context.Context, round *models.RunRound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *round
	r.rounds[round.RunID] = append(r.rounds[round.RunID], &c)
	return nil
}

func (r *RunRepository) GetRounds(ctx context.Context, runID string) ([]*models.RunRound, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rounds := slices.Clone(r.rounds[runID])
	slices.SortStableFunc(rounds, func(a, b *models.RunRound) int { return cmp.Compare(a.Round, b.Round) })
	return rounds, nil
}
