package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
)

const (
	runPrefix   = "run/"
	roundPrefix = "round/"
)

// RunRepository implements ports.RunRepository.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

// roundKey zero-pads the round so that keys sort in round order.
func roundKey(runID string, round int) []byte {
	return fmt.Appendf(nil, "%s%s/%08d", roundPrefix, runID, round)
}

func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	return r.put(ctx, run, false)
}

func (r *RunRepository) Update(ctx context.Context, run *models.Run) error {
	return r.put(ctx, run, true)
}

func (r *RunRepository) put(ctx context.Context, run *models.Run, mustExist bool) error {
	data, err := msgpack.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return r.db.update(ctx, func(txn *badger.Txn) error {
		if mustExist {
			if _, err := txn.Get(runKey(run.ID)); errors.Is(err, badger.ErrKeyNotFound) {
				return domain.NewDomainError(domain.ErrNotFound, "scheduler run "+run.ID)
			} else if err != nil {
				return err
			}
		}
		return txn.Set(runKey(run.ID), data)
	})
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	err := r.db.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &run)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs newest first. A non-positive limit returns all runs
// after offset.
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	runs := make([]*models.Run, 0)
	err := r.db.scan(ctx, []byte(runPrefix), func(val []byte) error {
		var run models.Run
		if err := msgpack.Unmarshal(val, &run); err != nil {
			return err
		}
		runs = append(runs, &run)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(runs, func(a, b *models.Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	offset = max(offset, 0)
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
	data, err := msgpack.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to encode round: %w", err)
	}
	return r.db.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(roundKey(round.RunID, round.Round), data)
	})
}

func (r *RunRepository) GetRounds(ctx context.Context, runID string) ([]*models.RunRound, error) {
	rounds := make([]*models.RunRound, 0)
	err := r.db.scan(ctx, []byte(roundPrefix+runID+"/"), func(val []byte) error {
		var round models.RunRound
		if err := msgpack.Unmarshal(val, &round); err != nil {
			return err
		}
		rounds = append(rounds, &round)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rounds, nil
}
