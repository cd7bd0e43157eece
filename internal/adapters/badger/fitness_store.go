package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
)

const fitnessPrefix = "fitness/"

// FitnessStore implements ports.AnalyticsStore. Records are msgpack encoded
// under fitness/<ast hash>/<suite hash>.
type FitnessStore struct {
	db *DB
}

func NewFitnessStore(db *DB) *FitnessStore {
	return &FitnessStore{db: db}
}

func fitnessKey(astHash, suiteHash string) []byte {
	return []byte(fitnessPrefix + models.RecordKey(astHash, suiteHash))
}

func (s *FitnessStore) FindByHash(ctx context.Context, astHash, suiteHash string) (*models.EvaluationRecord, error) {
	var rec models.EvaluationRecord
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(fitnessKey(astHash, suiteHash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read evaluation: %w", err)
	}
	return &rec, nil
}

// LogEvaluation stores record unless its key is already present. Losing a
// write conflict means another writer stored the same key first.
func (s *FitnessStore) LogEvaluation(ctx context.Context, record *models.EvaluationRecord) error {
	data, err := msgpack.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation: %w", err)
	}
	key := fitnessKey(record.ASTHash, record.SuiteHash)

	err = s.db.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to store evaluation: %w", err)
	}
	return nil
}

// Len counts the stored evaluations.
func (s *FitnessStore) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.db.scan(ctx, []byte(fitnessPrefix), func([]byte) error {
		n++
		return nil
	})
	return n, err
}
