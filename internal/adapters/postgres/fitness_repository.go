package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/longregen/amaru/internal/domain/models"
)

// FitnessRepository implements ports.AnalyticsStore on the
// fitness_evaluations table. Cachets are stored as JSON; per-test results
// are stored msgpack encoded.
type FitnessRepository struct {
	BaseRepository
}

// NewFitnessRepository creates a new fitness repository
func NewFitnessRepository(pool *pgxpool.Pool) *FitnessRepository {
	return &FitnessRepository{
		BaseRepository: BaseRepository{pool: pool},
	}
}

// FindByHash returns the record stored for the tree and suite hash pair
func (r *FitnessRepository) FindByHash(ctx context.Context, astHash, suiteHash string) (*models.EvaluationRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ast_hash, suite_hash, problem_id, candidate_id, quality, hard_failed, cachets, results, created_at
		FROM fitness_evaluations
		WHERE ast_hash = $1 AND suite_hash = $2`

	return r.scanRecord(r.conn(ctx).QueryRow(ctx, query, astHash, suiteHash))
}

// LogEvaluation stores record unless one already exists for its key
func (r *FitnessRepository) LogEvaluation(ctx context.Context, record *models.EvaluationRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cachets, err := json.Marshal(record.Cachets)
	if err != nil {
		return fmt.Errorf("failed to encode cachets: %w", err)
	}

	var results []byte
	if len(record.Results) > 0 {
		results, err = msgpack.Marshal(record.Results)
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	}

	query := `
		INSERT INTO fitness_evaluations (
			ast_hash, suite_hash, problem_id, candidate_id, quality, hard_failed, cachets, results, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (ast_hash, suite_hash) DO NOTHING`

	_, err = r.conn(ctx).Exec(ctx, query,
		record.ASTHash,
		record.SuiteHash,
		optionalID(record.ProblemID),
		optionalID(record.CandidateID),
		record.Quality,
		record.HardFailed,
		cachets,
		results,
		record.CreatedAt,
	)
	return err
}

func (r *FitnessRepository) scanRecord(row pgx.Row) (*models.EvaluationRecord, error) {
	var rec models.EvaluationRecord
	var problemID, candidateID sql.NullString
	var cachets, results []byte

	err := row.Scan(
		&rec.ASTHash,
		&rec.SuiteHash,
		&problemID,
		&candidateID,
		&rec.Quality,
		&rec.HardFailed,
		&cachets,
		&results,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, lookupErr(err, "evaluation")
	}

	rec.ProblemID = textOf(problemID)
	rec.CandidateID = textOf(candidateID)

	if err := decodeJSONB(cachets, &rec.Cachets); err != nil {
		return nil, fmt.Errorf("failed to decode cachets: %w", err)
	}
	if len(results) > 0 {
		if err := msgpack.Unmarshal(results, &rec.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results: %w", err)
		}
	}

	return &rec, nil
}
