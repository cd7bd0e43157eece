package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
)

// RunRepository implements ports.RunRepository
type RunRepository struct {
	BaseRepository
}

// NewRunRepository creates a new scheduler run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{
		BaseRepository: BaseRepository{pool: pool},
	}
}

const runColumns = `id, strategy, problem_id, status, rounds, generations, baseline_quality, best_quality,
			best_candidate_id, best_cachets, config, error, started_at, completed_at, created_at, updated_at`

// Create inserts a new scheduler run
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cachets, config, err := encodeRunMaps(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduler_runs (
			` + runColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		run.ID,
		run.Strategy,
		run.ProblemID,
		run.Status,
		run.Rounds,
		run.Generations,
		run.BaselineQuality,
		run.BestQuality,
		optionalID(run.BestCandidateID),
		cachets,
		config,
		optionalID(run.Error),
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt,
		run.UpdatedAt,
	)
	return err
}

// GetByID retrieves a scheduler run by ID
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + runColumns + `
		FROM scheduler_runs
		WHERE id = $1`

	return r.scanRun(r.conn(ctx).QueryRow(ctx, query, id))
}

// Update stores the progress of an existing run
func (r *RunRepository) Update(ctx context.Context, run *models.Run) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cachets, config, err := encodeRunMaps(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE scheduler_runs
		SET status = $1, rounds = $2, generations = $3, baseline_quality = $4, best_quality = $5,
			best_candidate_id = $6, best_cachets = $7, config = $8, error = $9, completed_at = $10, updated_at = $11
		WHERE id = $12`

	result, err := r.conn(ctx).Exec(ctx, query,
		run.Status,
		run.Rounds,
		run.Generations,
		run.BaselineQuality,
		run.BestQuality,
		optionalID(run.BestCandidateID),
		cachets,
		config,
		optionalID(run.Error),
		run.CompletedAt,
		run.UpdatedAt,
		run.ID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrNotFound, "scheduler run "+run.ID)
	}

	return nil
}

// List retrieves scheduler runs, newest first
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200 // Maximum cap
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + runColumns + `
		FROM scheduler_runs
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*models.Run, 0)
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// AddRound records a finished round of a run
func (r *RunRepository) AddRound(ctx context.Context, round *models.RunRound) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cachets, err := json.Marshal(round.BestCachets)
	if err != nil {
		return fmt.Errorf("failed to encode round cachets: %w", err)
	}

	query := `
		INSERT INTO scheduler_run_rounds (
			run_id, round, groups, tests, generations, best_quality, best_candidate_id, best_cachets, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (run_id, round) DO UPDATE SET
			groups = EXCLUDED.groups,
			tests = EXCLUDED.tests,
			generations = EXCLUDED.generations,
			best_quality = EXCLUDED.best_quality,
			best_candidate_id = EXCLUDED.best_candidate_id,
			best_cachets = EXCLUDED.best_cachets`

	_, err = r.conn(ctx).Exec(ctx, query,
		round.RunID,
		round.Round,
		round.Groups,
		round.Tests,
		round.Generations,
		round.BestQuality,
		optionalID(round.BestCandidateID),
		cachets,
		round.CreatedAt,
	)
	return err
}

// GetRounds retrieves the rounds of a run in round order
func (r *RunRepository) GetRounds(ctx context.Context, runID string) ([]*models.RunRound, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT run_id, round, groups, tests, generations, best_quality, best_candidate_id, best_cachets, created_at
		FROM scheduler_run_rounds
		WHERE run_id = $1
		ORDER BY round`

	rows, err := r.conn(ctx).Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]*models.RunRound, 0)
	for rows.Next() {
		var round models.RunRound
		var bestCandidateID sql.NullString
		var cachets []byte

		if err := rows.Scan(
			&round.RunID,
			&round.Round,
			&round.Groups,
			&round.Tests,
			&round.Generations,
			&round.BestQuality,
			&bestCandidateID,
			&cachets,
			&round.CreatedAt,
		); err != nil {
			return nil, err
		}

		round.BestCandidateID = textOf(bestCandidateID)
		if err := decodeJSONB(cachets, &round.BestCachets); err != nil {
			return nil, fmt.Errorf("failed to decode round cachets: %w", err)
		}
		rounds = append(rounds, &round)
	}

	return rounds, rows.Err()
}

func (r *RunRepository) scanRun(row pgx.Row) (*models.Run, error) {
	var run models.Run
	var bestCandidateID, errMsg sql.NullString
	var completedAt sql.NullTime
	var cachets, config []byte

	err := row.Scan(
		&run.ID,
		&run.Strategy,
		&run.ProblemID,
		&run.Status,
		&run.Rounds,
		&run.Generations,
		&run.BaselineQuality,
		&run.BestQuality,
		&bestCandidateID,
		&cachets,
		&config,
		&errMsg,
		&run.StartedAt,
		&completedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, lookupErr(err, "run")
	}

	run.BestCandidateID = textOf(bestCandidateID)
	run.Error = textOf(errMsg)
	run.CompletedAt = timeOf(completedAt)

	if err := decodeJSONB(cachets, &run.BestCachets); err != nil {
		return nil, fmt.Errorf("failed to decode best cachets: %w", err)
	}
	if err := decodeJSONB(config, &run.Config); err != nil {
		return nil, fmt.Errorf("failed to decode run config: %w", err)
	}
	if run.BestCachets == nil {
		run.BestCachets = make(map[string]float64)
	}
	if run.Config == nil {
		run.Config = make(map[string]any)
	}

	return &run, nil
}

func encodeRunMaps(run *models.Run) (cachets, config []byte, err error) {
	cachets, err = json.Marshal(run.BestCachets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode best cachets: %w", err)
	}
	config, err = json.Marshal(run.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode run config: %w", err)
	}
	return cachets, config, nil
}
