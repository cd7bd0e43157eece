package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
)

func TestFitnessRepository_LogEvaluation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &FitnessRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	record := &models.EvaluationRecord{
		ASTHash:     "a1b2",
		SuiteHash:   "s1",
		ProblemID:   "p1",
		CandidateID: "cd_1",
		Quality:     2.5,
		Cachets:     []models.Cachet{{Name: "accuracy", Value: 2.5, Weight: 1}},
		Results:     []*models.TestResult{{TestID: "t0", Output: models.IntValue(3), OutputKind: models.KindInteger}},
		CreatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO fitness_evaluations").
		WithArgs(
			"a1b2", "s1",
			sql.NullString{String: "p1", Valid: true},
			sql.NullString{String: "cd_1", Valid: true},
			2.5, false, pgxmock.AnyArg(), pgxmock.AnyArg(), now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.LogEvaluation(ctx, record); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFitnessRepository_LogEvaluation_ExistingKeyIsKept(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &FitnessRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("ON CONFLICT \\(ast_hash, suite_hash\\) DO NOTHING").
		WithArgs(
			"a1b2", "s1", sql.NullString{}, sql.NullString{},
			models.WorstQuality, true, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ctx := setupMockContext(mock)
	err = repo.LogEvaluation(ctx, &models.EvaluationRecord{
		ASTHash:    "a1b2",
		SuiteHash:  "s1",
		Quality:    models.WorstQuality,
		HardFailed: true,
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFitnessRepository_FindByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &FitnessRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	cachetsJSON, _ := json.Marshal([]models.Cachet{{Name: "accuracy", Value: 0.75, Weight: 2}})
	resultsMsgpack, _ := msgpack.Marshal([]*models.TestResult{
		{TestID: "t0", Output: models.StringValue("kitten"), OutputKind: models.KindString},
	})

	rows := pgxmock.NewRows([]string{
		"ast_hash", "suite_hash", "problem_id", "candidate_id", "quality", "hard_failed", "cachets", "results", "created_at",
	}).
		AddRow("a1b2", "s1", sql.NullString{String: "p1", Valid: true}, sql.NullString{String: "cd_1", Valid: true},
			1.5, false, cachetsJSON, resultsMsgpack, now)

	mock.ExpectQuery("SELECT (.+) FROM fitness_evaluations").
		WithArgs("a1b2", "s1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	rec, err := repo.FindByHash(ctx, "a1b2", "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Key() != models.RecordKey("a1b2", "s1") {
		t.Errorf("expected key a1b2/s1, got %s", rec.Key())
	}
	if rec.ProblemID != "p1" || rec.CandidateID != "cd_1" {
		t.Errorf("unexpected ids: %s %s", rec.ProblemID, rec.CandidateID)
	}
	if rec.Quality != 1.5 {
		t.Errorf("expected quality 1.5, got %f", rec.Quality)
	}
	if len(rec.Cachets) != 1 || rec.Cachets[0].Name != "accuracy" || rec.Cachets[0].Weight != 2 {
		t.Errorf("unexpected cachets: %+v", rec.Cachets)
	}
	if len(rec.Results) != 1 || rec.Results[0].TestID != "t0" {
		t.Fatalf("unexpected results: %+v", rec.Results)
	}
	if rec.Results[0].Output == nil || rec.Results[0].Output.Text != "kitten" {
		t.Errorf("expected output kitten, got %+v", rec.Results[0].Output)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFitnessRepository_FindByHash_WithoutResults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &FitnessRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	rows := pgxmock.NewRows([]string{
		"ast_hash", "suite_hash", "problem_id", "candidate_id", "quality", "hard_failed", "cachets", "results", "created_at",
	}).
		AddRow("a1b2", "s1", sql.NullString{}, sql.NullString{}, models.WorstQuality, true, []byte("[]"), []byte(nil), time.Now())

	mock.ExpectQuery("SELECT (.+) FROM fitness_evaluations").
		WithArgs("a1b2", "s1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	rec, err := repo.FindByHash(ctx, "a1b2", "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.HardFailed || rec.Quality != models.WorstQuality {
		t.Errorf("expected a hard failed record, got %+v", rec)
	}
	if rec.Results != nil {
		t.Errorf("expected no results, got %+v", rec.Results)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFitnessRepository_FindByHash_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &FitnessRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectQuery("SELECT (.+) FROM fitness_evaluations").
		WithArgs("missing", "s1").
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	_, err = repo.FindByHash(ctx, "missing", "s1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFitnessRepository_FindByHash_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &FitnessRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	dbErr := errors.New("connection reset")
	mock.ExpectQuery("SELECT (.+) FROM fitness_evaluations").
		WithArgs("a1b2", "s1").
		WillReturnError(dbErr)

	ctx := setupMockContext(mock)
	_, err = repo.FindByHash(ctx, "a1b2", "s1")
	if !errors.Is(err, dbErr) {
		t.Errorf("expected connection error, got %v", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Error("a query failure must not read as a miss")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFitnessRepository_Integration_FirstRecordWins(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	pool := setupTestDB(t)
	repo := NewFitnessRepository(pool)
	ctx := context.Background()

	first := &models.EvaluationRecord{ASTHash: "test_first", SuiteHash: "s1", Quality: 1, CreatedAt: time.Now()}
	second := &models.EvaluationRecord{ASTHash: "test_first", SuiteHash: "s1", Quality: 7, CreatedAt: time.Now()}

	if err := repo.LogEvaluation(ctx, first); err != nil {
		t.Fatalf("LogEvaluation failed: %v", err)
	}
	if err := repo.LogEvaluation(ctx, second); err != nil {
		t.Fatalf("second LogEvaluation failed: %v", err)
	}

	rec, err := repo.FindByHash(ctx, "test_first", "s1")
	if err != nil {
		t.Fatalf("FindByHash failed: %v", err)
	}
	if rec.Quality != 1 {
		t.Errorf("expected the first record to be kept, got quality %f", rec.Quality)
	}

	if _, err := repo.FindByHash(ctx, "test_first", "s2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another suite, got %v", err)
	}
}
