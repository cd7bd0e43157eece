package ports

import (
	"context"

	"github.com/longregen/amaru/internal/domain/models"
)

// AnalyticsStore is the content-addressed store behind the fitness cache.
//
// FindByHash returns domain.ErrNotFound when nothing is stored for the pair.
// LogEvaluation records only if absent: an existing record for the same key
// is left untouched.
type AnalyticsStore interface {
	FindByHash(ctx context.Context, astHash, suiteHash string) (*models.EvaluationRecord, error)
	LogEvaluation(ctx context.Context, record *models.EvaluationRecord) error
}

// RunRepository defines operations for scheduler run persistence
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id string) (*models.Run, error)
	Update(ctx context.Context, run *models.Run) error
	List(ctx context.Context, limit, offset int) ([]*models.Run, error)
	AddRound(ctx context.Context, round *models.RunRound) error
	GetRounds(ctx context.Context, runID string) ([]*models.RunRound, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	// WithTransaction executes a function within a database transaction
	// If the function returns an error, the transaction is rolled back
	// Otherwise, the transaction is committed
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator generates unique IDs for entities
type IDGenerator interface {
	// GenerateCandidateID generates a new candidate ID (cd_xxx)
	GenerateCandidateID() string

	// GenerateRunID generates a new run ID (sr_xxx)
	GenerateRunID() string
}
