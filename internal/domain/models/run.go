package models

import (
	"time"
)

// Run is the bookkeeping of one scheduler run.
type Run struct {
	ID              string             `json:"id"`
	Strategy        string             `json:"strategy"`
	ProblemID       string             `json:"problem_id"`
	Status          string             `json:"status"` // "running", "completed", "failed"
	Rounds          int                `json:"rounds"`
	Generations     int                `json:"generations"`
	BaselineQuality float64            `json:"baseline_quality,omitempty"`
	BestQuality     float64            `json:"best_quality"`
	BestCandidateID string             `json:"best_candidate_id,omitempty"`
	BestCachets     map[string]float64 `json:"best_cachets,omitempty"`
	Config          map[string]any     `json:"config,omitempty"`
	Error           string             `json:"error,omitempty"`
	StartedAt       time.Time          `json:"started_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

func NewRun(id, strategy, problemID string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:          id,
		Strategy:    strategy,
		ProblemID:   problemID,
		Status:      RunStatusRunning,
		BestQuality: WorstQuality,
		BestCachets: make(map[string]float64),
		Config:      make(map[string]any),
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Observe folds the best candidate of a finished round into the run.
func (r *Run) Observe(round RunRound) {
	r.Rounds = max(r.Rounds, round.Round+1)
	r.Generations += round.Generations
	if round.BestQuality <= r.BestQuality {
		r.BestQuality = round.BestQuality
		r.BestCandidateID = round.BestCandidateID
		if round.BestCachets != nil {
			r.BestCachets = round.BestCachets
		}
	}
	r.UpdatedAt = time.Now().UTC()
}

func (r *Run) MarkCompleted() {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
}

func (r *Run) MarkFailed(err error) {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// RunRound is one round of a run: a stage of the sequential strategy, a
// merge level of the parallel strategy or one repetition.
type RunRound struct {
	RunID           string             `json:"run_id"`
	Round           int                `json:"round"`
	Groups          int                `json:"groups"`
	Tests           int                `json:"tests"`
	Generations     int                `json:"generations"`
	BestQuality     float64            `json:"best_quality"`
	BestCandidateID string             `json:"best_candidate_id,omitempty"`
	BestCachets     map[string]float64 `json:"best_cachets,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}
