package dto

import (
	"time"

	"github.com/longregen/amaru/internal/domain/models"
)

// RunResponse is a scheduler run. Qualities are omitted while no candidate
// has been scored.
type RunResponse struct {
	ID              string             `json:"id"`
	Strategy        string             `json:"strategy"`
	ProblemID       string             `json:"problem_id"`
	Status          string             `json:"status"`
	Rounds          int                `json:"rounds"`
	Generations     int                `json:"generations"`
	BaselineQuality *float64           `json:"baseline_quality,omitempty"`
	BestQuality     *float64           `json:"best_quality,omitempty"`
	BestCandidateID string             `json:"best_candidate_id,omitempty"`
	BestCachets     map[string]float64 `json:"best_cachets,omitempty"`
	Config          map[string]any     `json:"config,omitempty"`
	Error           string             `json:"error,omitempty"`
	StartedAt       time.Time          `json:"started_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type RunListResponse struct {
	Runs   []*RunResponse `json:"runs"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type RoundResponse struct {
	Round           int                `json:"round"`
	Groups          int                `json:"groups"`
	Tests           int                `json:"tests"`
	Generations     int                `json:"generations"`
	BestQuality     *float64           `json:"best_quality,omitempty"`
	BestCandidateID string             `json:"best_candidate_id,omitempty"`
	BestCachets     map[string]float64 `json:"best_cachets,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

type RoundListResponse struct {
	RunID  string           `json:"run_id"`
	Rounds []*RoundResponse `json:"rounds"`
}

func NewRunResponse(run *models.Run) *RunResponse {
	return &RunResponse{
		ID:              run.ID,
		Strategy:        run.Strategy,
		ProblemID:       run.ProblemID,
		Status:          run.Status,
		Rounds:          run.Rounds,
		Generations:     run.Generations,
		BaselineQuality: scored(run.BaselineQuality),
		BestQuality:     scored(run.BestQuality),
		BestCandidateID: run.BestCandidateID,
		BestCachets:     run.BestCachets,
		Config:          run.Config,
		Error:           run.Error,
		StartedAt:       run.StartedAt,
		CompletedAt:     run.CompletedAt,
		UpdatedAt:       run.UpdatedAt,
	}
}

func NewRunListResponse(runs []*models.Run, limit, offset int) *RunListResponse {
	resp := &RunListResponse{Runs: make([]*RunResponse, 0, len(runs)), Limit: limit, Offset: offset}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, NewRunResponse(run))
	}
	return resp
}

func NewRoundListResponse(runID string, rounds []*models.RunRound) *RoundListResponse {
	resp := &RoundListResponse{RunID: runID, Rounds: make([]*RoundResponse, 0, len(rounds))}
	for _, r := range rounds {
		resp.Rounds = append(resp.Rounds, &RoundResponse{
			Round:           r.Round,
			Groups:          r.Groups,
			Tests:           r.Tests,
			Generations:     r.Generations,
			BestQuality:     scored(r.BestQuality),
			BestCandidateID: r.BestCandidateID,
			BestCachets:     r.BestCachets,
			CreatedAt:       r.CreatedAt,
		})
	}
	return resp
}

// scored hides the zero baseline and the worst quality placeholder.
func scored(q float64) *float64 {
	if q == 0 || q >= models.WorstQuality {
		return nil
	}
	return &q
}
