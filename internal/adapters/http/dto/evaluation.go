package dto

import (
	"time"

	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/profile"
)

// EvaluationResponse is a cached fitness evaluation.
type EvaluationResponse struct {
	ASTHash     string                `json:"ast_hash"`
	SuiteHash   string                `json:"suite_hash"`
	ProblemID   string                `json:"problem_id,omitempty"`
	CandidateID string                `json:"candidate_id,omitempty"`
	Quality     float64               `json:"quality"`
	HardFailed  bool                  `json:"hard_failed"`
	Cachets     []models.Cachet       `json:"cachets"`
	Results     []*TestResultResponse `json:"results,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

type TestResultResponse struct {
	TestID  string                  `json:"test_id"`
	Output  string                  `json:"output,omitempty"`
	Kind    models.ValueKind        `json:"kind"`
	Failure *models.Failure         `json:"failure,omitempty"`
	Runtime *profile.RuntimeProfile `json:"runtime,omitempty"`
}

func NewEvaluationResponse(rec *models.EvaluationRecord) *EvaluationResponse {
	resp := &EvaluationResponse{
		ASTHash:     rec.ASTHash,
		SuiteHash:   rec.SuiteHash,
		ProblemID:   rec.ProblemID,
		CandidateID: rec.CandidateID,
		Quality:     rec.Quality,
		HardFailed:  rec.HardFailed,
		Cachets:     rec.Cachets,
		CreatedAt:   rec.CreatedAt,
	}
	if resp.Cachets == nil {
		resp.Cachets = []models.Cachet{}
	}
	for _, r := range rec.Results {
		tr := &TestResultResponse{
			TestID:  r.TestID,
			Kind:    r.OutputKind,
			Failure: r.Failure,
		}
		if r.Output != nil {
			tr.Output = r.Output.String()
		}
		if r.Runtime != nil && !r.Runtime.IsFailed() {
			tr.Runtime = r.Runtime
		}
		resp.Results = append(resp.Results, tr)
	}
	return resp
}
