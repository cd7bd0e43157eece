package models

import "time"

// EvaluationRecord is the persisted form of one evaluated candidate, keyed by
// the structural hash of its tree and the suite hash of its problem.
type EvaluationRecord struct {
	ASTHash     string        `json:"ast_hash" msgpack:"ah"`
	SuiteHash   string        `json:"suite_hash" msgpack:"sh"`
	ProblemID   string        `json:"problem_id" msgpack:"pid"`
	CandidateID string        `json:"candidate_id" msgpack:"cid"`
	Quality     float64       `json:"quality" msgpack:"q"`
	HardFailed  bool          `json:"hard_failed" msgpack:"hf"`
	Cachets     []Cachet      `json:"cachets" msgpack:"c"`
	Results     []*TestResult `json:"results,omitempty" msgpack:"r,omitempty"`
	CreatedAt   time.Time     `json:"created_at" msgpack:"at"`
}

// Key is the cache key of the record.
func (r *EvaluationRecord) Key() string {
	return RecordKey(r.ASTHash, r.SuiteHash)
}

func RecordKey(astHash, suiteHash string) string {
	return astHash + "/" + suiteHash
}
