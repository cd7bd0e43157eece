package models

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/longregen/amaru/internal/ast"
)

// WorstQuality is the quality of candidates that could not be evaluated.
const WorstQuality = math.MaxFloat64

// Candidate is one program variant: an AST bound to the problem judging it,
// plus the results of its evaluation. Test results may be added from several
// goroutines while the candidate is evaluated.
type Candidate struct {
	ID      string
	AST     ast.Node
	Problem *Problem

	mu         sync.Mutex
	hash       string
	results    map[string]*TestResult
	hardFailed bool
	evaluated  bool
	quality    float64
	cachets    []Cachet
}

func NewCandidate(id string, tree ast.Node, problem *Problem) *Candidate {
	return &Candidate{
		ID:      id,
		AST:     tree,
		Problem: problem,
		results: make(map[string]*TestResult),
	}
}

// Rebind returns a fresh, unevaluated candidate with the same tree evaluated
// against problem.
func (c *Candidate) Rebind(id string, problem *Problem) *Candidate {
	return NewCandidate(id, c.AST, problem)
}

// Hash is the structural hash of the candidate's tree.
func (c *Candidate) Hash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hash == "" {
		c.hash = ast.Hash(c.AST)
	}
	return c.hash
}

// AddResult stores r, replacing an earlier result for the same test.
func (c *Candidate) AddResult(r *TestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hardFailed {
		return
	}
	if c.results == nil {
		c.results = make(map[string]*TestResult)
	}
	c.results[r.TestID] = r
}

// Results returns the test results ordered by test ID. ok is false when the
// candidate hard failed and has no results at all.
func (c *Candidate) Results() (results []*TestResult, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hardFailed {
		return nil, false
	}
	results = make([]*TestResult, 0, len(c.results))
	for _, r := range c.results {
		results = append(results, r)
	}
	slices.SortFunc(results, func(a, b *TestResult) int { return cmp.Compare(a.TestID, b.TestID) })
	return results, true
}

// Result returns the result for one test.
func (c *Candidate) Result(testID string) (*TestResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[testID]
	return r, ok
}

// HardFail drops all results; the candidate counts as not evaluable.
func (c *Candidate) HardFail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = nil
	c.hardFailed = true
}

func (c *Candidate) HardFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hardFailed
}

// ResetResults clears results and quality before a fresh evaluation.
func (c *Candidate) ResetResults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]*TestResult)
	c.hardFailed = false
	c.evaluated = false
	c.quality = 0
	c.cachets = nil
}

// SetQuality records the aggregated quality and the cachets it was built from.
func (c *Candidate) SetQuality(quality float64, cachets []Cachet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quality = quality
	c.cachets = slices.Clone(cachets)
	c.evaluated = true
}

// Quality is lower-is-better; unevaluated candidates rank last.
func (c *Candidate) Quality() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.evaluated {
		return WorstQuality
	}
	return c.quality
}

func (c *Candidate) Evaluated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluated
}

func (c *Candidate) Cachets() []Cachet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cachets)
}

// Record converts an evaluated candidate into its persisted form.
func (c *Candidate) Record() *EvaluationRecord {
	results, ok := c.Results()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hash == "" {
		c.hash = ast.Hash(c.AST)
	}
	rec := &EvaluationRecord{
		ASTHash:     c.hash,
		CandidateID: c.ID,
		Quality:     c.quality,
		HardFailed:  !ok,
		Cachets:     slices.Clone(c.cachets),
		Results:     results,
		CreatedAt:   time.Now().UTC(),
	}
	if c.Problem != nil {
		rec.SuiteHash = c.Problem.SuiteHash()
		rec.ProblemID = c.Problem.ID()
	}
	return rec
}

// Adopt takes over a stored evaluation instead of evaluating again. Results
// are linked to this candidate's problem by test ID.
func (c *Candidate) Adopt(rec *EvaluationRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quality = rec.Quality
	c.cachets = slices.Clone(rec.Cachets)
	c.evaluated = true
	if rec.HardFailed {
		c.results = nil
		c.hardFailed = true
		return
	}
	c.hardFailed = false
	c.results = make(map[string]*TestResult, len(rec.Results))
	for _, r := range rec.Results {
		adopted := *r
		if c.Problem != nil {
			if tc, ok := c.Problem.Test(r.TestID); ok {
				adopted.Test = tc
			}
		}
		c.results[adopted.TestID] = &adopted
	}
}
