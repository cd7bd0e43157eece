package models

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/profile"
)

func okResult(test *TestCase, out *Value) *TestResult {
	rp, _ := profile.New([]int64{10, 20, 30})
	return &TestResult{TestID: test.ID, Test: test, Output: out, OutputKind: out.Kind, Runtime: rp}
}

func TestCandidate_ConcurrentAddResult(t *testing.T) {
	p := NewProblem(Problem{})
	c := NewCandidate("c1", ast.New("block"), p)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.AddResult(okResult(&TestCase{ID: fmt.Sprintf("t%02d", i)}, IntValue(int64(i))))
		}(i)
	}
	wg.Wait()

	results, ok := c.Results()
	require.True(t, ok)
	assert.Len(t, results, 64)
	assert.Equal(t, "t00", results[0].TestID)
	assert.Equal(t, "t63", results[63].TestID)
}

func TestCandidate_HardFail(t *testing.T) {
	p := testProblem()
	c := NewCandidate("c1", ast.New("block"), p)
	c.AddResult(okResult(p.Tests[0], IntValue(2)))

	c.HardFail()

	results, ok := c.Results()
	assert.False(t, ok)
	assert.Nil(t, results)
	assert.True(t, c.HardFailed())

	c.AddResult(okResult(p.Tests[1], IntValue(4)))
	_, ok = c.Results()
	assert.False(t, ok, "a hard failed candidate stays without results")

	c.ResetResults()
	results, ok = c.Results()
	assert.True(t, ok)
	assert.Empty(t, results)
}

func TestCandidate_QualityBeforeEvaluation(t *testing.T) {
	c := NewCandidate("c1", ast.New("block"), testProblem())
	assert.False(t, c.Evaluated())
	assert.Equal(t, WorstQuality, c.Quality())

	c.SetQuality(1.5, []Cachet{{Name: "accuracy", Value: 1.5, Weight: 1}})
	assert.True(t, c.Evaluated())
	assert.Equal(t, 1.5, c.Quality())
	assert.Len(t, c.Cachets(), 1)
}

func TestCandidate_RecordAndAdopt(t *testing.T) {
	p := testProblem()
	tree := ast.New("mul", ast.Leaf("local", "x"), ast.Leaf("const", "2"))

	source := NewCandidate("c1", tree, p)
	for _, tc := range p.Tests {
		source.AddResult(okResult(tc, tc.Expected))
	}
	source.SetQuality(0.25, []Cachet{{Name: "performance", Value: 0.25, Weight: 1}})

	rec := source.Record()
	assert.Equal(t, ast.Hash(tree), rec.ASTHash)
	assert.Equal(t, p.SuiteHash(), rec.SuiteHash)
	assert.False(t, rec.HardFailed)
	require.Len(t, rec.Results, 3)

	// A fresh problem value with equal content gets its own test cases.
	q := testProblem()
	target := NewCandidate("c2", ast.New("mul", ast.Leaf("local", "x"), ast.Leaf("const", "2")), q)
	target.Adopt(rec)

	assert.Equal(t, 0.25, target.Quality())
	assert.Equal(t, source.Cachets(), target.Cachets())
	r, ok := target.Result("t2")
	require.True(t, ok)
	assert.Same(t, q.Tests[1], r.Test, "adopted results point at the adopting problem's tests")
}

func TestCandidate_AdoptHardFailure(t *testing.T) {
	p := testProblem()
	source := NewCandidate("c1", ast.New("broken"), p)
	source.HardFail()
	source.SetQuality(WorstQuality, nil)

	target := NewCandidate("c2", ast.New("broken"), p)
	target.Adopt(source.Record())

	assert.True(t, target.HardFailed())
	assert.Equal(t, WorstQuality, target.Quality())
}

func TestCandidate_Rebind(t *testing.T) {
	p := testProblem()
	c := NewCandidate("c1", ast.New("block"), p)
	c.SetQuality(1, nil)

	narrowed := p.Narrow([]string{"t1"})
	r := c.Rebind("c2", narrowed)
	assert.False(t, r.Evaluated())
	assert.Same(t, narrowed, r.Problem)
	assert.Equal(t, c.Hash(), r.Hash())
}

func TestPopulation_Sort(t *testing.T) {
	p := testProblem()
	mk := func(id string, q float64, evaluated bool) *Candidate {
		c := NewCandidate(id, ast.New(id), p)
		if evaluated {
			c.SetQuality(q, nil)
		}
		return c
	}
	pop := Population{mk("d", 0, false), mk("b", 2, true), mk("c", 1, true), mk("a", 2, true)}

	sorted := pop.Sorted()
	var ids []string
	for _, c := range sorted {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids)
	assert.Equal(t, "d", pop[0].ID, "Sorted leaves the receiver alone")

	assert.Equal(t, "c", pop.Best().ID)
	assert.Len(t, pop.Top(2), 2)
	assert.Len(t, pop.Top(10), 4)
	assert.Empty(t, pop.Top(0))
	assert.Nil(t, Population{}.Best())
}

func TestRun_Lifecycle(t *testing.T) {
	run := NewRun("run_1", "parallel-complexity", "p1")
	assert.Equal(t, RunStatusRunning, run.Status)

	run.Observe(RunRound{Round: 0, Generations: 5, BestQuality: 3, BestCandidateID: "a"})
	run.Observe(RunRound{Round: 1, Generations: 5, BestQuality: 4, BestCandidateID: "b"})
	run.Observe(RunRound{Round: 2, Generations: 5, BestQuality: 1, BestCandidateID: "c"})

	assert.Equal(t, 3, run.Rounds)
	assert.Equal(t, 15, run.Generations)
	assert.Equal(t, 1.0, run.BestQuality)
	assert.Equal(t, "c", run.BestCandidateID)

	run.MarkFailed(fmt.Errorf("boom"))
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "boom", run.Error)
	assert.NotNil(t, run.CompletedAt)
}
