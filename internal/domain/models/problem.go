package models

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"maps"
	"slices"
	"strconv"
	"time"
)

// TestCase is one input/expected-output pair of a problem together with the
// complexity data gathered by tracing the original program on it.
type TestCase struct {
	ID           string    `json:"id" yaml:"id" msgpack:"id"`
	Inputs       []*Value  `json:"inputs" yaml:"inputs" msgpack:"in"`
	Expected     *Value    `json:"expected,omitempty" yaml:"expected,omitempty" msgpack:"out,omitempty"`
	ExpectedKind ValueKind `json:"expected_kind" yaml:"expected_kind" msgpack:"ok"`

	// Complexity data; zero until annotated.
	NodeCount       int      `json:"node_count" yaml:"node_count" msgpack:"nc"`
	Specializations int      `json:"specializations" yaml:"specializations" msgpack:"sp"`
	Nodes           []string `json:"nodes,omitempty" yaml:"nodes,omitempty" msgpack:"nd,omitempty"`
}

// Complexity is the ordering key used to stage tests from simple to complex.
func (t *TestCase) Complexity() int {
	return t.NodeCount + t.Specializations
}

// Overlap returns the share of executed nodes two tests have in common, from
// 0 (disjoint) to 1 (one node set contains the other). Tests without node
// data have no overlap.
func (t *TestCase) Overlap(o *TestCase) float64 {
	if o == nil || len(t.Nodes) == 0 || len(o.Nodes) == 0 {
		return 0
	}
	small, large := t.Nodes, o.Nodes
	if len(small) > len(large) {
		small, large = large, small
	}
	seen := make(map[string]struct{}, len(large))
	for _, n := range large {
		seen[n] = struct{}{}
	}
	common := 0
	counted := make(map[string]struct{}, len(small))
	for _, n := range small {
		if _, dup := counted[n]; dup {
			continue
		}
		counted[n] = struct{}{}
		if _, ok := seen[n]; ok {
			common++
		}
	}
	return float64(common) / float64(len(counted))
}

// ExpectedValueKind is the declared kind, falling back to the expected value's kind.
func (t *TestCase) ExpectedValueKind() ValueKind {
	if t.ExpectedKind != "" {
		return t.ExpectedKind
	}
	if t.Expected != nil {
		return t.Expected.Kind
	}
	return KindOther
}

// InputArgs returns the inputs as plain Go values.
func (t *TestCase) InputArgs() []any {
	args := make([]any, len(t.Inputs))
	for i, in := range t.Inputs {
		args[i] = in.Native()
	}
	return args
}

func (t *TestCase) writeHash(h hash.Hash) {
	writeField(h, t.ID)
	for _, in := range t.Inputs {
		writeValue(h, in)
	}
	writeField(h, "=>")
	writeValue(h, t.Expected)
	writeField(h, string(t.ExpectedValueKind()))
}

// ExecutionKey identifies what an executor has to load to run candidates of a problem.
type ExecutionKey struct {
	Language   string
	Code       string
	EntryPoint string
	Function   string
}

// Problem is an immutable optimization target: a program, the function being
// optimized and the tests judging candidates. Derived problems are built with
// Narrow or WithTests, never by mutating an existing one.
type Problem struct {
	Language    string            `json:"language" yaml:"language"`
	Code        string            `json:"code" yaml:"code"`
	EntryPoint  string            `json:"entry_point" yaml:"entry_point"`
	Function    string            `json:"function" yaml:"function"`
	SearchSpace string            `json:"search_space,omitempty" yaml:"search_space,omitempty"`
	Creation    map[string]string `json:"creation,omitempty" yaml:"creation,omitempty"`
	Repeats     int               `json:"repeats" yaml:"repeats"`
	Timeout     time.Duration     `json:"timeout" yaml:"timeout"`
	Tests       []*TestCase       `json:"tests" yaml:"tests"`

	id        string
	suiteHash string
}

// NewProblem seals p: test IDs are filled in and identities computed.
func NewProblem(p Problem) *Problem {
	tests := make([]*TestCase, len(p.Tests))
	for i, tc := range p.Tests {
		c := *tc
		if c.ID == "" {
			h := sha256.New()
			c.writeHash(h)
			c.ID = hex.EncodeToString(h.Sum(nil))[:16]
		}
		tests[i] = &c
	}
	p.Tests = tests
	p.Creation = maps.Clone(p.Creation)
	p.id = p.computeID()
	p.suiteHash = p.computeSuiteHash()
	return &p
}

// ID is a content hash over code, tests and search space.
func (p *Problem) ID() string {
	if p.id != "" {
		return p.id
	}
	return p.computeID()
}

// SuiteHash identifies the execution context and test suite; cached
// evaluations are only valid for an equal suite hash.
func (p *Problem) SuiteHash() string {
	if p.suiteHash != "" {
		return p.suiteHash
	}
	return p.computeSuiteHash()
}

func (p *Problem) ExecutionKey() ExecutionKey {
	return ExecutionKey{Language: p.Language, Code: p.Code, EntryPoint: p.EntryPoint, Function: p.Function}
}

// Test returns the test with the given ID.
func (p *Problem) Test(id string) (*TestCase, bool) {
	for _, t := range p.Tests {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// WithTests derives a problem evaluating only tests. The test cases are shared.
func (p *Problem) WithTests(tests []*TestCase) *Problem {
	d := &Problem{
		Language:    p.Language,
		Code:        p.Code,
		EntryPoint:  p.EntryPoint,
		Function:    p.Function,
		SearchSpace: p.SearchSpace,
		Creation:    p.Creation,
		Repeats:     p.Repeats,
		Timeout:     p.Timeout,
		Tests:       slices.Clone(tests),
	}
	d.id = d.computeID()
	d.suiteHash = d.computeSuiteHash()
	return d
}

// Narrow derives a problem with the tests whose IDs are listed, in problem order.
func (p *Problem) Narrow(ids []string) *Problem {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	var tests []*TestCase
	for _, t := range p.Tests {
		if _, ok := keep[t.ID]; ok {
			tests = append(tests, t)
		}
	}
	return p.WithTests(tests)
}

func (p *Problem) computeID() string {
	h := sha256.New()
	writeField(h, p.Language)
	writeField(h, p.Code)
	writeField(h, p.EntryPoint)
	writeField(h, p.Function)
	writeField(h, p.SearchSpace)
	keys := make([]string, 0, len(p.Creation))
	for k := range p.Creation {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		writeField(h, k)
		writeField(h, p.Creation[k])
	}
	p.writeSuite(h)
	return hex.EncodeToString(h.Sum(nil))
}

func (p *Problem) computeSuiteHash() string {
	h := sha256.New()
	writeField(h, p.Language)
	writeField(h, p.Code)
	writeField(h, p.EntryPoint)
	writeField(h, p.Function)
	// Repeats and timeout change what a measurement means.
	writeField(h, strconv.Itoa(p.Repeats))
	writeField(h, strconv.FormatInt(int64(p.Timeout), 10))
	p.writeSuite(h)
	return hex.EncodeToString(h.Sum(nil))
}

func (p *Problem) writeSuite(h hash.Hash) {
	tests := slices.Clone(p.Tests)
	slices.SortFunc(tests, func(a, b *TestCase) int { return cmp.Compare(a.ID, b.ID) })
	writeField(h, strconv.Itoa(len(tests)))
	for _, t := range tests {
		t.writeHash(h)
	}
}

func writeField(h hash.Hash, s string) {
	h.Write([]byte(strconv.Itoa(len(s))))
	h.Write([]byte{':'})
	h.Write([]byte(s))
}

func writeValue(h hash.Hash, v *Value) {
	if v == nil {
		writeField(h, "nil")
		return
	}
	writeField(h, string(v.Kind))
	writeField(h, v.String())
}
