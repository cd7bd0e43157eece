package models

import (
	"github.com/longregen/amaru/internal/profile"
)

// FailureKind tells why a test did not produce a usable result.
type FailureKind string

const (
	// FailureThrowable: the program raised an error value.
	FailureThrowable FailureKind = "throwable"
	// FailureMessage: the executor reported the failure as text only.
	FailureMessage FailureKind = "message"
	// FailureTimeout: the executor deadline was exceeded.
	FailureTimeout FailureKind = "timeout"
)

type Failure struct {
	Kind    FailureKind `json:"kind" msgpack:"k"`
	Message string      `json:"message" msgpack:"m"`
}

// Trace records how often each node of the executed tree ran. Keys are node
// positions as produced by ast.Walk.
type Trace struct {
	Executions      map[string]int64 `json:"executions" msgpack:"e"`
	Specializations int              `json:"specializations" msgpack:"s"`
}

// TestResult is the outcome of running one candidate against one test case.
type TestResult struct {
	TestID      string                  `json:"test_id" msgpack:"id"`
	Output      *Value                  `json:"output,omitempty" msgpack:"out,omitempty"`
	OutputKind  ValueKind               `json:"output_kind" msgpack:"ok"`
	Runtime     *profile.RuntimeProfile `json:"runtime" msgpack:"rt"`
	Unoptimized *profile.RuntimeProfile `json:"unoptimized,omitempty" msgpack:"un,omitempty"`
	Failure     *Failure                `json:"failure,omitempty" msgpack:"f,omitempty"`
	Trace       *Trace                  `json:"trace,omitempty" msgpack:"tr,omitempty"`

	Test *TestCase `json:"-" msgpack:"-"`
}

func (r *TestResult) Failed() bool {
	return r.Failure != nil
}

// FailedResult builds the result of a test that produced no usable output.
func FailedResult(test *TestCase, kind FailureKind, message string) *TestResult {
	return &TestResult{
		TestID:      test.ID,
		Test:        test,
		OutputKind:  test.ExpectedValueKind(),
		Runtime:     profile.Failed(),
		Unoptimized: profile.Failed(),
		Failure:     &Failure{Kind: kind, Message: message},
	}
}

// Cachet is the contribution of one quality dimension to a candidate's quality.
type Cachet struct {
	Name   string  `json:"name" msgpack:"n"`
	Value  float64 `json:"value" msgpack:"v"`
	Weight float64 `json:"weight" msgpack:"w"`
}
