package cachet

import (
	"math"
	"unicode/utf8"

	"github.com/longregen/amaru/internal/domain/models"
)

const (
	NameAccuracy = "accuracy"

	failurePenalty  = 10
	mismatchPenalty = 2
)

// Distance measures how far a produced value is from the expected one.
// Both values are non-nil and of the same kind; 0 means equal.
type Distance func(produced, expected *models.Value) float64

// Accuracy penalises wrong results: a failed test costs 10, a missing,
// unexpected or wrongly typed output costs 2, any other wrong output costs
// its distance to the expected value.
type Accuracy struct {
	Distance Distance
}

func NewAccuracy(distance Distance) *Accuracy {
	if distance == nil {
		distance = DefaultDistance
	}
	return &Accuracy{Distance: distance}
}

func (a *Accuracy) Name() string { return NameAccuracy }

func (a *Accuracy) Evaluate(c *models.Candidate) float64 {
	results, ok := c.Results()
	if !ok {
		return models.WorstQuality
	}
	quality := 0.0
	for _, r := range results {
		quality += a.penalty(r)
	}
	return quality
}

func (a *Accuracy) penalty(r *models.TestResult) float64 {
	if r.Failed() {
		return failurePenalty
	}
	expected := expectedOf(r)
	if r.Output.Equal(expected) {
		return 0
	}
	if (r.Output == nil) != (expected == nil) {
		return mismatchPenalty
	}
	if r.Test != nil && r.OutputKind != r.Test.ExpectedValueKind() {
		return mismatchPenalty
	}
	if r.Output.Kind != expected.Kind {
		return mismatchPenalty
	}
	return a.Distance(r.Output, expected)
}

func expectedOf(r *models.TestResult) *models.Value {
	if r.Test == nil {
		return nil
	}
	return r.Test.Expected
}

// DefaultDistance compares numbers by d/(1+d) of their absolute difference,
// strings by normalised edit distance and anything else by equality. Every
// distance lies in [0, 1].
func DefaultDistance(produced, expected *models.Value) float64 {
	if a, ok := produced.Number(); ok {
		if b, ok := expected.Number(); ok {
			d := math.Abs(a - b)
			if math.IsNaN(d) {
				return 1
			}
			if math.IsInf(d, 0) {
				return 1
			}
			return d / (1 + d)
		}
	}
	if produced.Kind == models.KindString && expected.Kind == models.KindString {
		return normalizedLevenshtein(produced.Text, expected.Text)
	}
	if produced.Equal(expected) {
		return 0
	}
	return 1
}

func normalizedLevenshtein(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein([]rune(a), []rune(b))) / float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
