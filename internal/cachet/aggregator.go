// Package cachet scores candidates along independent quality dimensions and
// folds the weighted dimensions into one quality, lower being better.
package cachet

import (
	"cmp"
	"math"
	"slices"

	"github.com/longregen/amaru/internal/domain/models"
)

// Evaluator computes one quality dimension of a candidate.
type Evaluator interface {
	Name() string
	Evaluate(c *models.Candidate) float64
}

// Aggregator sums weighted dimensions into a candidate's quality.
type Aggregator struct {
	evaluators []Evaluator
	weights    map[string]float64
}

// NewAggregator combines evaluators. Evaluators without a weight count once.
func NewAggregator(weights map[string]float64, evaluators ...Evaluator) *Aggregator {
	sorted := slices.Clone(evaluators)
	slices.SortFunc(sorted, func(a, b Evaluator) int { return cmp.Compare(a.Name(), b.Name()) })
	w := make(map[string]float64, len(sorted))
	for _, e := range sorted {
		weight, ok := weights[e.Name()]
		if !ok {
			weight = 1
		}
		w[e.Name()] = weight
	}
	return &Aggregator{evaluators: sorted, weights: w}
}

// Weight returns the weight of a dimension.
func (a *Aggregator) Weight(name string) float64 {
	return a.weights[name]
}

// Names lists the active dimensions in summation order.
func (a *Aggregator) Names() []string {
	names := make([]string, len(a.evaluators))
	for i, e := range a.evaluators {
		names[i] = e.Name()
	}
	return names
}

// Score computes the quality of c, stores it together with the cachets on
// c and returns it. A hard failed candidate gets the worst quality whatever
// the weights are.
func (a *Aggregator) Score(c *models.Candidate) float64 {
	cachets := make([]models.Cachet, 0, len(a.evaluators))

	if c.HardFailed() {
		for _, e := range a.evaluators {
			cachets = append(cachets, models.Cachet{Name: e.Name(), Value: models.WorstQuality, Weight: a.weights[e.Name()]})
		}
		c.SetQuality(models.WorstQuality, cachets)
		return models.WorstQuality
	}

	quality := 0.0
	for _, e := range a.evaluators {
		value := e.Evaluate(c)
		weight := a.weights[e.Name()]
		cachets = append(cachets, models.Cachet{Name: e.Name(), Value: value, Weight: weight})
		if weight != 0 {
			quality += weight * value
		}
	}
	quality = clamp(quality)
	c.SetQuality(quality, cachets)
	return quality
}

// clamp maps overflow and undefined sums to the worst quality.
func clamp(q float64) float64 {
	if math.IsNaN(q) || q > models.WorstQuality || math.IsInf(q, 0) {
		return models.WorstQuality
	}
	return q
}
