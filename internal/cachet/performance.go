package cachet

import (
	"math"
	"sync"

	"github.com/longregen/amaru/internal/domain/models"
)

const NamePerformance = "performance"

// Performance is the runtime of a candidate relative to the original
// program: the summed mean runtimes of its tests divided by the summed means
// of the same tests for the original. Values below 1 are faster.
type Performance struct {
	mu       sync.RWMutex
	baseline map[string]float64
}

func NewPerformance() *Performance {
	return &Performance{}
}

func (p *Performance) Name() string { return NamePerformance }

// SetBaseline records the per-test means of the evaluated original program.
// Tests the original failed are left out of the comparison. Only the first
// call has an effect; until then every candidate is compared with itself.
func (p *Performance) SetBaseline(original *models.Candidate) bool {
	results, ok := original.Results()
	if !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.baseline != nil {
		return false
	}
	p.baseline = make(map[string]float64, len(results))
	for _, r := range results {
		if !r.Failed() && !r.Runtime.IsFailed() {
			p.baseline[r.TestID] = r.Runtime.Mean
		}
	}
	return true
}

// HasBaseline reports whether SetBaseline took effect.
func (p *Performance) HasBaseline() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baseline != nil
}

func (p *Performance) Evaluate(c *models.Candidate) float64 {
	results, ok := c.Results()
	if !ok {
		return models.WorstQuality
	}
	return p.relative(results)
}

func (p *Performance) relative(results []*models.TestResult) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var runtime, baseline float64
	for _, r := range results {
		mean := math.MaxFloat64
		if r.Runtime != nil {
			mean = r.Runtime.Mean
		}
		if p.baseline == nil {
			runtime += mean
			baseline += mean
			continue
		}
		base, ok := p.baseline[r.TestID]
		if !ok {
			continue
		}
		runtime += mean
		baseline += base
	}
	switch {
	case math.IsInf(runtime, 0):
		return models.WorstQuality
	case baseline == 0 && runtime == 0:
		return 1
	case baseline == 0:
		return models.WorstQuality
	}
	return clamp(runtime / baseline)
}
