package cachet

import (
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/language"
	"github.com/longregen/amaru/internal/ports"
)

const (
	NameApproximatedPerformance   = "approximated-performance"
	NameSelfAdjustingApproximated = "self-adjusting-approximated-performance"
	NameSelfAdjustingPerformance  = "self-adjusting-performance"
)

// ApproximatedPerformance estimates the runtime of a candidate from the node
// execution counts traced during its tests and the per-class weights of the
// primary system, without measuring time.
type ApproximatedPerformance struct {
	name  string
	model ports.WeightModel
}

func NewApproximatedPerformance(info *language.Information) *ApproximatedPerformance {
	return &ApproximatedPerformance{
		name:  NameApproximatedPerformance,
		model: language.NewWeightModel(info, info.PrimarySystem),
	}
}

// NewSelfAdjustingApproximated estimates with the weights of the system the
// engine runs on instead of the primary system.
func NewSelfAdjustingApproximated(info *language.Information, currentSystem string) *ApproximatedPerformance {
	return &ApproximatedPerformance{
		name:  NameSelfAdjustingApproximated,
		model: language.NewWeightModel(info, currentSystem),
	}
}

func (a *ApproximatedPerformance) Name() string { return a.name }

func (a *ApproximatedPerformance) Evaluate(c *models.Candidate) float64 {
	results, ok := c.Results()
	if !ok {
		return models.WorstQuality
	}
	return a.model.Weight(c.AST, traces(results))
}

// SelfAdjustingPerformance is the measured performance rescaled to the
// primary system: when the engine runs on another system the value is
// multiplied by the ratio of the estimated cost on this system to the
// estimated cost on the primary one.
type SelfAdjustingPerformance struct {
	*Performance
	current       ports.WeightModel
	primary       ports.WeightModel
	currentSystem string
	primarySystem string
}

func NewSelfAdjustingPerformance(info *language.Information, currentSystem string, performance *Performance) *SelfAdjustingPerformance {
	if performance == nil {
		performance = NewPerformance()
	}
	return &SelfAdjustingPerformance{
		Performance:   performance,
		current:       language.NewWeightModel(info, currentSystem),
		primary:       language.NewWeightModel(info, info.PrimarySystem),
		currentSystem: currentSystem,
		primarySystem: info.PrimarySystem,
	}
}

func (s *SelfAdjustingPerformance) Name() string { return NameSelfAdjustingPerformance }

func (s *SelfAdjustingPerformance) Evaluate(c *models.Candidate) float64 {
	results, ok := c.Results()
	if !ok {
		return models.WorstQuality
	}
	quality := s.relative(results)
	if s.currentSystem == s.primarySystem || quality == models.WorstQuality {
		return quality
	}
	tr := traces(results)
	asserted := s.current.Weight(c.AST, tr)
	primary := s.primary.Weight(c.AST, tr)
	if primary == 0 {
		return quality
	}
	return clamp(quality * (asserted / primary))
}

func traces(results []*models.TestResult) []*models.Trace {
	var out []*models.Trace
	for _, r := range results {
		if r.Trace != nil {
			out = append(out, r.Trace)
		}
	}
	return out
}
