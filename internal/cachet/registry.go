package cachet

import (
	"fmt"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/language"
)

// Set is an aggregator built from cachet names. Performance is the
// baseline holder shared by the runtime-based cachets, nil when none of
// them is enabled.
type Set struct {
	*Aggregator
	Performance *Performance
}

// Build creates the named cachets. info is required by every cachet other
// than accuracy and performance; currentSystem picks the weights used by
// the self-adjusting cachets.
func Build(names []string, weights map[string]float64, info *language.Information, currentSystem string) (*Set, error) {
	if len(names) == 0 {
		return nil, domain.NewDomainError(domain.ErrInvalidConfig, "no cachets enabled")
	}

	set := &Set{}
	performance := func() *Performance {
		if set.Performance == nil {
			set.Performance = NewPerformance()
		}
		return set.Performance
	}

	seen := make(map[string]bool, len(names))
	evaluators := make([]Evaluator, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if _, needsInfo := languageCachets[name]; needsInfo && info == nil {
			return nil, domain.NewDomainError(domain.ErrInvalidConfig, fmt.Sprintf("cachet %s needs a language description", name))
		}

		var e Evaluator
		switch name {
		case NameAccuracy:
			e = NewAccuracy(nil)
		case NamePerformance:
			e = performance()
		case NameComplexity:
			e = NewComplexity(info)
		case NameApproximatedPerformance:
			e = NewApproximatedPerformance(info)
		case NameSelfAdjustingApproximated:
			e = NewSelfAdjustingApproximated(info, currentSystem)
		case NameSelfAdjustingPerformance:
			e = NewSelfAdjustingPerformance(info, currentSystem, performance())
		default:
			return nil, domain.NewDomainError(domain.ErrInvalidConfig, fmt.Sprintf("unknown cachet %q", name))
		}
		evaluators = append(evaluators, e)
	}

	set.Aggregator = NewAggregator(weights, evaluators...)
	return set, nil
}

// NeedsBaseline reports whether a runtime cachet still waits for the timings
// of the original program.
func (s *Set) NeedsBaseline() bool {
	return s.Performance != nil && !s.Performance.HasBaseline()
}

// SetBaseline hands the evaluated original program to the runtime cachets.
func (s *Set) SetBaseline(original *models.Candidate) bool {
	if s.Performance == nil {
		return false
	}
	return s.Performance.SetBaseline(original)
}

// NeedsTraces reports whether an enabled cachet reads node execution counts.
func (s *Set) NeedsTraces() bool {
	for _, name := range s.Names() {
		if _, ok := tracedCachets[name]; ok {
			return true
		}
	}
	return false
}

var tracedCachets = map[string]struct{}{
	NameApproximatedPerformance:   {},
	NameSelfAdjustingApproximated: {},
	NameSelfAdjustingPerformance:  {},
}

var languageCachets = map[string]struct{}{
	NameComplexity:                {},
	NameApproximatedPerformance:   {},
	NameSelfAdjustingApproximated: {},
	NameSelfAdjustingPerformance:  {},
}
