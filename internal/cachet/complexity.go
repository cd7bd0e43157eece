package cachet

import (
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/language"
)

const NameComplexity = "complexity"

// Complexity is the cyclomatic complexity of the candidate's tree.
type Complexity struct {
	info *language.Information
}

func NewComplexity(info *language.Information) *Complexity {
	return &Complexity{info: info}
}

func (c *Complexity) Name() string { return NameComplexity }

func (c *Complexity) Evaluate(candidate *models.Candidate) float64 {
	return float64(c.info.CyclomaticComplexity(candidate.AST))
}
