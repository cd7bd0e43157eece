package language

import (
	"strconv"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain/models"
)

const (
	// Assumed iteration count of a loop body when no trace is available.
	loopAssertion = 10
	// Surcharge for the condition folded into the branches of a branch node.
	conditionAssertion = 1.1
)

// WeightModel estimates the cost of a tree on one system from the per-class
// weights measured on that system.
type WeightModel struct {
	info    *Information
	weights map[string]float64
	average float64
}

// NewWeightModel builds the model for system. Classes not measured on
// system are assumed to cost the average of the measured ones.
func NewWeightModel(info *Information, system string) *WeightModel {
	m := &WeightModel{
		info:    info,
		weights: make(map[string]float64, len(info.Classes)),
	}
	sum, n := 0.0, 0
	for _, c := range info.Classes {
		if w, ok := c.Weights[system]; ok {
			m.weights[c.Name] = w
			if w > 0 {
				sum += w
				n++
			}
		}
	}
	m.average = 1.0
	if n > 0 {
		m.average = sum / float64(n)
	}
	for _, c := range info.Classes {
		if _, ok := m.weights[c.Name]; !ok {
			m.weights[c.Name] = m.average
		}
	}
	return m
}

func (m *WeightModel) classWeight(kind string) float64 {
	if w, ok := m.weights[kind]; ok {
		return w
	}
	return m.average
}

// Weight is the average over traces of the trace-weighted tree cost. Without
// traces it falls back to StaticWeight.
func (m *WeightModel) Weight(tree ast.Node, traces []*models.Trace) float64 {
	sum, n := 0.0, 0
	for _, t := range traces {
		if t == nil {
			continue
		}
		sum += m.TraceWeight(tree, t)
		n++
	}
	if n == 0 {
		return m.StaticWeight(tree)
	}
	return sum / float64(n)
}

// TraceWeight is Σ executions × class weight over the nodes of one trace.
func (m *WeightModel) TraceWeight(tree ast.Node, trace *models.Trace) float64 {
	return m.traceWeight(tree, trace.Executions, "0")
}

func (m *WeightModel) traceWeight(n ast.Node, executions map[string]int64, key string) float64 {
	if n == nil {
		return 0
	}
	if m.info.HasProperty(n.Kind(), PropertyAPI) {
		w := 0.0
		for i, c := range n.Children() {
			w += m.traceWeight(c, executions, key+"."+strconv.Itoa(i))
		}
		return w
	}
	count, ok := executions[key]
	if !ok {
		return 0
	}
	w := float64(count) * m.classWeight(n.Kind())
	for i, c := range n.Children() {
		w += m.traceWeight(c, executions, key+"."+strconv.Itoa(i))
	}
	return w
}

// StaticWeight estimates the cost of tree without a trace: loops are
// assumed to run their body a fixed number of times and branches to take
// each arm equally often.
func (m *WeightModel) StaticWeight(n ast.Node) float64 {
	if n == nil {
		return 0
	}
	children := n.Children()
	childWeights := 0.0
	for _, c := range children {
		childWeights += m.StaticWeight(c)
	}
	if m.info.HasProperty(n.Kind(), PropertyAPI) {
		return childWeights
	}
	if _, known := m.info.Class(n.Kind()); !known {
		return m.average
	}
	switch {
	case m.info.HasProperty(n.Kind(), PropertyLoop):
		childWeights *= loopAssertion
	case m.info.HasProperty(n.Kind(), PropertyBranch) && len(children) > 1:
		childWeights /= float64(len(children) - 1)
		childWeights *= conditionAssertion
	}
	return m.classWeight(n.Kind()) + childWeights
}
