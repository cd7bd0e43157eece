package cachet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
)

func TestBuild(t *testing.T) {
	info := loadInfo(t)

	set, err := Build([]string{NamePerformance, NameAccuracy, NameSelfAdjustingPerformance, NameAccuracy},
		map[string]float64{NameAccuracy: 10}, info, "laptop")
	require.NoError(t, err)

	assert.Equal(t, []string{NameAccuracy, NamePerformance, NameSelfAdjustingPerformance}, set.Names())
	assert.Equal(t, 10.0, set.Weight(NameAccuracy))
	assert.Equal(t, 1.0, set.Weight(NamePerformance))
	require.NotNil(t, set.Performance, "runtime cachets share one baseline")
}

func TestBuild_WithoutRuntimeCachets(t *testing.T) {
	set, err := Build([]string{NameAccuracy}, nil, nil, "")
	require.NoError(t, err)
	assert.Nil(t, set.Performance)
	assert.Equal(t, []string{NameAccuracy}, set.Names())
	assert.False(t, set.NeedsBaseline())
	assert.False(t, set.SetBaseline(models.NewCandidate("o", ast.Origin(), problemWith())))
}

func TestSet_Baseline(t *testing.T) {
	set, err := Build([]string{NamePerformance}, nil, nil, "")
	require.NoError(t, err)
	require.True(t, set.NeedsBaseline())

	tc := &models.TestCase{ID: "a"}
	p := problemWith(tc)
	require.True(t, set.SetBaseline(candidate(p, ast.Origin(), result(tc, nil, 1000))))
	assert.False(t, set.NeedsBaseline())

	fast := candidate(p, ast.New("fast"), result(tc, nil, 10))
	assert.InDelta(t, 0.01, set.Score(fast), 1e-12)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"nothing enabled", nil},
		{"unknown cachet", []string{"elegance"}},
		{"language cachet without description", []string{NameComplexity}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.names, nil, nil, "")
			assert.True(t, errors.Is(err, domain.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestSet_NeedsTraces(t *testing.T) {
	info := loadInfo(t)

	tests := []struct {
		names []string
		want  bool
	}{
		{[]string{NameAccuracy, NamePerformance, NameComplexity}, false},
		{[]string{NameAccuracy, NameApproximatedPerformance}, true},
		{[]string{NameSelfAdjustingApproximated}, true},
		{[]string{NamePerformance, NameSelfAdjustingPerformance}, true},
	}
	for _, tt := range tests {
		set, err := Build(tt.names, nil, info, "laptop")
		require.NoError(t, err)
		assert.Equal(t, tt.want, set.NeedsTraces(), "%v", tt.names)
	}
}
