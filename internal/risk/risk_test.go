package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paleobytes/gheval/internal/model"
)

func TestScore_SumsClampedCriteria(t *testing.T) {
	tests := []struct {
		name string
		c    model.Criteria
		want int
	}{
		{"all minimum", model.Criteria{RoadProximity: 1, Accessibility: 1, VegetationCover: 1, DevelopmentSigns: 1}, 4},
		{"all maximum", model.Criteria{RoadProximity: 5, Accessibility: 5, VegetationCover: 5, DevelopmentSigns: 5}, 20},
		{"mixed", model.Criteria{RoadProximity: 3, Accessibility: 2, VegetationCover: 4, DevelopmentSigns: 1}, 10},
		{"zero clamps up", model.Criteria{}, 4},
		{"over clamps down", model.Criteria{RoadProximity: 9, Accessibility: 9, VegetationCover: 9, DevelopmentSigns: 9}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.c))
		})
	}
}

func TestLevel_Buckets(t *testing.T) {
	tests := []struct {
		score int
		want  model.RiskLevel
	}{
		{4, model.RiskLow},
		{8, model.RiskLow},
		{9, model.RiskModerate},
		{12, model.RiskModerate},
		{13, model.RiskHigh},
		{16, model.RiskHigh},
		{17, model.RiskCritical},
		{20, model.RiskCritical},
		// Out of range falls through to CRITICAL.
		{0, model.RiskCritical},
		{25, model.RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.score), "score %d", tt.score)
	}
}

func TestRoadDistanceScore(t *testing.T) {
	tests := []struct {
		meters float64
		want   int
	}{
		{0, 5},
		{24.9, 5},
		{25, 4},
		{99, 4},
		{100, 3},
		{299, 3},
		{300, 2},
		{999, 2},
		{1000, 1},
		{15000, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoadDistanceScore(tt.meters), "%.1fm", tt.meters)
	}
}

func TestVegetationScore(t *testing.T) {
	tests := []struct {
		pct  int
		want int
	}{
		{100, 1}, {61, 1},
		{60, 2}, {41, 2},
		{40, 3}, {21, 3},
		{20, 4}, {6, 4},
		{5, 5}, {0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VegetationScore(tt.pct), "%d%%", tt.pct)
	}
}

func TestDevelopmentScore(t *testing.T) {
	tests := []struct {
		pct  int
		want int
	}{
		{0, 1}, {4, 1},
		{5, 2}, {14, 2},
		{15, 3}, {29, 3},
		{30, 4}, {49, 4},
		{50, 5}, {100, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DevelopmentScore(tt.pct), "%d%%", tt.pct)
	}
}

func TestEvaluate_FillsDerivedFields(t *testing.T) {
	ev := &model.Evaluation{
		Criteria: model.Criteria{RoadProximity: 5, Accessibility: 4, VegetationCover: 4, DevelopmentSigns: 5},
	}
	Evaluate(ev)
	assert.Equal(t, 18, ev.OverallRisk)
	assert.Equal(t, model.RiskCritical, ev.RiskLevel)
}

func TestApplyLandCover_DerivesRatings(t *testing.T) {
	ev := &model.Evaluation{
		Criteria: model.Criteria{RoadProximity: 2, Accessibility: 1, VegetationCover: 1, DevelopmentSigns: 1},
	}
	lc := model.LandCover{DenseVeg: 10, SparseVeg: 5, Bare: 20, Built: 55, Water: 10}

	ApplyLandCover(ev, lc)

	assert.Equal(t, 4, ev.VegetationCover, "15%% vegetation")
	assert.Equal(t, 5, ev.DevelopmentSigns, "55%% built")
	assert.Equal(t, 12, ev.OverallRisk)
	assert.Equal(t, model.RiskModerate, ev.RiskLevel)
	assert.NotNil(t, ev.LandCover)
	assert.Equal(t, lc, *ev.LandCover)
}
