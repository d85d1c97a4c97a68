// Package risk computes degradation-risk scores for geoheritage sites.
//
// A score is the sum of four ordinal criteria, each rated 1 (benign) to
// 5 (severe): road proximity, accessibility, vegetation cover, and
// development signs. Scores bucket into four severity levels.
package risk

import "github.com/paleobytes/gheval/internal/model"

// Score bounds for each severity level, inclusive.
var levelRanges = []struct {
	level    model.RiskLevel
	min, max int
}{
	{model.RiskLow, 4, 8},
	{model.RiskModerate, 9, 12},
	{model.RiskHigh, 13, 16},
	{model.RiskCritical, 17, 20},
}

// MinScore and MaxScore bound the overall risk score.
const (
	MinScore = 4
	MaxScore = 20
)

// ClampRating clamps a criterion rating to the valid 1-5 range.
func ClampRating(r int) int {
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}

// Score sums the four criteria ratings, clamping each to 1-5.
func Score(c model.Criteria) int {
	return ClampRating(c.RoadProximity) +
		ClampRating(c.Accessibility) +
		ClampRating(c.VegetationCover) +
		ClampRating(c.DevelopmentSigns)
}

// Level buckets an overall score into a severity level. Out-of-range scores
// fall through to CRITICAL.
func Level(score int) model.RiskLevel {
	for _, r := range levelRanges {
		if score >= r.min && score <= r.max {
			return r.level
		}
	}
	return model.RiskCritical
}

// RoadDistanceScore maps a measured road distance in meters to the road
// proximity rating (1=far, 5=adjacent).
func RoadDistanceScore(meters float64) int {
	switch {
	case meters < 25:
		return 5
	case meters < 100:
		return 4
	case meters < 300:
		return 3
	case meters < 1000:
		return 2
	default:
		return 1
	}
}

// VegetationScore maps total vegetation percentage to the vegetation cover
// rating (1=dense, 5=none).
func VegetationScore(totalVegPct int) int {
	switch {
	case totalVegPct > 60:
		return 1
	case totalVegPct > 40:
		return 2
	case totalVegPct > 20:
		return 3
	case totalVegPct > 5:
		return 4
	default:
		return 5
	}
}

// DevelopmentScore maps built-up percentage to the development signs rating
// (1=none, 5=heavy).
func DevelopmentScore(builtPct int) int {
	switch {
	case builtPct < 5:
		return 1
	case builtPct < 15:
		return 2
	case builtPct < 30:
		return 3
	case builtPct < 50:
		return 4
	default:
		return 5
	}
}

// Evaluate fills in the derived fields of an evaluation: the overall score
// and its severity level.
func Evaluate(ev *model.Evaluation) {
	ev.RoadProximity = ClampRating(ev.RoadProximity)
	ev.Accessibility = ClampRating(ev.Accessibility)
	ev.VegetationCover = ClampRating(ev.VegetationCover)
	ev.DevelopmentSigns = ClampRating(ev.DevelopmentSigns)
	ev.OverallRisk = Score(ev.Criteria)
	ev.RiskLevel = Level(ev.OverallRisk)
}

// ApplyLandCover derives the vegetation and development ratings from a
// land-cover result and recomputes the overall score.
func ApplyLandCover(ev *model.Evaluation, lc model.LandCover) {
	ev.VegetationCover = VegetationScore(lc.TotalVegetation())
	ev.DevelopmentSigns = DevelopmentScore(lc.Built)
	lcCopy := lc
	ev.LandCover = &lcCopy
	Evaluate(ev)
}
