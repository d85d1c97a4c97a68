package model

import "time"

// RiskLevel is the bucketed severity of an overall risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Criteria holds the four ordinal degradation-risk ratings, each 1-5.
type Criteria struct {
	RoadProximity    int `json:"road_proximity"`
	Accessibility    int `json:"accessibility"`
	VegetationCover  int `json:"vegetation_cover"`
	DevelopmentSigns int `json:"development_signs"`
}

// LandCover holds a land-cover classification result. Percentages sum to 100.
type LandCover struct {
	DenseVeg  int `json:"dense_veg"`
	SparseVeg int `json:"sparse_veg"`
	Bare      int `json:"bare"`
	Built     int `json:"built"`
	Water     int `json:"water"`
}

// TotalVegetation returns the combined dense and sparse vegetation percentage.
func (lc LandCover) TotalVegetation() int {
	return lc.DenseVeg + lc.SparseVeg
}

// Evaluation is a saved degradation-risk assessment of a site. Evaluations
// are append-only; readers take the latest by EvaluatedAt.
type Evaluation struct {
	ID           string `json:"id"`
	SiteID       string `json:"site_id"`
	ScreenshotID string `json:"screenshot_id,omitempty"`

	Criteria

	// Road measurement, when auto-measured via the routing service.
	RoadDistance *float64 `json:"road_distance,omitempty"`
	RoadSnapLat  *float64 `json:"road_snap_lat,omitempty"`
	RoadSnapLng  *float64 `json:"road_snap_lng,omitempty"`

	OverallRisk int       `json:"overall_risk"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Notes       string    `json:"notes,omitempty"`

	// Land-cover analysis, when run.
	LandCover         *LandCover `json:"land_cover,omitempty"`
	LandCoverRadiusM  *int       `json:"land_cover_radius_m,omitempty"`
	LandCoverAnalyzed *time.Time `json:"land_cover_analyzed_at,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}
