// Package model defines the record types persisted by the store.
package model

import "time"

// MapType identifies the basemap rendered when a screenshot was captured.
type MapType string

const (
	MapTypeRoadmap MapType = "ROADMAP"
	MapTypeSkyview MapType = "SKYVIEW"
	MapTypeHybrid  MapType = "HYBRID"
)

// MapTypes lists the supported basemaps in display order.
var MapTypes = []MapType{MapTypeRoadmap, MapTypeSkyview, MapTypeHybrid}

// SiteTypes lists the conventional site classifications offered by the UI.
// Site.SiteType is free text; these are suggestions, not an enum.
var SiteTypes = []string{
	"Geological", "Geomorphological", "Paleontological",
	"Mineralogical", "Structural", "Volcanic", "Other",
}

// Site is a geoheritage location under observation.
type Site struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     string    `json:"address,omitempty"`
	SiteType    string    `json:"site_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SiteInput carries the user-editable fields of a site.
type SiteInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address,omitempty"`
	SiteType    string  `json:"site_type,omitempty"`
}
