// Package bridge carries map events between the browser and the server
// over a WebSocket, as typed JSON envelopes.
package bridge

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/model"
)

// Inbound message types (browser to server).
const (
	TypeMapReady        = "map_ready"
	TypeMapClicked      = "map_clicked"
	TypeMapRightClicked = "map_right_clicked"
	TypeZoomChanged     = "zoom_changed"
	TypeMarkerClicked   = "marker_clicked"
)

// Outbound message types (server to browser).
const (
	TypeGoto                 = "goto"
	TypeSetMapType           = "set_map_type"
	TypeAddMarker            = "add_marker"
	TypeRemoveMarker         = "remove_marker"
	TypeClearMarkers         = "clear_markers"
	TypeSetClickMarker       = "set_click_marker"
	TypeClearClickMarker     = "clear_click_marker"
	TypeDrawRoadLine         = "draw_road_line"
	TypeRemoveRoadLine       = "remove_road_line"
	TypeDrawAnalysisCircle   = "draw_analysis_circle"
	TypeRemoveAnalysisCircle = "remove_analysis_circle"
	TypeHighlightMarker      = "highlight_marker"
	TypeSetWayback           = "set_wayback"
	TypeSitesChanged         = "sites_changed"
)

// Envelope is the wire format for both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClickPayload accompanies map_clicked and map_right_clicked.
type ClickPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ZoomPayload accompanies zoom_changed.
type ZoomPayload struct {
	Zoom int `json:"zoom"`
}

// MarkerPayload accompanies marker_clicked.
type MarkerPayload struct {
	SiteID string `json:"site_id"`
}

// newEnvelope marshals the payload. The payload types here are plain
// structs of numbers and strings; a marshal failure is a programming error
// and yields an envelope without payload.
func newEnvelope(msgType string, payload any) Envelope {
	if payload == nil {
		return Envelope{Type: msgType}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("bridge: marshal payload", zap.String("type", msgType), zap.Error(err))
		return Envelope{Type: msgType}
	}
	return Envelope{Type: msgType, Payload: raw}
}

// Goto pans the map to a position. A zoom of 0 keeps the current zoom.
func Goto(lat, lng float64, zoom int) Envelope {
	return newEnvelope(TypeGoto, struct {
		Lat  float64 `json:"lat"`
		Lng  float64 `json:"lng"`
		Zoom int     `json:"zoom,omitempty"`
	}{lat, lng, zoom})
}

// SetMapType switches the basemap.
func SetMapType(mapType model.MapType) Envelope {
	return newEnvelope(TypeSetMapType, struct {
		MapType model.MapType `json:"map_type"`
	}{mapType})
}

// AddMarker places or updates a site marker.
func AddMarker(site model.Site) Envelope {
	return newEnvelope(TypeAddMarker, struct {
		SiteID string  `json:"site_id"`
		Lat    float64 `json:"lat"`
		Lng    float64 `json:"lng"`
		Name   string  `json:"name"`
	}{site.ID, site.Latitude, site.Longitude, site.Name})
}

// RemoveMarker deletes a site marker.
func RemoveMarker(siteID string) Envelope {
	return newEnvelope(TypeRemoveMarker, MarkerPayload{SiteID: siteID})
}

// ClearMarkers deletes all site markers.
func ClearMarkers() Envelope {
	return newEnvelope(TypeClearMarkers, nil)
}

// SetClickMarker shows the temporary marker for a picked position.
func SetClickMarker(lat, lng float64) Envelope {
	return newEnvelope(TypeSetClickMarker, ClickPayload{Lat: lat, Lng: lng})
}

// ClearClickMarker removes the temporary marker.
func ClearClickMarker() Envelope {
	return newEnvelope(TypeClearClickMarker, nil)
}

// DrawRoadLine draws the site-to-road segment with its measured distance.
func DrawRoadLine(siteLat, siteLng, roadLat, roadLng, distanceM float64) Envelope {
	return newEnvelope(TypeDrawRoadLine, struct {
		SiteLat   float64 `json:"site_lat"`
		SiteLng   float64 `json:"site_lng"`
		RoadLat   float64 `json:"road_lat"`
		RoadLng   float64 `json:"road_lng"`
		DistanceM float64 `json:"distance_m"`
	}{siteLat, siteLng, roadLat, roadLng, distanceM})
}

// RemoveRoadLine clears the road segment.
func RemoveRoadLine() Envelope {
	return newEnvelope(TypeRemoveRoadLine, nil)
}

// DrawAnalysisCircle outlines the land-cover analysis area.
func DrawAnalysisCircle(lat, lng float64, radiusM int) Envelope {
	return newEnvelope(TypeDrawAnalysisCircle, struct {
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
		RadiusM int     `json:"radius_m"`
	}{lat, lng, radiusM})
}

// RemoveAnalysisCircle clears the analysis outline.
func RemoveAnalysisCircle() Envelope {
	return newEnvelope(TypeRemoveAnalysisCircle, nil)
}

// HighlightMarker draws attention to a site marker.
func HighlightMarker(siteID string) Envelope {
	return newEnvelope(TypeHighlightMarker, MarkerPayload{SiteID: siteID})
}

// SetWayback switches the imagery layer to a historical release.
func SetWayback(release, date string) Envelope {
	return newEnvelope(TypeSetWayback, struct {
		Release string `json:"release"`
		Date    string `json:"date"`
	}{release, date})
}

// SitesChanged tells clients to refresh their site list.
func SitesChanged() Envelope {
	return newEnvelope(TypeSitesChanged, nil)
}
