package mapserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/paleobytes/gheval/internal/bridge"
	"github.com/paleobytes/gheval/pkg/wayback"
)

func (s *Server) handleWaybackReleases(w http.ResponseWriter, r *http.Request) {
	if s.imagery == nil {
		respondError(w, http.StatusServiceUnavailable, "wayback imagery not configured")
		return
	}
	releases, err := s.imagery.Releases(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "wayback catalogue unavailable: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, releases)
}

// handleWaybackSelect picks a release, switches the map to it, and reports
// the choice. Mode "summer" uses release dates; mode "capture" probes the
// metadata layer at the given coordinate for local capture dates.
func (s *Server) handleWaybackSelect(w http.ResponseWriter, r *http.Request) {
	if s.imagery == nil {
		respondError(w, http.StatusServiceUnavailable, "wayback imagery not configured")
		return
	}

	var req struct {
		Mode string  `json:"mode"`
		Lat  float64 `json:"lat"`
		Lng  float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	releases, err := s.imagery.Releases(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "wayback catalogue unavailable: "+err.Error())
		return
	}

	var (
		selected wayback.Release
		date     time.Time
		ok       bool
	)
	switch req.Mode {
	case "", "summer":
		selected, ok = wayback.NewestSummer(releases)
		date = selected.Date
	case "capture":
		selected, date, err = wayback.SelectByCapture(r.Context(), s.imagery, releases, req.Lat, req.Lng)
		if err != nil {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		ok = true
	default:
		respondError(w, http.StatusBadRequest, "unknown mode")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no wayback releases available")
		return
	}

	dateStr := date.Format("2006-01-02")
	s.hub.Broadcast(bridge.SetWayback(selected.ID, dateStr))

	respondJSON(w, http.StatusOK, struct {
		Release string `json:"release"`
		Date    string `json:"date"`
	}{selected.ID, dateStr})
}
