package mapserver

import (
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/bridge"
	"github.com/paleobytes/gheval/internal/landcover"
	"github.com/paleobytes/gheval/internal/model"
	"github.com/paleobytes/gheval/internal/risk"
	"github.com/paleobytes/gheval/pkg/osrm"
)

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	evs, err := s.store.ListEvaluations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	if evs == nil {
		evs = []model.Evaluation{}
	}
	respondJSON(w, http.StatusOK, evs)
}

func (s *Server) handleLatestEvaluation(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.LatestEvaluation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	if ev == nil {
		respondError(w, http.StatusNotFound, "no evaluation yet")
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

// handleCreateEvaluation saves a manual assessment. The overall score and
// level are recomputed server-side regardless of what the client sent.
func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetSite(r.Context(), id); err != nil {
		storeError(w, err)
		return
	}

	var ev model.Evaluation
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev.ID = ""
	ev.SiteID = id
	risk.Evaluate(&ev)

	saved, err := s.store.CreateEvaluation(r.Context(), ev)
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

// handleRoadDistance measures the distance to the nearest road and saves a
// new evaluation derived from the latest one.
func (s *Server) handleRoadDistance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		storeError(w, err)
		return
	}

	road, err := s.road.Nearest(ctx, site.Latitude, site.Longitude)
	if err != nil {
		respondError(w, http.StatusBadGateway, "road lookup failed: "+err.Error())
		return
	}

	ev := s.baseEvaluation(r, id)
	ev.RoadDistance = &road.DistanceM
	ev.RoadSnapLat = &road.Lat
	ev.RoadSnapLng = &road.Lng
	ev.RoadProximity = risk.RoadDistanceScore(road.DistanceM)
	risk.Evaluate(&ev)

	saved, err := s.store.CreateEvaluation(ctx, ev)
	if err != nil {
		storeError(w, err)
		return
	}

	s.hub.Broadcast(bridge.DrawRoadLine(site.Latitude, site.Longitude, road.Lat, road.Lng, road.DistanceM))

	respondJSON(w, http.StatusOK, roadDistanceResponse{Road: road, Evaluation: saved})
}

type roadDistanceResponse struct {
	Road       *osrm.RoadPoint   `json:"road"`
	Evaluation *model.Evaluation `json:"evaluation"`
}

// handleLandCover classifies a map capture around the site and saves a new
// evaluation with auto-derived vegetation and development ratings. The
// request body is the captured image; radius and zoom come from the query.
func (s *Server) handleLandCover(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		storeError(w, err)
		return
	}

	radius := float64(s.cfg.LandCover.RadiusM)
	if v := r.URL.Query().Get("radius"); v != "" {
		if parsed, perr := strconv.ParseFloat(v, 64); perr == nil && parsed > 0 {
			radius = parsed
		}
	}
	zoom := int(s.zoom.Load())
	if v := r.URL.Query().Get("zoom"); v != "" {
		if parsed, perr := strconv.Atoi(v); perr == nil {
			zoom = parsed
		}
	}

	img, _, err := image.Decode(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image")
		return
	}

	lc, radiusPx := landcover.Analyze(img, site.Latitude, zoom, radius)
	zap.L().Debug("mapserver: land cover analyzed",
		zap.String("site_id", id),
		zap.Int("radius_px", radiusPx),
		zap.Int("veg_pct", lc.TotalVegetation()),
	)

	ev := s.baseEvaluation(r, id)
	risk.ApplyLandCover(&ev, lc)
	radiusM := int(radius)
	now := time.Now().UTC()
	ev.LandCoverRadiusM = &radiusM
	ev.LandCoverAnalyzed = &now

	saved, err := s.store.CreateEvaluation(ctx, ev)
	if err != nil {
		storeError(w, err)
		return
	}

	s.hub.Broadcast(bridge.DrawAnalysisCircle(site.Latitude, site.Longitude, radiusM))
	respondJSON(w, http.StatusOK, saved)
}

// baseEvaluation carries the latest saved ratings forward so a measurement
// updates one criterion without discarding the rest.
func (s *Server) baseEvaluation(r *http.Request, siteID string) model.Evaluation {
	ev := model.Evaluation{SiteID: siteID}
	if latest, err := s.store.LatestEvaluation(r.Context(), siteID); err == nil && latest != nil {
		ev.Criteria = latest.Criteria
		ev.Notes = latest.Notes
		ev.ScreenshotID = latest.ScreenshotID
		ev.RoadDistance = latest.RoadDistance
		ev.RoadSnapLat = latest.RoadSnapLat
		ev.RoadSnapLng = latest.RoadSnapLng
		ev.LandCover = latest.LandCover
		ev.LandCoverRadiusM = latest.LandCoverRadiusM
		ev.LandCoverAnalyzed = latest.LandCoverAnalyzed
	}
	return ev
}
