package mapserver

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/bridge"
	"github.com/paleobytes/gheval/internal/coord"
	"github.com/paleobytes/gheval/internal/model"
	"github.com/paleobytes/gheval/internal/store"
)

func validateSiteInput(in model.SiteInput) string {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return "name is required"
	case in.Latitude < -90 || in.Latitude > 90:
		return "latitude must be within [-90, 90]"
	case in.Longitude < -180 || in.Longitude > 180:
		return "longitude must be within [-180, 180]"
	}
	return ""
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SiteFilter{
		SiteType: q.Get("type"),
		Query:    q.Get("q"),
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	sites, err := s.store.ListSites(r.Context(), filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if sites == nil {
		sites = []model.Site{}
	}
	respondJSON(w, http.StatusOK, sites)
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var in model.SiteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateSiteInput(in); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	site, err := s.store.CreateSite(r.Context(), in)
	if err != nil {
		storeError(w, err)
		return
	}

	s.hub.Broadcast(bridge.AddMarker(*site))
	s.hub.Broadcast(bridge.SitesChanged())
	respondJSON(w, http.StatusCreated, site)
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, err := s.store.GetSite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, site)
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	var in model.SiteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateSiteInput(in); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	site, err := s.store.UpdateSite(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		storeError(w, err)
		return
	}

	s.hub.Broadcast(bridge.AddMarker(*site))
	s.hub.Broadcast(bridge.SitesChanged())
	respondJSON(w, http.StatusOK, site)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	// Collect media paths before the cascade removes the records.
	var paths []string
	if shots, err := s.store.ListScreenshots(ctx, id); err == nil {
		for _, sc := range shots {
			paths = append(paths, sc.FilePath)
		}
	}
	if photos, err := s.store.ListPhotos(ctx, id); err == nil {
		for _, p := range photos {
			paths = append(paths, p.FilePath)
		}
	}

	if err := s.store.DeleteSite(ctx, id); err != nil {
		storeError(w, err)
		return
	}

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("mapserver: remove media file", zap.String("path", p), zap.Error(err))
		}
	}

	s.hub.Broadcast(bridge.RemoveMarker(id))
	s.hub.Broadcast(bridge.SitesChanged())
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// handleParseCoords backs the paste box: it accepts free text and returns
// the first coordinate pair found in it.
func (s *Server) handleParseCoords(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	point := func(p coord.Point) any {
		return struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		}{p.Lat, p.Lng}
	}

	if p, ok := coord.Parse(req.Text); ok {
		respondJSON(w, http.StatusOK, point(p))
		return
	}
	if matches := coord.ScanText(req.Text); len(matches) > 0 {
		respondJSON(w, http.StatusOK, point(matches[0].Point))
		return
	}
	respondError(w, http.StatusUnprocessableEntity, "no coordinates found")
}
