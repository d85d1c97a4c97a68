package mapserver

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/model"
)

// maxUploadBytes caps screenshot and photo uploads.
const maxUploadBytes = 32 << 20

func (s *Server) handleListScreenshots(w http.ResponseWriter, r *http.Request) {
	shots, err := s.store.ListScreenshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	if shots == nil {
		shots = []model.Screenshot{}
	}
	respondJSON(w, http.StatusOK, shots)
}

// handleAddScreenshot saves a PNG capture posted by the map UI. Map type,
// zoom, scale, and note ride in the query string.
func (s *Server) handleAddScreenshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, err := s.store.GetSite(ctx, id); err != nil {
		storeError(w, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil || len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty capture")
		return
	}

	q := r.URL.Query()
	mapType := model.MapType(q.Get("map_type"))
	if mapType == "" {
		mapType = model.MapType(s.cfg.Map.DefaultType)
	}
	zoom := int(s.zoom.Load())
	if v := q.Get("zoom"); v != "" {
		if parsed, perr := strconv.Atoi(v); perr == nil {
			zoom = parsed
		}
	}

	now := time.Now().UTC()
	path := filepath.Join(s.dirs.Screenshots, fmt.Sprintf("%s_%s.png", id, now.Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		zap.L().Error("mapserver: write screenshot", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not save capture")
		return
	}

	sc, err := s.store.AddScreenshot(ctx, model.Screenshot{
		SiteID:     id,
		FilePath:   path,
		MapType:    mapType,
		ZoomLevel:  zoom,
		ScaleInfo:  q.Get("scale"),
		Note:       q.Get("note"),
		CapturedAt: now,
	})
	if err != nil {
		_ = os.Remove(path)
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleDeleteScreenshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	sc, err := s.store.GetScreenshot(ctx, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if err := s.store.DeleteScreenshot(ctx, id); err != nil {
		storeError(w, err)
		return
	}
	if err := os.Remove(sc.FilePath); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("mapserver: remove screenshot file", zap.String("path", sc.FilePath), zap.Error(err))
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := s.store.ListPhotos(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	if photos == nil {
		photos = []model.Photo{}
	}
	respondJSON(w, http.StatusOK, photos)
}

// handleAddPhoto accepts a multipart upload with a "file" part and optional
// photo_type, description, and taken_at fields.
func (s *Server) handleAddPhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, err := s.store.GetSite(ctx, id); err != nil {
		storeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close() //nolint:errcheck

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	now := time.Now().UTC()
	path := filepath.Join(s.dirs.Photos, fmt.Sprintf("%s_%s%s", id, now.Format("20060102_150405"), ext))

	out, err := os.Create(path)
	if err != nil {
		zap.L().Error("mapserver: create photo file", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not save photo")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		respondError(w, http.StatusInternalServerError, "could not save photo")
		return
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		respondError(w, http.StatusInternalServerError, "could not save photo")
		return
	}

	photo := model.Photo{
		SiteID:      id,
		FilePath:    path,
		PhotoType:   r.FormValue("photo_type"),
		Description: r.FormValue("description"),
	}
	if v := r.FormValue("taken_at"); v != "" {
		if taken, perr := time.Parse(time.RFC3339, v); perr == nil {
			takenUTC := taken.UTC()
			photo.TakenAt = &takenUTC
		}
	}

	saved, err := s.store.AddPhoto(ctx, photo)
	if err != nil {
		_ = os.Remove(path)
		storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	photo, err := s.store.GetPhoto(ctx, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if err := s.store.DeletePhoto(ctx, id); err != nil {
		storeError(w, err)
		return
	}
	if err := os.Remove(photo.FilePath); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("mapserver: remove photo file", zap.String("path", photo.FilePath), zap.Error(err))
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
