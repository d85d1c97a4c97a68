// Package mapserver hosts the local web application: the embedded map UI,
// its WebSocket bridge, the REST API, and the tile proxy.
package mapserver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/appdir"
	"github.com/paleobytes/gheval/internal/bridge"
	"github.com/paleobytes/gheval/internal/config"
	"github.com/paleobytes/gheval/internal/geospatial"
	"github.com/paleobytes/gheval/internal/store"
	"github.com/paleobytes/gheval/pkg/osrm"
	"github.com/paleobytes/gheval/pkg/wayback"
)

// Server wires the store, the map bridge, and the external clients behind
// one HTTP handler.
type Server struct {
	cfg     *config.Config
	dirs    appdir.Dirs
	store   store.Store
	hub     *bridge.Hub
	proxy   *geospatial.TileProxy
	road    osrm.Client
	imagery wayback.Client
	static  http.Handler

	// last zoom reported by the map, used as the screenshot default
	zoom atomic.Int64
}

// New assembles a Server. static serves the embedded UI at /.
func New(cfg *config.Config, dirs appdir.Dirs, st store.Store, road osrm.Client, imagery wayback.Client, static http.Handler) *Server {
	cache := geospatial.NewTileCache(
		cfg.Tiles.CacheEntries,
		time.Duration(cfg.Tiles.CacheTTLHours)*time.Hour,
	)
	s := &Server{
		cfg:   cfg,
		dirs:  dirs,
		store: st,
		proxy: geospatial.NewTileProxy(geospatial.ProxyConfig{
			Layers: map[string]string{
				"roadmap": cfg.Tiles.RoadmapURL,
				"skyview": cfg.Tiles.SkyviewURL,
			},
			WaybackURL: cfg.Wayback.TileURL,
			UserAgent:  cfg.Tiles.UserAgent,
		}, cache),
		road:    road,
		imagery: imagery,
		static:  static,
	}
	s.zoom.Store(int64(cfg.Map.HomeZoom))
	s.hub = bridge.NewHub(s.handleBridge)
	return s
}

// Hub exposes the bridge hub, mainly for broadcasting from tests and
// commands.
func (s *Server) Hub() *bridge.Hub {
	return s.hub
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/sites", func(r chi.Router) {
			r.Get("/", s.handleListSites)
			r.Post("/", s.handleCreateSite)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSite)
				r.Put("/", s.handleUpdateSite)
				r.Delete("/", s.handleDeleteSite)

				r.Get("/evaluations", s.handleListEvaluations)
				r.Post("/evaluations", s.handleCreateEvaluation)
				r.Get("/evaluations/latest", s.handleLatestEvaluation)
				r.Post("/road-distance", s.handleRoadDistance)
				r.Post("/landcover", s.handleLandCover)

				r.Get("/screenshots", s.handleListScreenshots)
				r.Post("/screenshots", s.handleAddScreenshot)
				r.Get("/photos", s.handleListPhotos)
				r.Post("/photos", s.handleAddPhoto)
			})
		})
		r.Delete("/screenshots/{id}", s.handleDeleteScreenshot)
		r.Delete("/photos/{id}", s.handleDeletePhoto)

		r.Post("/parse-coords", s.handleParseCoords)
		r.Get("/report", s.handleReport)

		r.Route("/wayback", func(r chi.Router) {
			r.Get("/releases", s.handleWaybackReleases)
			r.Post("/select", s.handleWaybackSelect)
		})

		r.Get("/tiles/stats", s.proxy.StatsHandler)
	})

	r.Handle("/tiles/*", s.proxy)
	r.Get("/ws", s.hub.ServeWS)

	if s.static != nil {
		r.Handle("/*", s.static)
	}

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("mapserver: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("mapserver: listening",
		zap.String("host", s.cfg.Server.Host),
		zap.Int("port", s.cfg.Server.Port),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "mapserver: listen")
	}
	return nil
}
