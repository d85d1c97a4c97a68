package mapserver

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/bridge"
	"github.com/paleobytes/gheval/internal/model"
	"github.com/paleobytes/gheval/internal/store"
)

// handleBridge dispatches inbound map events. It runs on the client's read
// goroutine; store reads get their own short-lived context.
func (s *Server) handleBridge(client *bridge.Client, env bridge.Envelope) {
	switch env.Type {
	case bridge.TypeMapReady:
		s.pushInitialView(client)

	case bridge.TypeMapClicked:
		var p bridge.ClickPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		client.Send(bridge.SetClickMarker(p.Lat, p.Lng))

	case bridge.TypeMapRightClicked:
		client.Send(bridge.ClearClickMarker())

	case bridge.TypeZoomChanged:
		var p bridge.ZoomPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		s.zoom.Store(int64(p.Zoom))

	case bridge.TypeMarkerClicked:
		var p bridge.MarkerPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		s.hub.Broadcast(bridge.HighlightMarker(p.SiteID))

	default:
		zap.L().Debug("mapserver: unhandled bridge message", zap.String("type", env.Type))
	}
}

// pushInitialView sends the home view, the basemap, and every site marker
// to a freshly connected client.
func (s *Server) pushInitialView(client *bridge.Client) {
	client.Send(bridge.SetMapType(model.MapType(s.cfg.Map.DefaultType)))
	client.Send(bridge.Goto(s.cfg.Map.HomeLat, s.cfg.Map.HomeLng, s.cfg.Map.HomeZoom))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sites, err := s.store.ListSites(ctx, store.SiteFilter{})
	if err != nil {
		zap.L().Error("mapserver: list sites for initial view", zap.Error(err))
		return
	}
	for _, site := range sites {
		client.Send(bridge.AddMarker(site))
	}
}
