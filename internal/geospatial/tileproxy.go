// Package geospatial proxies raster basemap tiles from upstream tile
// servers and caches them in memory.
package geospatial

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/resilience"
)

// ErrUnknownLayer is returned when a tile request names a layer that is not
// registered with the proxy.
var ErrUnknownLayer = eris.New("geo: unknown tile layer")

// ProxyConfig configures the tile proxy upstreams.
type ProxyConfig struct {
	// Layers maps a layer name (e.g. "roadmap", "skyview") to an upstream
	// URL template with {z}, {x} and {y} placeholders.
	Layers map[string]string

	// WaybackURL is the URL template for historical imagery with an extra
	// {release} placeholder. Requests address it as "wayback/{release}".
	WaybackURL string

	// UserAgent is sent on every upstream request. OSM requires a
	// distinctive one.
	UserAgent string

	// Retry controls upstream retry behavior. Zero values use defaults.
	Retry resilience.RetryConfig
}

// TileProxy fetches basemap tiles from upstream servers, retrying transient
// failures and caching results.
type TileProxy struct {
	layers     map[string]string
	waybackURL string
	userAgent  string
	retry      resilience.RetryConfig
	client     *http.Client
	cache      *TileCache
}

// NewTileProxy creates a tile proxy for the configured layers.
func NewTileProxy(cfg ProxyConfig, cache *TileCache) *TileProxy {
	retry := cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("tiles", "fetch")
	}
	return &TileProxy{
		layers:     cfg.Layers,
		waybackURL: cfg.WaybackURL,
		userAgent:  cfg.UserAgent,
		retry:      retry,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}
}

// resolveURL expands the upstream URL template for a layer. Wayback layers
// are addressed as "wayback/{release}" and expand the release into the
// wayback template.
func (p *TileProxy) resolveURL(layer string, z, x, y int) (string, error) {
	var tpl string
	if release, ok := strings.CutPrefix(layer, "wayback/"); ok {
		if p.waybackURL == "" || release == "" || strings.ContainsAny(release, "/{}") {
			return "", eris.Wrapf(ErrUnknownLayer, "%q", layer)
		}
		tpl = strings.ReplaceAll(p.waybackURL, "{release}", release)
	} else {
		tpl, ok = p.layers[layer]
		if !ok {
			return "", eris.Wrapf(ErrUnknownLayer, "%q", layer)
		}
	}

	return strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(tpl), nil
}

// Fetch retrieves a tile for the named layer from cache or upstream.
func (p *TileProxy) Fetch(ctx context.Context, layer string, z, x, y int) ([]byte, error) {
	if p.cache != nil {
		if cached := p.cache.Get(layer, z, x, y); cached != nil {
			return cached, nil
		}
	}

	url, err := p.resolveURL(layer, z, x, y)
	if err != nil {
		return nil, err
	}

	data, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]byte, error) {
		return p.fetchUpstream(ctx, url)
	})
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Put(layer, z, x, y, data)
	}

	zap.L().Debug("geo: fetched tile",
		zap.String("layer", layer),
		zap.String("url", url),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

func (p *TileProxy) fetchUpstream(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geo: create tile request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geo: fetch tile")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geo: tile upstream returned %d for %s", resp.StatusCode, url)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geo: read tile body")
	}
	return data, nil
}

// ServeHTTP handles requests at /tiles/{layer}/{z}/{x}/{y}.png where layer
// may itself contain a slash (wayback/{release}).
func (p *TileProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tiles/")
	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	layer := strings.Join(parts[:len(parts)-3], "/")

	z, err := strconv.Atoi(parts[len(parts)-3])
	if err != nil {
		http.Error(w, "invalid z coordinate", http.StatusBadRequest)
		return
	}
	x, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		http.Error(w, "invalid x coordinate", http.StatusBadRequest)
		return
	}
	yStr := parts[len(parts)-1]
	if i := strings.LastIndexByte(yStr, '.'); i >= 0 {
		yStr = yStr[:i]
	}
	y, err := strconv.Atoi(yStr)
	if err != nil {
		http.Error(w, "invalid y coordinate", http.StatusBadRequest)
		return
	}

	data, err := p.Fetch(r.Context(), layer, z, x, y)
	if err != nil {
		if eris.Is(err, ErrUnknownLayer) {
			http.Error(w, "unknown layer", http.StatusNotFound)
			return
		}
		zap.L().Error("geo: tile fetch failed",
			zap.String("layer", layer),
			zap.Int("z", z), zap.Int("x", x), zap.Int("y", y),
			zap.Error(err),
		)
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

// StatsHandler returns cache statistics as plain text.
func (p *TileProxy) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	if p.cache == nil {
		_, _ = w.Write([]byte("cache disabled"))
		return
	}
	stats := p.cache.Stats()
	_, _ = fmt.Fprintf(w, "entries=%d max=%d hits=%d misses=%d rate=%.2f%%\n",
		stats.Entries, stats.MaxEntries, stats.Hits, stats.Misses, stats.HitRate*100)
}
