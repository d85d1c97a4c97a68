// Package osrm provides nearest-road lookups against an OSRM routing server.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/paleobytes/gheval/internal/resilience"
)

// Client finds the nearest road segment for a coordinate.
type Client interface {
	// Nearest snaps a coordinate to the closest road and returns the snap
	// point with its distance in meters.
	Nearest(ctx context.Context, lat, lng float64) (*RoadPoint, error)
}

// RoadPoint is a coordinate snapped onto the road network.
type RoadPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	DistanceM float64 `json:"distance_m"`
	Name      string  `json:"name,omitempty"` // road name, often empty
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit. The public OSRM demo
// server asks for at most one request per second.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the retry policy for upstream calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a Client against the given OSRM base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		retry:      resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("osrm", "nearest")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nearestResponse is the OSRM nearest service JSON response.
type nearestResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Waypoints []struct {
		Distance float64   `json:"distance"`
		Location []float64 `json:"location"` // lng, lat
		Name     string    `json:"name"`
	} `json:"waypoints"`
}

func (c *client) Nearest(ctx context.Context, lat, lng float64) (*RoadPoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "osrm: rate limit")
	}

	// OSRM addresses coordinates as lng,lat.
	reqURL := fmt.Sprintf("%s/nearest/v1/driving/%f,%f?number=1", c.baseURL, lng, lat)

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, err
	}

	var resp nearestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "osrm: parse response")
	}
	if resp.Code != "Ok" {
		return nil, eris.Errorf("osrm: service returned %s: %s", resp.Code, resp.Message)
	}
	if len(resp.Waypoints) == 0 || len(resp.Waypoints[0].Location) < 2 {
		return nil, eris.New("osrm: no road found near coordinate")
	}

	wp := resp.Waypoints[0]
	return &RoadPoint{
		Lat:       wp.Location[1],
		Lng:       wp.Location[0],
		DistanceM: wp.Distance,
		Name:      wp.Name,
	}, nil
}

func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("osrm: returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: read body")
	}
	return body, nil
}
