// Package wayback lists Esri World Imagery Wayback releases and queries
// their local capture dates.
package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/paleobytes/gheval/internal/resilience"
)

// Release is one entry of the Wayback catalogue.
type Release struct {
	ID          string    `json:"id"`    // release number, e.g. "9465"
	Title       string    `json:"title"` // "World Imagery (Wayback 2023-06-14)"
	Date        time.Time `json:"date"`  // release date parsed from the title
	MetadataURL string    `json:"-"`     // capture metadata layer, may be empty
}

// Client reads the Wayback catalogue.
type Client interface {
	// Releases returns the catalogue sorted newest first. The catalogue is
	// fetched once and cached for the client's lifetime.
	Releases(ctx context.Context) ([]Release, error)

	// CaptureDate queries the release's metadata layer for the local
	// imagery capture date at a coordinate.
	CaptureDate(ctx context.Context, rel Release, lat, lng float64) (time.Time, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRetry overrides the retry policy for catalogue and metadata calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	configURL  string
	httpClient *http.Client
	retry      resilience.RetryConfig

	mu       sync.Mutex
	releases []Release
}

// NewClient creates a Client reading the catalogue from configURL.
func NewClient(configURL string, opts ...Option) Client {
	c := &client{
		configURL:  configURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("wayback", "fetch")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// configEntry is one release in waybackconfig.json, keyed by release number.
type configEntry struct {
	ItemTitle        string `json:"itemTitle"`
	ItemURL          string `json:"itemURL"`
	MetadataLayerURL string `json:"metadataLayerUrl"`
}

var titleDate = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

func (c *client) Releases(ctx context.Context) ([]Release, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.releases != nil {
		return c.releases, nil
	}

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.configURL)
	})
	if err != nil {
		return nil, err
	}

	var entries map[string]configEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, eris.Wrap(err, "wayback: parse config")
	}

	releases := make([]Release, 0, len(entries))
	for id, e := range entries {
		rel := Release{ID: id, Title: e.ItemTitle, MetadataURL: e.MetadataLayerURL}
		if m := titleDate.FindString(e.ItemTitle); m != "" {
			if d, perr := time.Parse("2006-01-02", m); perr == nil {
				rel.Date = d
			}
		}
		if rel.Date.IsZero() {
			continue // undated releases are unusable for selection
		}
		releases = append(releases, rel)
	}
	if len(releases) == 0 {
		return nil, eris.New("wayback: catalogue has no dated releases")
	}

	sort.Slice(releases, func(i, j int) bool { return releases[i].Date.After(releases[j].Date) })

	c.releases = releases
	return releases, nil
}

// metadataResponse is the ArcGIS feature query response for a capture
// metadata layer. SRC_DATE2 is the capture date as epoch milliseconds.
type metadataResponse struct {
	Features []struct {
		Attributes struct {
			SrcDate int64 `json:"SRC_DATE2"`
		} `json:"attributes"`
	} `json:"features"`
}

func (c *client) CaptureDate(ctx context.Context, rel Release, lat, lng float64) (time.Time, error) {
	if rel.MetadataURL == "" {
		return time.Time{}, eris.Errorf("wayback: release %s has no metadata layer", rel.ID)
	}

	params := url.Values{
		"geometry":       {fmt.Sprintf("%f,%f", lng, lat)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"outFields":      {"SRC_DATE2"},
		"returnGeometry": {"false"},
		"f":              {"json"},
	}
	reqURL := rel.MetadataURL + "/query?" + params.Encode()

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return time.Time{}, err
	}

	var resp metadataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return time.Time{}, eris.Wrap(err, "wayback: parse metadata")
	}
	if len(resp.Features) == 0 || resp.Features[0].Attributes.SrcDate == 0 {
		return time.Time{}, eris.Errorf("wayback: no capture metadata at point for release %s", rel.ID)
	}

	return time.UnixMilli(resp.Features[0].Attributes.SrcDate).UTC(), nil
}

func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "wayback: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "wayback: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("wayback: returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "wayback: read body")
	}
	return body, nil
}
