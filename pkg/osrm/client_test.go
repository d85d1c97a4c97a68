package osrm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paleobytes/gheval/internal/resilience"
)

func noRetry() Option {
	return WithRetry(resilience.RetryConfig{MaxAttempts: 1})
}

func TestNearest(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{
			"code": "Ok",
			"waypoints": [{
				"distance": 153.4,
				"location": [126.9812, 37.5701],
				"name": "Sejong-daero"
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(1000), noRetry())
	rp, err := c.Nearest(context.Background(), 37.5665, 126.978)
	require.NoError(t, err)

	// Request path carries lng,lat; response location comes back the same way.
	assert.True(t, strings.HasPrefix(gotPath, "/nearest/v1/driving/126.978000,37.566500"), gotPath)
	assert.InDelta(t, 37.5701, rp.Lat, 0.0001)
	assert.InDelta(t, 126.9812, rp.Lng, 0.0001)
	assert.InDelta(t, 153.4, rp.DistanceM, 0.01)
	assert.Equal(t, "Sejong-daero", rp.Name)
}

func TestNearest_NotOk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code": "InvalidQuery", "message": "Query string malformed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(1000), noRetry())
	_, err := c.Nearest(context.Background(), 37.5665, 126.978)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidQuery")
}

func TestNearest_NoWaypoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code": "Ok", "waypoints": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(1000), noRetry())
	_, err := c.Nearest(context.Background(), 37.5665, 126.978)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no road found")
}

func TestNearest_RetriesTransientStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"code": "Ok", "waypoints": [{"distance": 1, "location": [1, 2]}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL,
		WithRateLimit(1000),
		WithRetry(resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			JitterFraction: 0,
		}),
	)
	rp, err := c.Nearest(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.InDelta(t, 2.0, rp.Lat, 0.0001)
}

func TestNearest_BadRequestIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRateLimit(1000), WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}))
	_, err := c.Nearest(context.Background(), 37.5665, 126.978)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNearest_RateLimiterHonorsContext(t *testing.T) {
	c := NewClient("http://example.invalid", WithRateLimit(0.001), noRetry())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// First call consumes the initial token, second blocks on the limiter.
	_, _ = c.Nearest(ctx, 1, 2)
	_, err := c.Nearest(ctx, 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
