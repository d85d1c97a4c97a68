package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paleobytes/gheval/internal/model"
)

func payloadMap(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &m))
	return m
}

func TestGoto(t *testing.T) {
	env := Goto(37.5665, 126.978, 14)
	assert.Equal(t, TypeGoto, env.Type)

	m := payloadMap(t, env)
	assert.InDelta(t, 37.5665, m["lat"], 0.0001)
	assert.InDelta(t, 126.978, m["lng"], 0.0001)
	assert.EqualValues(t, 14, m["zoom"])
}

func TestGoto_ZeroZoomOmitted(t *testing.T) {
	env := Goto(1, 2, 0)
	m := payloadMap(t, env)
	_, ok := m["zoom"]
	assert.False(t, ok, "zoom 0 keeps current zoom and is omitted")
}

func TestAddMarker(t *testing.T) {
	env := AddMarker(model.Site{
		ID: "site-1", Name: "Basalt Cliff", Latitude: 37.1, Longitude: 127.2,
	})
	assert.Equal(t, TypeAddMarker, env.Type)

	m := payloadMap(t, env)
	assert.Equal(t, "site-1", m["site_id"])
	assert.Equal(t, "Basalt Cliff", m["name"])
	assert.InDelta(t, 37.1, m["lat"], 0.0001)
	assert.InDelta(t, 127.2, m["lng"], 0.0001)
}

func TestDrawRoadLine(t *testing.T) {
	env := DrawRoadLine(37.1, 127.2, 37.11, 127.21, 153.4)
	m := payloadMap(t, env)
	assert.InDelta(t, 37.11, m["road_lat"], 0.0001)
	assert.InDelta(t, 153.4, m["distance_m"], 0.01)
}

func TestDrawAnalysisCircle(t *testing.T) {
	env := DrawAnalysisCircle(37.1, 127.2, 500)
	m := payloadMap(t, env)
	assert.EqualValues(t, 500, m["radius_m"])
}

func TestSetWayback(t *testing.T) {
	env := SetWayback("9465", "2023-06-14")
	m := payloadMap(t, env)
	assert.Equal(t, "9465", m["release"])
	assert.Equal(t, "2023-06-14", m["date"])
}

func TestSetMapType(t *testing.T) {
	env := SetMapType(model.MapTypeSkyview)
	m := payloadMap(t, env)
	assert.Equal(t, "SKYVIEW", m["map_type"])
}

func TestEnvelopesWithoutPayload(t *testing.T) {
	for _, env := range []Envelope{
		ClearMarkers(), ClearClickMarker(), RemoveRoadLine(),
		RemoveAnalysisCircle(), SitesChanged(),
	} {
		assert.Nil(t, env.Payload, env.Type)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := json.Marshal(SetClickMarker(35.1, 129.0))
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeSetClickMarker, env.Type)

	var p ClickPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.InDelta(t, 35.1, p.Lat, 0.0001)
}
