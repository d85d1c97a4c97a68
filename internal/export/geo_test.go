package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paleobytes/gheval/internal/model"
)

func sampleSites() []model.Site {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return []model.Site{
		{
			ID: "s1", Name: "Basalt Cliff", SiteType: "Volcanic",
			Latitude: 37.5665, Longitude: 126.978, Address: "Seoul",
			CreatedAt: created, UpdatedAt: created,
		},
		{
			ID: "s2", Name: "Fossil Bed", SiteType: "Paleontological",
			Latitude: 35.1796, Longitude: 129.0756,
			CreatedAt: created, UpdatedAt: created,
		},
	}
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sampleSites()))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, "s1", f.ID)
	assert.Equal(t, "Point", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 2)
	// GeoJSON axis order is lng, lat.
	assert.InDelta(t, 126.978, f.Geometry.Coordinates[0], 0.0001)
	assert.InDelta(t, 37.5665, f.Geometry.Coordinates[1], 0.0001)
	assert.Equal(t, "Basalt Cliff", f.Properties["name"])
	assert.Equal(t, "Volcanic", f.Properties["site_type"])
}

func TestWriteGeoJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, nil))

	var fc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc["type"])
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.shp")
	require.NoError(t, WriteShapefile(path, sampleSites()))

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	require.GreaterOrEqual(t, len(fields), 6)

	var count int
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		require.True(t, ok, "expected point geometry")

		if count == 0 {
			assert.InDelta(t, 126.978, point.X, 0.0001)
			assert.InDelta(t, 37.5665, point.Y, 0.0001)
			assert.Equal(t, "Basalt Cliff", reader.Attribute(0))
			assert.Equal(t, "Volcanic", reader.Attribute(1))
		}
		count++
	}
	assert.Equal(t, 2, count)
}
