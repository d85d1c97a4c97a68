package export

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/paleobytes/gheval/internal/model"
)

// WriteGeoJSON writes sites as a point FeatureCollection.
func WriteGeoJSON(w io.Writer, sites []model.Site) error {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(sites))}

	for _, s := range sites {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       s.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{s.Longitude, s.Latitude}),
			Properties: map[string]interface{}{
				"name":        s.Name,
				"description": s.Description,
				"site_type":   s.SiteType,
				"address":     s.Address,
				"created_at":  s.CreatedAt,
			},
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

// WriteShapefile writes sites as a point shapefile with DBF attributes.
// The path names the .shp file; go-shp writes the .shx and .dbf beside it.
// DBF field names are capped at 10 characters by the format.
func WriteShapefile(path string, sites []model.Site) error {
	writer, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrap(err, "export: create shapefile")
	}

	writeErr := writeShapeRecords(writer, sites)
	writer.Close()
	if writeErr != nil {
		return writeErr
	}

	// go-shp names the attribute sidecar "<base>dbf" without the dot; GIS
	// tools expect "<base>.dbf".
	base := strings.TrimSuffix(path, ".shp")
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrap(err, "export: rename dbf sidecar")
	}
	return nil
}

func writeShapeRecords(writer *shp.Writer, sites []model.Site) error {
	fields := []shp.Field{
		shp.StringField("NAME", 100),
		shp.StringField("SITETYPE", 32),
		shp.StringField("ADDRESS", 100),
		shp.FloatField("LAT", 12, 6),
		shp.FloatField("LNG", 12, 6),
		shp.StringField("CREATED", 24),
	}
	if err := writer.SetFields(fields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for _, s := range sites {
		n := writer.Write(&shp.Point{X: s.Longitude, Y: s.Latitude})
		row := int(n)

		attrs := []interface{}{
			s.Name,
			s.SiteType,
			s.Address,
			s.Latitude,
			s.Longitude,
			s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		for col, v := range attrs {
			if err := writer.WriteAttribute(row, col, v); err != nil {
				return eris.Wrapf(err, "export: write shapefile attribute %d", col)
			}
		}
	}

	return nil
}
