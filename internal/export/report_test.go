package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/paleobytes/gheval/internal/model"
)

func sampleRows() []model.ReportRow {
	evaluated := time.Date(2025, 6, 3, 14, 30, 0, 0, time.UTC)
	return []model.ReportRow{
		{
			Site: model.Site{
				ID: "s1", Name: "Basalt Cliff", SiteType: "Volcanic",
				Latitude: 37.5665, Longitude: 126.978,
			},
			Evaluation: &model.Evaluation{
				Criteria: model.Criteria{
					RoadProximity: 5, Accessibility: 4, VegetationCover: 3, DevelopmentSigns: 2,
				},
				OverallRisk: 14, RiskLevel: model.RiskHigh,
				Notes:       "quarry expanding nearby",
				EvaluatedAt: evaluated,
			},
			ScreenshotCount: 2,
			PhotoCount:      3,
		},
		{
			Site: model.Site{
				ID: "s2", Name: "Fossil Bed", SiteType: "Paleontological",
				Latitude: 35.1796, Longitude: 129.0756,
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, reportHeader, records[0])

	evaluated := records[1]
	assert.Equal(t, "Basalt Cliff", evaluated[0])
	assert.Equal(t, "37.566500", evaluated[2])
	assert.Equal(t, "5", evaluated[4])
	assert.Equal(t, "14", evaluated[8])
	assert.Equal(t, "HIGH", evaluated[9])
	assert.Equal(t, "2025-06-03 14:30", evaluated[11])
	assert.Equal(t, "2", evaluated[12])

	bare := records[2]
	assert.Equal(t, "Fossil Bed", bare[0])
	assert.Equal(t, "-", bare[4], "missing criteria placeholder")
	assert.Equal(t, "N/A", bare[9])
	assert.Equal(t, "0", bare[13])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRows()))

	var decoded []model.ReportRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "Basalt Cliff", decoded[0].Name)
	require.NotNil(t, decoded[0].Evaluation)
	assert.Equal(t, model.RiskHigh, decoded[0].Evaluation.RiskLevel)
	assert.Nil(t, decoded[1].Evaluation)
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]", string(bytes.TrimSpace(buf.Bytes())))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Report", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Name", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Basalt Cliff", sheet.Rows[1].Cells[0].String())

	risk, err := sheet.Rows[1].Cells[8].Int()
	require.NoError(t, err)
	assert.Equal(t, 14, risk)

	assert.Equal(t, "N/A", sheet.Rows[2].Cells[9].String())
}
