// Package export writes report tables and site geometry to interchange
// formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/paleobytes/gheval/internal/model"
)

// reportHeader lists the report columns in output order.
var reportHeader = []string{
	"Name", "Site Type", "Latitude", "Longitude",
	"Road Proximity", "Accessibility", "Vegetation Cover", "Development Signs",
	"Overall Risk", "Risk Level", "Notes", "Evaluated At",
	"Screenshots", "Photos",
}

const evaluatedAtFormat = "2006-01-02 15:04"

// reportCells renders a row as strings. Sites without an evaluation get
// "-" scores and an "N/A" level.
func reportCells(r model.ReportRow) []string {
	cells := []string{
		r.Name,
		r.SiteType,
		strconv.FormatFloat(r.Latitude, 'f', 6, 64),
		strconv.FormatFloat(r.Longitude, 'f', 6, 64),
	}

	if ev := r.Evaluation; ev != nil {
		cells = append(cells,
			strconv.Itoa(ev.RoadProximity),
			strconv.Itoa(ev.Accessibility),
			strconv.Itoa(ev.VegetationCover),
			strconv.Itoa(ev.DevelopmentSigns),
			strconv.Itoa(ev.OverallRisk),
			string(ev.RiskLevel),
			ev.Notes,
			ev.EvaluatedAt.Format(evaluatedAtFormat),
		)
	} else {
		cells = append(cells, "-", "-", "-", "-", "-", "N/A", "", "")
	}

	cells = append(cells,
		strconv.Itoa(r.ScreenshotCount),
		strconv.Itoa(r.PhotoCount),
	)
	return cells
}

// WriteCSV writes the report as CSV with a header row.
func WriteCSV(w io.Writer, rows []model.ReportRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(reportHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(reportCells(r)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteJSON writes the report as an indented JSON array.
func WriteJSON(w io.Writer, rows []model.ReportRow) error {
	if rows == nil {
		rows = []model.ReportRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "export: write json")
	}
	return nil
}

// WriteXLSX writes the report as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []model.ReportRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Report")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, h := range reportHeader {
		header.AddCell().Value = h
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().Value = r.Name
		row.AddCell().Value = r.SiteType
		row.AddCell().SetFloat(r.Latitude)
		row.AddCell().SetFloat(r.Longitude)

		if ev := r.Evaluation; ev != nil {
			row.AddCell().SetInt(ev.RoadProximity)
			row.AddCell().SetInt(ev.Accessibility)
			row.AddCell().SetInt(ev.VegetationCover)
			row.AddCell().SetInt(ev.DevelopmentSigns)
			row.AddCell().SetInt(ev.OverallRisk)
			row.AddCell().Value = string(ev.RiskLevel)
			row.AddCell().Value = ev.Notes
			row.AddCell().Value = ev.EvaluatedAt.Format(evaluatedAtFormat)
		} else {
			for range 5 {
				row.AddCell().Value = "-"
			}
			row.AddCell().Value = "N/A"
			row.AddCell().Value = ""
			row.AddCell().Value = ""
		}

		row.AddCell().SetInt(r.ScreenshotCount)
		row.AddCell().SetInt(r.PhotoCount)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}
