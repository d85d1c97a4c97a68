//go:build !integration

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paleobytes/gheval/internal/model"
	"github.com/paleobytes/gheval/internal/pdfimport"
)

func TestFormatSiteList(t *testing.T) {
	sites := []model.Site{
		{
			ID:       "abc12345-0000-0000-0000-000000000000",
			Name:     "Basalt Cliff",
			SiteType: "Volcanic",
			Latitude: 37.5665, Longitude: 126.978,
		},
		{
			ID:       "def12345-0000-0000-0000-000000000000",
			Name:     "Fossil Bed",
			SiteType: "Paleontological",
			Latitude: 35.1796, Longitude: 129.0756,
		},
	}

	var buf bytes.Buffer
	formatSiteList(&buf, sites)

	output := buf.String()
	assert.Contains(t, output, "NAME")
	assert.Contains(t, output, "TYPE")
	assert.Contains(t, output, "Basalt Cliff")
	assert.Contains(t, output, "Volcanic")
	assert.Contains(t, output, "37.566500")
	assert.Contains(t, output, "Fossil Bed")
	assert.Contains(t, output, "129.075600")
}

func TestFormatReport(t *testing.T) {
	rows := []model.ReportRow{
		{
			Site: model.Site{Name: "Basalt Cliff", SiteType: "Volcanic"},
			Evaluation: &model.Evaluation{
				OverallRisk: 14,
				RiskLevel:   model.RiskHigh,
			},
			ScreenshotCount: 2,
			PhotoCount:      1,
		},
		{
			Site: model.Site{Name: "Fossil Bed", SiteType: "Paleontological"},
		},
	}

	var buf bytes.Buffer
	formatReport(&buf, rows)

	output := buf.String()
	assert.Contains(t, output, "RISK")
	assert.Contains(t, output, "14")
	assert.Contains(t, output, "HIGH")
	// Unevaluated sites render placeholders.
	assert.Contains(t, output, "-")
	assert.Contains(t, output, "N/A")
}

func TestFormatCandidates(t *testing.T) {
	batch := &pdfimport.BatchResult{
		Files: []pdfimport.FileResult{
			{
				Path: "/data/survey_2024.pdf",
				Candidates: []pdfimport.Candidate{
					{
						Name:     "survey_2024 - Site 1",
						Latitude: 33.5283, Longitude: 126.7714,
						Page: 3,
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	formatCandidates(&buf, batch)

	output := buf.String()
	assert.Contains(t, output, "survey_2024.pdf")
	assert.Contains(t, output, "survey_2024 - Site 1")
	assert.Contains(t, output, "33.528300")
	assert.Contains(t, output, "3")
}
