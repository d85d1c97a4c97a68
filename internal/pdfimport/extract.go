// Package pdfimport scans PDF documents for coordinate pairs and turns them
// into site candidates for review.
package pdfimport

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/paleobytes/gheval/internal/coord"
	"github.com/paleobytes/gheval/internal/model"
	"github.com/paleobytes/gheval/internal/ocr"
)

// minPageChars is the text length below which a page is considered scanned
// imagery rather than extractable text.
const minPageChars = 20

// Candidate is a coordinate pair found in a PDF, ready for review.
type Candidate struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Page      int     `json:"page"` // 1-based
	Text      string  `json:"text"` // matched substring
	Context   string  `json:"context"`
	Source    string  `json:"source"` // PDF path
}

// SiteInput converts the candidate into a site with import provenance in
// the description.
func (c Candidate) SiteInput(siteType string) model.SiteInput {
	return model.SiteInput{
		Name:        c.Name,
		Description: fmt.Sprintf("Imported from %s (page %d): %s", filepath.Base(c.Source), c.Page, c.Context),
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		SiteType:    siteType,
	}
}

// FileResult holds the extraction outcome for a single PDF.
type FileResult struct {
	Path         string      `json:"path"`
	Candidates   []Candidate `json:"candidates"`
	ScannedPages []int       `json:"scanned_pages,omitempty"` // 1-based pages with almost no text
}

// Importer extracts coordinate candidates from PDF files.
type Importer struct {
	extractor    ocr.Extractor
	contextChars int
}

// New creates an Importer. contextChars controls the snippet width around
// each match.
func New(extractor ocr.Extractor, contextChars int) *Importer {
	if contextChars <= 0 {
		contextChars = 50
	}
	return &Importer{extractor: extractor, contextChars: contextChars}
}

// ExtractFile extracts all coordinate candidates from one PDF. Pairs that
// round to the same 4-decimal coordinate across pages are reported once,
// earliest page wins. Candidate names derive from the PDF basename.
func (im *Importer) ExtractFile(ctx context.Context, path string) (*FileResult, error) {
	text, err := im.extractor.ExtractText(ctx, path)
	if err != nil {
		return nil, eris.Wrapf(err, "pdfimport: extract %s", filepath.Base(path))
	}

	result := &FileResult{Path: path}
	seen := make(map[[2]float64]bool)

	for i, page := range ocr.SplitPages(text) {
		pageNo := i + 1
		if len(strings.TrimSpace(page)) < minPageChars {
			result.ScannedPages = append(result.ScannedPages, pageNo)
			continue
		}

		for _, m := range coord.ScanText(page) {
			key := [2]float64{round4(m.Lat), round4(m.Lng)}
			if seen[key] {
				continue
			}
			seen[key] = true

			result.Candidates = append(result.Candidates, Candidate{
				Latitude:  m.Lat,
				Longitude: m.Lng,
				Page:      pageNo,
				Text:      m.Text,
				Context:   m.Context(page, im.contextChars),
				Source:    path,
			})
		}
	}

	nameCandidates(result)

	if len(result.ScannedPages) > 0 {
		zap.L().Warn("pdfimport: pages with no extractable text, possibly scanned",
			zap.String("file", filepath.Base(path)),
			zap.Ints("pages", result.ScannedPages),
		)
	}

	return result, nil
}

// nameCandidates assigns names from the PDF basename. A single candidate
// gets the bare name; multiple candidates are numbered.
func nameCandidates(r *FileResult) {
	base := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
	if len(r.Candidates) == 1 {
		r.Candidates[0].Name = base
		return
	}
	for i := range r.Candidates {
		r.Candidates[i].Name = fmt.Sprintf("%s - Site %d", base, i+1)
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
