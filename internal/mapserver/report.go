package mapserver

import (
	"net/http"

	"github.com/paleobytes/gheval/internal/export"
	"github.com/paleobytes/gheval/internal/model"
)

// handleReport returns the site report. ?format=csv or ?format=xlsx stream
// a download instead of JSON.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Report(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	if rows == nil {
		rows = []model.ReportRow{}
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		respondJSON(w, http.StatusOK, rows)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
		if err := export.WriteCSV(w, rows); err != nil {
			storeError(w, err)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="report.xlsx"`)
		if err := export.WriteXLSX(w, rows); err != nil {
			storeError(w, err)
		}
	default:
		respondError(w, http.StatusBadRequest, "unknown format")
	}
}
