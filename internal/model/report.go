package model

// ReportRow is a site joined with its latest evaluation and media counts,
// the unit of the catalogue report and the file exports.
type ReportRow struct {
	Site
	Evaluation      *Evaluation `json:"evaluation,omitempty"`
	ScreenshotCount int         `json:"screenshot_count"`
	PhotoCount      int         `json:"photo_count"`
}
