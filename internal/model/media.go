package model

import "time"

// Screenshot is a captured map view stored on disk and referenced by path.
type Screenshot struct {
	ID         string    `json:"id"`
	SiteID     string    `json:"site_id"`
	FilePath   string    `json:"file_path"`
	MapType    MapType   `json:"map_type"`
	ZoomLevel  int       `json:"zoom_level"`
	ScaleInfo  string    `json:"scale_info,omitempty"`
	Note       string    `json:"note,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Photo is a field photograph associated with a site.
type Photo struct {
	ID          string     `json:"id"`
	SiteID      string     `json:"site_id"`
	FilePath    string     `json:"file_path"`
	PhotoType   string     `json:"photo_type,omitempty"`
	Description string     `json:"description,omitempty"`
	TakenAt     *time.Time `json:"taken_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
