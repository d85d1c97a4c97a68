package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/paleobytes/gheval/internal/model"
)

// SiteFilter specifies criteria for listing sites.
type SiteFilter struct {
	SiteType string `json:"site_type,omitempty"`
	Query    string `json:"query,omitempty"` // substring match on name and address
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the site catalogue.
// Evaluations are append-only; LatestEvaluation and the report rows read the
// most recent one per site.
type Store interface {
	// Sites
	CreateSite(ctx context.Context, in model.SiteInput) (*model.Site, error)
	GetSite(ctx context.Context, id string) (*model.Site, error)
	UpdateSite(ctx context.Context, id string, in model.SiteInput) (*model.Site, error)
	DeleteSite(ctx context.Context, id string) error
	ListSites(ctx context.Context, filter SiteFilter) ([]model.Site, error)
	ImportSites(ctx context.Context, sites []model.Site) (int64, error)

	// Evaluations
	CreateEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error)
	LatestEvaluation(ctx context.Context, siteID string) (*model.Evaluation, error)
	ListEvaluations(ctx context.Context, siteID string) ([]model.Evaluation, error)

	// Screenshots
	AddScreenshot(ctx context.Context, sc model.Screenshot) (*model.Screenshot, error)
	GetScreenshot(ctx context.Context, id string) (*model.Screenshot, error)
	ListScreenshots(ctx context.Context, siteID string) ([]model.Screenshot, error)
	DeleteScreenshot(ctx context.Context, id string) error

	// Photos
	AddPhoto(ctx context.Context, p model.Photo) (*model.Photo, error)
	GetPhoto(ctx context.Context, id string) (*model.Photo, error)
	ListPhotos(ctx context.Context, siteID string) ([]model.Photo, error)
	DeletePhoto(ctx context.Context, id string) error

	// Report joins each site with its latest evaluation and media counts.
	Report(ctx context.Context) ([]model.ReportRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether the error denotes a missing record. Both
// backends phrase those as "<entity> not found".
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

// New opens a Store for the given driver. Supported drivers are "sqlite"
// (dsn is a file path) and "postgres" (dsn is a connection string).
func New(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
