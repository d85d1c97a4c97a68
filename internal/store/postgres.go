package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/paleobytes/gheval/internal/db"
	"github.com/paleobytes/gheval/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_site":          `SELECT id, name, description, latitude, longitude, address, site_type, created_at, updated_at FROM sites WHERE id = $1`,
	"insert_screenshot": `INSERT INTO screenshots (id, site_id, file_path, map_type, zoom_level, scale_info, note, captured_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"latest_evaluation": `SELECT ` + evalColumns + ` FROM risk_evaluations WHERE site_id = $1 ORDER BY evaluated_at DESC, id LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sites (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	site_type   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS screenshots (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	site_id     TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	file_path   TEXT NOT NULL,
	map_type    TEXT NOT NULL,
	zoom_level  INTEGER NOT NULL,
	scale_info  TEXT NOT NULL DEFAULT '',
	note        TEXT NOT NULL DEFAULT '',
	captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS risk_evaluations (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	site_id                TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	screenshot_id          TEXT REFERENCES screenshots(id) ON DELETE SET NULL,
	road_proximity         INTEGER NOT NULL,
	accessibility          INTEGER NOT NULL,
	vegetation_cover       INTEGER NOT NULL,
	development_signs      INTEGER NOT NULL,
	road_distance          DOUBLE PRECISION,
	road_snap_lat          DOUBLE PRECISION,
	road_snap_lng          DOUBLE PRECISION,
	overall_risk           INTEGER NOT NULL,
	risk_level             TEXT NOT NULL,
	notes                  TEXT NOT NULL DEFAULT '',
	land_cover             JSONB,
	land_cover_radius_m    INTEGER,
	land_cover_analyzed_at TIMESTAMPTZ,
	evaluated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS photos (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	site_id     TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	file_path   TEXT NOT NULL,
	photo_type  TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	taken_at    TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sites_site_type ON sites(site_type);
CREATE INDEX IF NOT EXISTS idx_sites_name ON sites(name);
CREATE INDEX IF NOT EXISTS idx_screenshots_site_id ON screenshots(site_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_site_id ON risk_evaluations(site_id, evaluated_at DESC);
CREATE INDEX IF NOT EXISTS idx_photos_site_id ON photos(site_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSite(ctx context.Context, in model.SiteInput) (*model.Site, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sites (id, name, description, latitude, longitude, address, site_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, in.Name, in.Description, in.Latitude, in.Longitude, in.Address, in.SiteType, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert site")
	}
	return &model.Site{
		ID: id, Name: in.Name, Description: in.Description,
		Latitude: in.Latitude, Longitude: in.Longitude,
		Address: in.Address, SiteType: in.SiteType,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetSite(ctx context.Context, id string) (*model.Site, error) {
	var st model.Site
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, latitude, longitude, address, site_type, created_at, updated_at
		 FROM sites WHERE id = $1`, id,
	).Scan(&st.ID, &st.Name, &st.Description, &st.Latitude, &st.Longitude,
		&st.Address, &st.SiteType, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.New("site not found")
		}
		return nil, eris.Wrapf(err, "postgres: get site %s", id)
	}
	return &st, nil
}

func (s *PostgresStore) UpdateSite(ctx context.Context, id string, in model.SiteInput) (*model.Site, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sites SET name = $1, description = $2, latitude = $3, longitude = $4, address = $5, site_type = $6, updated_at = $7
		 WHERE id = $8`,
		in.Name, in.Description, in.Latitude, in.Longitude, in.Address, in.SiteType, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update site %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Errorf("site not found: %s", id)
	}
	return s.GetSite(ctx, id)
}

func (s *PostgresStore) DeleteSite(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete site %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("site not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListSites(ctx context.Context, filter SiteFilter) ([]model.Site, error) {
	query := `SELECT id, name, description, latitude, longitude, address, site_type, created_at, updated_at
	          FROM sites WHERE true`
	args := []any{}
	argIdx := 1

	if filter.SiteType != "" {
		query += fmt.Sprintf(` AND site_type = $%d`, argIdx)
		args = append(args, filter.SiteType)
		argIdx++
	}
	if filter.Query != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR address ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+filter.Query+"%")
		argIdx++
	}
	query += ` ORDER BY lower(name)`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sites")
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var st model.Site
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.Latitude, &st.Longitude,
			&st.Address, &st.SiteType, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan site")
		}
		sites = append(sites, st)
	}
	return sites, eris.Wrap(rows.Err(), "postgres: list sites iterate")
}

// ImportSites bulk-upserts sites, keyed by id. Rows without an id get one.
func (s *PostgresStore) ImportSites(ctx context.Context, sites []model.Site) (int64, error) {
	if len(sites) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(sites))
	for _, site := range sites {
		if site.ID == "" {
			site.ID = uuid.New().String()
		}
		rows = append(rows, []any{
			site.ID, site.Name, site.Description, site.Latitude, site.Longitude,
			site.Address, site.SiteType, now, now,
		})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "sites",
		Columns:      []string{"id", "name", "description", "latitude", "longitude", "address", "site_type", "created_at", "updated_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"name", "description", "latitude", "longitude", "address", "site_type", "updated_at"},
	}, rows)
}

func (s *PostgresStore) CreateEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error) {
	ev.ID = uuid.New().String()
	if ev.EvaluatedAt.IsZero() {
		ev.EvaluatedAt = time.Now().UTC()
	}

	var landCoverJSON []byte
	if ev.LandCover != nil {
		b, err := json.Marshal(ev.LandCover)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal land cover")
		}
		landCoverJSON = b
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO risk_evaluations
		 (id, site_id, screenshot_id, road_proximity, accessibility, vegetation_cover, development_signs,
		  road_distance, road_snap_lat, road_snap_lng, overall_risk, risk_level, notes,
		  land_cover, land_cover_radius_m, land_cover_analyzed_at, evaluated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		ev.ID, ev.SiteID, emptyToNil(ev.ScreenshotID),
		ev.RoadProximity, ev.Accessibility, ev.VegetationCover, ev.DevelopmentSigns,
		ev.RoadDistance, ev.RoadSnapLat, ev.RoadSnapLng,
		ev.OverallRisk, string(ev.RiskLevel), ev.Notes,
		landCoverJSON, ev.LandCoverRadiusM, ev.LandCoverAnalyzed, ev.EvaluatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert evaluation for site %s", ev.SiteID)
	}
	return &ev, nil
}

func (s *PostgresStore) LatestEvaluation(ctx context.Context, siteID string) (*model.Evaluation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+evalColumns+` FROM risk_evaluations
		 WHERE site_id = $1 ORDER BY evaluated_at DESC, id LIMIT 1`, siteID)

	ev, err := scanPgEvaluation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest evaluation")
	}
	return ev, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, siteID string) ([]model.Evaluation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+evalColumns+` FROM risk_evaluations
		 WHERE site_id = $1 ORDER BY evaluated_at DESC, id`, siteID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	var evs []model.Evaluation
	for rows.Next() {
		ev, err := scanPgEvaluation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan evaluation")
		}
		evs = append(evs, *ev)
	}
	return evs, eris.Wrap(rows.Err(), "postgres: list evaluations iterate")
}

func (s *PostgresStore) AddScreenshot(ctx context.Context, sc model.Screenshot) (*model.Screenshot, error) {
	sc.ID = uuid.New().String()
	if sc.CapturedAt.IsZero() {
		sc.CapturedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO screenshots (id, site_id, file_path, map_type, zoom_level, scale_info, note, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sc.ID, sc.SiteID, sc.FilePath, string(sc.MapType), sc.ZoomLevel, sc.ScaleInfo, sc.Note, sc.CapturedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert screenshot for site %s", sc.SiteID)
	}
	return &sc, nil
}

func (s *PostgresStore) GetScreenshot(ctx context.Context, id string) (*model.Screenshot, error) {
	var sc model.Screenshot
	err := s.pool.QueryRow(ctx,
		`SELECT id, site_id, file_path, map_type, zoom_level, scale_info, note, captured_at
		 FROM screenshots WHERE id = $1`, id,
	).Scan(&sc.ID, &sc.SiteID, &sc.FilePath, &sc.MapType, &sc.ZoomLevel, &sc.ScaleInfo, &sc.Note, &sc.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("screenshot not found: %s", id)
		}
		return nil, eris.Wrap(err, "postgres: get screenshot")
	}
	return &sc, nil
}

func (s *PostgresStore) ListScreenshots(ctx context.Context, siteID string) ([]model.Screenshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, site_id, file_path, map_type, zoom_level, scale_info, note, captured_at
		 FROM screenshots WHERE site_id = $1 ORDER BY captured_at DESC`, siteID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list screenshots")
	}
	defer rows.Close()

	var shots []model.Screenshot
	for rows.Next() {
		var sc model.Screenshot
		if err := rows.Scan(&sc.ID, &sc.SiteID, &sc.FilePath, &sc.MapType, &sc.ZoomLevel, &sc.ScaleInfo, &sc.Note, &sc.CapturedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan screenshot")
		}
		shots = append(shots, sc)
	}
	return shots, eris.Wrap(rows.Err(), "postgres: list screenshots iterate")
}

func (s *PostgresStore) DeleteScreenshot(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM screenshots WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete screenshot %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("screenshot not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) AddPhoto(ctx context.Context, p model.Photo) (*model.Photo, error) {
	p.ID = uuid.New().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO photos (id, site_id, file_path, photo_type, description, taken_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.SiteID, p.FilePath, p.PhotoType, p.Description, p.TakenAt, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert photo for site %s", p.SiteID)
	}
	return &p, nil
}

func (s *PostgresStore) GetPhoto(ctx context.Context, id string) (*model.Photo, error) {
	var p model.Photo
	err := s.pool.QueryRow(ctx,
		`SELECT id, site_id, file_path, photo_type, description, taken_at, created_at
		 FROM photos WHERE id = $1`, id,
	).Scan(&p.ID, &p.SiteID, &p.FilePath, &p.PhotoType, &p.Description, &p.TakenAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("photo not found: %s", id)
		}
		return nil, eris.Wrap(err, "postgres: get photo")
	}
	return &p, nil
}

func (s *PostgresStore) ListPhotos(ctx context.Context, siteID string) ([]model.Photo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, site_id, file_path, photo_type, description, taken_at, created_at
		 FROM photos WHERE site_id = $1 ORDER BY created_at DESC`, siteID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list photos")
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.ID, &p.SiteID, &p.FilePath, &p.PhotoType, &p.Description, &p.TakenAt, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan photo")
		}
		photos = append(photos, p)
	}
	return photos, eris.Wrap(rows.Err(), "postgres: list photos iterate")
}

func (s *PostgresStore) DeletePhoto(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete photo %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("photo not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) Report(ctx context.Context) ([]model.ReportRow, error) {
	sites, err := s.ListSites(ctx, SiteFilter{Limit: 10000})
	if err != nil {
		return nil, err
	}

	rows := make([]model.ReportRow, 0, len(sites))
	for _, site := range sites {
		ev, err := s.LatestEvaluation(ctx, site.ID)
		if err != nil {
			return nil, err
		}

		var shotCount, photoCount int
		if err := s.pool.QueryRow(ctx,
			`SELECT
			   (SELECT COUNT(*) FROM screenshots WHERE site_id = $1),
			   (SELECT COUNT(*) FROM photos WHERE site_id = $1)`,
			site.ID,
		).Scan(&shotCount, &photoCount); err != nil {
			return nil, eris.Wrap(err, "postgres: report counts")
		}

		rows = append(rows, model.ReportRow{
			Site:            site,
			Evaluation:      ev,
			ScreenshotCount: shotCount,
			PhotoCount:      photoCount,
		})
	}
	return rows, nil
}

// helpers

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanPgEvaluation(row pgx.Row) (*model.Evaluation, error) {
	var ev model.Evaluation
	var screenshotID *string
	var landCoverJSON []byte
	var radiusM *int

	err := row.Scan(&ev.ID, &ev.SiteID, &screenshotID,
		&ev.RoadProximity, &ev.Accessibility, &ev.VegetationCover, &ev.DevelopmentSigns,
		&ev.RoadDistance, &ev.RoadSnapLat, &ev.RoadSnapLng,
		&ev.OverallRisk, &ev.RiskLevel, &ev.Notes,
		&landCoverJSON, &radiusM, &ev.LandCoverAnalyzed, &ev.EvaluatedAt)
	if err != nil {
		return nil, err
	}

	if screenshotID != nil {
		ev.ScreenshotID = *screenshotID
	}
	if landCoverJSON != nil {
		ev.LandCover = &model.LandCover{}
		if err := json.Unmarshal(landCoverJSON, ev.LandCover); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal land cover")
		}
	}
	ev.LandCoverRadiusM = radiusM
	return &ev, nil
}
