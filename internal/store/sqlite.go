package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/paleobytes/gheval/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sites (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	site_type   TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS screenshots (
	id          TEXT PRIMARY KEY,
	site_id     TEXT NOT NULL REFERENCES sites(id),
	file_path   TEXT NOT NULL,
	map_type    TEXT NOT NULL,
	zoom_level  INTEGER NOT NULL,
	scale_info  TEXT NOT NULL DEFAULT '',
	note        TEXT NOT NULL DEFAULT '',
	captured_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS risk_evaluations (
	id                     TEXT PRIMARY KEY,
	site_id                TEXT NOT NULL REFERENCES sites(id),
	screenshot_id          TEXT,
	road_proximity         INTEGER NOT NULL,
	accessibility          INTEGER NOT NULL,
	vegetation_cover       INTEGER NOT NULL,
	development_signs      INTEGER NOT NULL,
	road_distance          REAL,
	road_snap_lat          REAL,
	road_snap_lng          REAL,
	overall_risk           INTEGER NOT NULL,
	risk_level             TEXT NOT NULL,
	notes                  TEXT NOT NULL DEFAULT '',
	land_cover             TEXT,
	land_cover_radius_m    INTEGER,
	land_cover_analyzed_at DATETIME,
	evaluated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS photos (
	id          TEXT PRIMARY KEY,
	site_id     TEXT NOT NULL REFERENCES sites(id),
	file_path   TEXT NOT NULL,
	photo_type  TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	taken_at    DATETIME,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sites_site_type ON sites(site_type);
CREATE INDEX IF NOT EXISTS idx_sites_name ON sites(name);
CREATE INDEX IF NOT EXISTS idx_screenshots_site_id ON screenshots(site_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_site_id ON risk_evaluations(site_id, evaluated_at DESC);
CREATE INDEX IF NOT EXISTS idx_photos_site_id ON photos(site_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSite(ctx context.Context, in model.SiteInput) (*model.Site, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (id, name, description, latitude, longitude, address, site_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Description, in.Latitude, in.Longitude, in.Address, in.SiteType, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert site")
	}
	return &model.Site{
		ID: id, Name: in.Name, Description: in.Description,
		Latitude: in.Latitude, Longitude: in.Longitude,
		Address: in.Address, SiteType: in.SiteType,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetSite(ctx context.Context, id string) (*model.Site, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, latitude, longitude, address, site_type, created_at, updated_at
		 FROM sites WHERE id = ?`, id)
	return scanSite(row)
}

func (s *SQLiteStore) UpdateSite(ctx context.Context, id string, in model.SiteInput) (*model.Site, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sites SET name = ?, description = ?, latitude = ?, longitude = ?, address = ?, site_type = ?, updated_at = ?
		 WHERE id = ?`,
		in.Name, in.Description, in.Latitude, in.Longitude, in.Address, in.SiteType, now, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update site %s", id)
	}
	if err := checkRowsAffected(res, "site", id); err != nil {
		return nil, err
	}
	return s.GetSite(ctx, id)
}

func (s *SQLiteStore) DeleteSite(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete site")
	}
	defer tx.Rollback()

	for _, table := range []string{"risk_evaluations", "screenshots", "photos"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE site_id = ?`, id); err != nil {
			return eris.Wrapf(err, "sqlite: delete %s for site %s", table, id)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete site %s", id)
	}
	if err := checkRowsAffected(res, "site", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete site")
}

func (s *SQLiteStore) ListSites(ctx context.Context, filter SiteFilter) ([]model.Site, error) {
	query := `SELECT id, name, description, latitude, longitude, address, site_type, created_at, updated_at
	          FROM sites WHERE 1=1`
	var args []any

	if filter.SiteType != "" {
		query += ` AND site_type = ?`
		args = append(args, filter.SiteType)
	}
	if filter.Query != "" {
		query += ` AND (name LIKE ? OR address LIKE ?)`
		pat := "%" + filter.Query + "%"
		args = append(args, pat, pat)
	}
	query += ` ORDER BY name COLLATE NOCASE`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sites")
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		st, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, *st)
	}
	return sites, eris.Wrap(rows.Err(), "sqlite: list sites iterate")
}

func (s *SQLiteStore) ImportSites(ctx context.Context, sites []model.Site) (int64, error) {
	if len(sites) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var n int64
	for _, site := range sites {
		if site.ID == "" {
			site.ID = uuid.New().String()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sites (id, name, description, latitude, longitude, address, site_type, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			   name = excluded.name, description = excluded.description,
			   latitude = excluded.latitude, longitude = excluded.longitude,
			   address = excluded.address, site_type = excluded.site_type,
			   updated_at = excluded.updated_at`,
			site.ID, site.Name, site.Description, site.Latitude, site.Longitude,
			site.Address, site.SiteType, now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import site %s", site.Name)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: commit import")
}

func (s *SQLiteStore) CreateEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error) {
	ev.ID = uuid.New().String()
	if ev.EvaluatedAt.IsZero() {
		ev.EvaluatedAt = time.Now().UTC()
	}

	var landCoverJSON sql.NullString
	if ev.LandCover != nil {
		b, err := json.Marshal(ev.LandCover)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal land cover")
		}
		landCoverJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO risk_evaluations
		 (id, site_id, screenshot_id, road_proximity, accessibility, vegetation_cover, development_signs,
		  road_distance, road_snap_lat, road_snap_lng, overall_risk, risk_level, notes,
		  land_cover, land_cover_radius_m, land_cover_analyzed_at, evaluated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SiteID, nullString(ev.ScreenshotID),
		ev.RoadProximity, ev.Accessibility, ev.VegetationCover, ev.DevelopmentSigns,
		nullFloat(ev.RoadDistance), nullFloat(ev.RoadSnapLat), nullFloat(ev.RoadSnapLng),
		ev.OverallRisk, string(ev.RiskLevel), ev.Notes,
		landCoverJSON, nullInt(ev.LandCoverRadiusM), nullTime(ev.LandCoverAnalyzed), ev.EvaluatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert evaluation for site %s", ev.SiteID)
	}
	return &ev, nil
}

const evalColumns = `id, site_id, screenshot_id, road_proximity, accessibility, vegetation_cover, development_signs,
	road_distance, road_snap_lat, road_snap_lng, overall_risk, risk_level, notes,
	land_cover, land_cover_radius_m, land_cover_analyzed_at, evaluated_at`

func (s *SQLiteStore) LatestEvaluation(ctx context.Context, siteID string) (*model.Evaluation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+evalColumns+` FROM risk_evaluations
		 WHERE site_id = ? ORDER BY evaluated_at DESC, id LIMIT 1`, siteID)

	ev, err := scanEvaluation(row)
	if err == errNoRows {
		return nil, nil
	}
	return ev, err
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, siteID string) ([]model.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+evalColumns+` FROM risk_evaluations
		 WHERE site_id = ? ORDER BY evaluated_at DESC, id`, siteID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close()

	var evs []model.Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evs = append(evs, *ev)
	}
	return evs, eris.Wrap(rows.Err(), "sqlite: list evaluations iterate")
}

func (s *SQLiteStore) AddScreenshot(ctx context.Context, sc model.Screenshot) (*model.Screenshot, error) {
	sc.ID = uuid.New().String()
	if sc.CapturedAt.IsZero() {
		sc.CapturedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO screenshots (id, site_id, file_path, map_type, zoom_level, scale_info, note, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.SiteID, sc.FilePath, string(sc.MapType), sc.ZoomLevel, sc.ScaleInfo, sc.Note, sc.CapturedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert screenshot for site %s", sc.SiteID)
	}
	return &sc, nil
}

func (s *SQLiteStore) GetScreenshot(ctx context.Context, id string) (*model.Screenshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, site_id, file_path, map_type, zoom_level, scale_info, note, captured_at
		 FROM screenshots WHERE id = ?`, id)

	var sc model.Screenshot
	err := row.Scan(&sc.ID, &sc.SiteID, &sc.FilePath, &sc.MapType, &sc.ZoomLevel, &sc.ScaleInfo, &sc.Note, &sc.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("screenshot not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get screenshot")
	}
	return &sc, nil
}

func (s *SQLiteStore) ListScreenshots(ctx context.Context, siteID string) ([]model.Screenshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, file_path, map_type, zoom_level, scale_info, note, captured_at
		 FROM screenshots WHERE site_id = ? ORDER BY captured_at DESC`, siteID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list screenshots")
	}
	defer rows.Close()

	var shots []model.Screenshot
	for rows.Next() {
		var sc model.Screenshot
		if err := rows.Scan(&sc.ID, &sc.SiteID, &sc.FilePath, &sc.MapType, &sc.ZoomLevel, &sc.ScaleInfo, &sc.Note, &sc.CapturedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan screenshot")
		}
		shots = append(shots, sc)
	}
	return shots, eris.Wrap(rows.Err(), "sqlite: list screenshots iterate")
}

// DeleteScreenshot removes the screenshot and clears any evaluation rows
// that reference it, matching the set-null delete rule of the Postgres
// schema.
func (s *SQLiteStore) DeleteScreenshot(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete screenshot tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE risk_evaluations SET screenshot_id = NULL WHERE screenshot_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: clear evaluation references to screenshot %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM screenshots WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete screenshot %s", id)
	}
	if err := checkRowsAffected(res, "screenshot", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete screenshot tx")
}

func (s *SQLiteStore) AddPhoto(ctx context.Context, p model.Photo) (*model.Photo, error) {
	p.ID = uuid.New().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO photos (id, site_id, file_path, photo_type, description, taken_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SiteID, p.FilePath, p.PhotoType, p.Description, nullTime(p.TakenAt), p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert photo for site %s", p.SiteID)
	}
	return &p, nil
}

func (s *SQLiteStore) GetPhoto(ctx context.Context, id string) (*model.Photo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, site_id, file_path, photo_type, description, taken_at, created_at
		 FROM photos WHERE id = ?`, id)

	var p model.Photo
	var takenAt sql.NullTime
	err := row.Scan(&p.ID, &p.SiteID, &p.FilePath, &p.PhotoType, &p.Description, &takenAt, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("photo not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get photo")
	}
	if takenAt.Valid {
		p.TakenAt = &takenAt.Time
	}
	return &p, nil
}

func (s *SQLiteStore) ListPhotos(ctx context.Context, siteID string) ([]model.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, file_path, photo_type, description, taken_at, created_at
		 FROM photos WHERE site_id = ? ORDER BY created_at DESC`, siteID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list photos")
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		var takenAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.SiteID, &p.FilePath, &p.PhotoType, &p.Description, &takenAt, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan photo")
		}
		if takenAt.Valid {
			p.TakenAt = &takenAt.Time
		}
		photos = append(photos, p)
	}
	return photos, eris.Wrap(rows.Err(), "sqlite: list photos iterate")
}

func (s *SQLiteStore) DeletePhoto(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete photo %s", id)
	}
	return checkRowsAffected(res, "photo", id)
}

func (s *SQLiteStore) Report(ctx context.Context) ([]model.ReportRow, error) {
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
		if err := s.db.QueryRowContext(ctx,
			`SELECT
			   (SELECT COUNT(*) FROM screenshots WHERE site_id = ?),
			   (SELECT COUNT(*) FROM photos WHERE site_id = ?)`,
			site.ID, site.ID,
		).Scan(&shotCount, &photoCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: report counts")
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

var errNoRows = eris.New("no rows")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSite(row scannable) (*model.Site, error) {
	var st model.Site
	err := row.Scan(&st.ID, &st.Name, &st.Description, &st.Latitude, &st.Longitude,
		&st.Address, &st.SiteType, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("site not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan site")
	}
	return &st, nil
}

func scanEvaluation(row scannable) (*model.Evaluation, error) {
	var ev model.Evaluation
	var screenshotID, landCoverJSON sql.NullString
	var roadDistance, snapLat, snapLng sql.NullFloat64
	var radiusM sql.NullInt64
	var analyzedAt sql.NullTime

	err := row.Scan(&ev.ID, &ev.SiteID, &screenshotID,
		&ev.RoadProximity, &ev.Accessibility, &ev.VegetationCover, &ev.DevelopmentSigns,
		&roadDistance, &snapLat, &snapLng,
		&ev.OverallRisk, &ev.RiskLevel, &ev.Notes,
		&landCoverJSON, &radiusM, &analyzedAt, &ev.EvaluatedAt)
	if err == sql.ErrNoRows {
		return nil, errNoRows
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan evaluation")
	}

	ev.ScreenshotID = screenshotID.String
	if roadDistance.Valid {
		ev.RoadDistance = &roadDistance.Float64
	}
	if snapLat.Valid {
		ev.RoadSnapLat = &snapLat.Float64
	}
	if snapLng.Valid {
		ev.RoadSnapLng = &snapLng.Float64
	}
	if landCoverJSON.Valid {
		ev.LandCover = &model.LandCover{}
		if err := json.Unmarshal([]byte(landCoverJSON.String), ev.LandCover); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal land cover")
		}
	}
	if radiusM.Valid {
		r := int(radiusM.Int64)
		ev.LandCoverRadiusM = &r
	}
	if analyzedAt.Valid {
		ev.LandCoverAnalyzed = &analyzedAt.Time
	}
	return &ev, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
