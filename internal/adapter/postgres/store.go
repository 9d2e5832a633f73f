// Package postgres keeps a snapshot of stations and active warnings, plus a
// history of warning changes, in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/flood-monitor-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS stations (
	notation       TEXT PRIMARY KEY,
	rloi_id        TEXT NOT NULL,
	label          TEXT NOT NULL,
	catchment_name TEXT NOT NULL,
	river_name     TEXT NOT NULL,
	town           TEXT NOT NULL,
	date_opened    TEXT NOT NULL,
	status         TEXT NOT NULL,
	lat            DOUBLE PRECISION NOT NULL,
	lon            DOUBLE PRECISION NOT NULL,
	northing       BIGINT NOT NULL,
	easting        BIGINT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS warnings (
	flood_area_id         TEXT PRIMARY KEY,
	description           TEXT NOT NULL,
	ea_area_name          TEXT NOT NULL,
	ea_region_name        TEXT NOT NULL,
	severity              TEXT NOT NULL,
	severity_level        INTEGER NOT NULL,
	message               TEXT NOT NULL,
	county                TEXT NOT NULL,
	time_raised           TEXT NOT NULL,
	time_severity_changed TEXT NOT NULL,
	time_message_changed  TEXT NOT NULL,
	polygon_url           TEXT NOT NULL,
	polygon               JSONB,
	updated_at            TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS warning_changes (
	id             BIGSERIAL PRIMARY KEY,
	flood_area_id  TEXT NOT NULL,
	change_type    TEXT NOT NULL,
	severity_level INTEGER NOT NULL,
	description    TEXT NOT NULL,
	detected_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS warning_changes_area_idx ON warning_changes (flood_area_id, detected_at);
`

const upsertStation = `INSERT INTO stations (notation, rloi_id, label, catchment_name, river_name, town, date_opened, status, lat, lon, northing, easting, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) ON CONFLICT (notation) DO UPDATE SET rloi_id=EXCLUDED.rloi_id, label=EXCLUDED.label, catchment_name=EXCLUDED.catchment_name, river_name=EXCLUDED.river_name, town=EXCLUDED.town, date_opened=EXCLUDED.date_opened, status=EXCLUDED.status, lat=EXCLUDED.lat, lon=EXCLUDED.lon, northing=EXCLUDED.northing, easting=EXCLUDED.easting, updated_at=EXCLUDED.updated_at`

const deleteWarnings = `DELETE FROM warnings`
const insertWarning = `INSERT INTO warnings (flood_area_id, description, ea_area_name, ea_region_name, severity, severity_level, message, county, time_raised, time_severity_changed, time_message_changed, polygon_url, polygon, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) ON CONFLICT (flood_area_id) DO NOTHING`
const insertChange = `INSERT INTO warning_changes (flood_area_id, change_type, severity_level, description, detected_at) VALUES ($1, $2, $3, $4, $5)`

const listWarnings = `SELECT flood_area_id, description, ea_area_name, ea_region_name, severity, severity_level, message, county, time_raised, time_severity_changed, time_message_changed, polygon_url, polygon FROM warnings ORDER BY severity_level, flood_area_id`

// Store persists monitor snapshots. It implements monitor.Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveStations upserts stations by notation.
func (s *Store) SaveStations(ctx context.Context, stations []domain.Station) error {
	if len(stations) == 0 {
		return nil
	}

	now := domain.Now()
	batch := &pgx.Batch{}
	for _, st := range stations {
		batch.Queue(upsertStation,
			st.Notation, st.RLOIid, st.Label, st.CatchmentName, st.RiverName, st.Town,
			st.DateOpened, st.Status, st.Lat, st.Lon, st.Northing, st.Easting, now,
		)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save stations: %w", err)
	}
	s.logger.Debug("stations saved", "count", len(stations))
	return nil
}

// SaveWarnings replaces the active warning snapshot and appends changes to
// the history, in one transaction.
func (s *Store) SaveWarnings(ctx context.Context, warnings []domain.Warning, changes []domain.WarningChange) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := domain.Now()
	batch := &pgx.Batch{}
	batch.Queue(deleteWarnings)
	for _, w := range warnings {
		polygon, err := encodePolygon(w.FloodArea)
		if err != nil {
			return fmt.Errorf("warning %s: %w", w.ID, err)
		}
		batch.Queue(insertWarning,
			w.ID, w.Description, w.AreaName, w.Region, w.Severity, w.SeverityLevel, w.Message,
			w.County, w.TimeRaised, w.TimeSeverityChanged, w.TimeMessageChanged, w.PolygonURL,
			polygon, now,
		)
	}
	for _, c := range changes {
		batch.Queue(insertChange, c.Warning.ID, string(c.Type), c.Warning.SeverityLevel, c.Warning.Description, c.DetectedAt)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save warnings: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("warnings saved", "warnings", len(warnings), "changes", len(changes))
	return nil
}

// LoadWarnings returns the last saved warning snapshot, most severe first.
func (s *Store) LoadWarnings(ctx context.Context) ([]domain.Warning, error) {
	rows, err := s.pool.Query(ctx, listWarnings)
	if err != nil {
		return nil, fmt.Errorf("load warnings: %w", err)
	}
	defer rows.Close()

	var warnings []domain.Warning
	for rows.Next() {
		var (
			w       domain.Warning
			polygon []byte
		)
		if err := rows.Scan(
			&w.ID, &w.Description, &w.AreaName, &w.Region, &w.Severity, &w.SeverityLevel, &w.Message,
			&w.County, &w.TimeRaised, &w.TimeSeverityChanged, &w.TimeMessageChanged, &w.PolygonURL,
			&polygon,
		); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		if len(polygon) > 0 {
			if err := json.Unmarshal(polygon, &w.FloodArea); err != nil {
				s.logger.Warn("discarding unreadable stored polygon", "flood_area_id", w.ID, "error", err)
			}
		}
		warnings = append(warnings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load warnings: %w", err)
	}
	return warnings, nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

// encodePolygon returns nil for warnings without a boundary so the column is NULL.
func encodePolygon(mp domain.MultiPolygon) (any, error) {
	if len(mp) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(mp)
	if err != nil {
		return nil, fmt.Errorf("encode polygon: %w", err)
	}
	return string(b), nil
}
