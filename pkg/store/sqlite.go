package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fmsgo/pkg/db"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	WaypointStore
	FlightStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Waypoints ---

const waypointColumns = `code, name, category, lat, lon, elevation`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWaypoint(row rowScanner) (*model.Waypoint, error) {
	var wp model.Waypoint
	var name, category sql.NullString
	err := row.Scan(&wp.Code, &name, &category, &wp.Position.Lat, &wp.Position.Lon, &wp.Elevation)
	if err != nil {
		return nil, err
	}
	wp.Name = name.String
	wp.Category = category.String
	return &wp, nil
}

func (s *SQLiteStore) GetWaypoint(ctx context.Context, code string) (*model.Waypoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+waypointColumns+` FROM waypoints WHERE code = ?`, code)

	wp, err := scanWaypoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return wp, nil
}

func (s *SQLiteStore) HasWaypoint(ctx context.Context, code string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM waypoints WHERE code = ?", code).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveWaypoint inserts or replaces the waypoint, indexed under the given H3 cell.
func (s *SQLiteStore) SaveWaypoint(ctx context.Context, wp *model.Waypoint, cell string) error {
	query := `INSERT OR REPLACE INTO waypoints (
		code, name, category, lat, lon, elevation, h3_cell, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		wp.Code, wp.Name, wp.Category, wp.Position.Lat, wp.Position.Lon, wp.Elevation, cell, time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStore) ListWaypoints(ctx context.Context) ([]*model.Waypoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+waypointColumns+` FROM waypoints ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWaypoints(rows)
}

func (s *SQLiteStore) ListWaypointsInCells(ctx context.Context, cells []string) ([]*model.Waypoint, error) {
	if len(cells) == 0 {
		return nil, nil
	}

	query := `SELECT ` + waypointColumns + ` FROM waypoints WHERE h3_cell IN (`
	args := make([]any, len(cells))
	for i, c := range cells {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = c
	}
	query += ") ORDER BY code"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWaypoints(rows)
}

func collectWaypoints(rows *sql.Rows) ([]*model.Waypoint, error) {
	var results []*model.Waypoint
	for rows.Next() {
		wp, err := scanWaypoint(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, wp)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) CountWaypoints(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM waypoints").Scan(&n)
	return n, err
}

// --- Flights ---

func (s *SQLiteStore) CreateFlight(ctx context.Context, f *model.Flight) error {
	blob, err := encodeTrajectory(f.Trajectory)
	if err != nil {
		return err
	}

	status := f.Status
	if status == "" {
		status = model.FlightActive
	}
	startedAt := f.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	query := `INSERT INTO flights (
		id, origin, destination, route, points_per_leg, trajectory, status, started_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		f.ID, f.Origin, f.Destination, strings.Join(f.Route, " "), f.PointsPerLeg, blob, string(status), startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create flight %s: %w", f.ID, err)
	}
	return nil
}

func (s *SQLiteStore) RecordSample(ctx context.Context, smp *model.FlightSample) error {
	query := `INSERT OR REPLACE INTO flight_samples (
		flight_id, step, elapsed_ms, lat, lon, altitude, speed, heading, vertical_speed, stage, active_waypoint
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		smp.FlightID, smp.Step, smp.Elapsed.Milliseconds(),
		smp.Position.Lat, smp.Position.Lon,
		smp.Altitude, smp.Speed, smp.Heading, smp.VerticalSpeed,
		smp.Stage, smp.ActiveWaypoint,
	)
	return err
}

func (s *SQLiteStore) CompleteFlight(ctx context.Context, id string, status model.FlightStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE flights SET status = ?, completed_at = ? WHERE id = ?", string(status), at.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("flight %s not found", id)
	}
	return nil
}

const flightColumns = `id, origin, destination, route, points_per_leg, trajectory, status, started_at, completed_at`

func scanFlight(row rowScanner, withTrajectory bool) (*model.Flight, error) {
	var f model.Flight
	var origin, destination, route, status sql.NullString
	var ppl sql.NullInt64
	var blob []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&f.ID, &origin, &destination, &route, &ppl, &blob, &status, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	f.Origin = origin.String
	f.Destination = destination.String
	f.PointsPerLeg = int(ppl.Int64)

	if route.String != "" {
		f.Route = strings.Fields(route.String)
	}
	f.Status = model.FlightStatus(status.String)
	if startedAt.Valid {
		f.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		f.CompletedAt = completedAt.Time
	}
	if withTrajectory {
		if f.Trajectory, err = decodeTrajectory(blob); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

func (s *SQLiteStore) GetFlight(ctx context.Context, id string) (*model.Flight, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ?`, id)
	f, err := scanFlight(row, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

// ListFlights returns the most recent flights first, without trajectories.
func (s *SQLiteStore) ListFlights(ctx context.Context, limit int) ([]*model.Flight, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flightColumns+` FROM flights ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.Flight
	for rows.Next() {
		f, err := scanFlight(rows, false)
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) ListSamples(ctx context.Context, flightID string) ([]*model.FlightSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT flight_id, step, elapsed_ms, lat, lon, altitude, speed, heading, vertical_speed, stage, active_waypoint
		 FROM flight_samples WHERE flight_id = ? ORDER BY step`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.FlightSample
	for rows.Next() {
		var smp model.FlightSample
		var elapsedMs int64
		var stage, active sql.NullString
		var lat, lon float64
		err := rows.Scan(&smp.FlightID, &smp.Step, &elapsedMs, &lat, &lon,
			&smp.Altitude, &smp.Speed, &smp.Heading, &smp.VerticalSpeed, &stage, &active)
		if err != nil {
			return nil, err
		}
		smp.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		smp.Position = geo.Point{Lat: lat, Lon: lon}
		smp.Stage = stage.String
		smp.ActiveWaypoint = active.String
		results = append(results, &smp)
	}
	return results, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
