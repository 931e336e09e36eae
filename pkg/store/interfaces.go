package store

import (
	"context"
	"time"

	"fmsgo/pkg/model"
)

// WaypointStore handles waypoint database persistence.
type WaypointStore interface {
	// GetWaypoint returns nil, nil when no waypoint has the code.
	GetWaypoint(ctx context.Context, code string) (*model.Waypoint, error)
	HasWaypoint(ctx context.Context, code string) (bool, error)
	SaveWaypoint(ctx context.Context, wp *model.Waypoint, cell string) error
	ListWaypoints(ctx context.Context) ([]*model.Waypoint, error)
	ListWaypointsInCells(ctx context.Context, cells []string) ([]*model.Waypoint, error)
	CountWaypoints(ctx context.Context) (int, error)
}

// FlightStore handles recorded flights and their samples.
type FlightStore interface {
	CreateFlight(ctx context.Context, f *model.Flight) error
	RecordSample(ctx context.Context, s *model.FlightSample) error
	CompleteFlight(ctx context.Context, id string, status model.FlightStatus, at time.Time) error
	// GetFlight returns nil, nil when the flight does not exist.
	GetFlight(ctx context.Context, id string) (*model.Flight, error)
	ListFlights(ctx context.Context, limit int) ([]*model.Flight, error)
	ListSamples(ctx context.Context, flightID string) ([]*model.FlightSample, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
