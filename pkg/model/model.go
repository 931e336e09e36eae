package model

import (
	"time"

	"fmsgo/pkg/geo"
)

// FlightStatus is the lifecycle status of a recorded flight.
type FlightStatus string

const (
	FlightActive    FlightStatus = "active"
	FlightCompleted FlightStatus = "completed"
	FlightAborted   FlightStatus = "aborted"
)

// Flight is a recorded simulation run.
type Flight struct {
	ID           string       `json:"id"`
	Origin       string       `json:"origin"`      // ICAO code
	Destination  string       `json:"destination"` // ICAO code
	Route        []string     `json:"route"`       // Full route codes, origin first
	PointsPerLeg int          `json:"points_per_leg"`
	Trajectory   []geo.Point  `json:"trajectory,omitempty"`
	Status       FlightStatus `json:"status"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  time.Time    `json:"completed_at"`
}

// FlightSample is the aircraft state recorded after one simulation step.
type FlightSample struct {
	FlightID       string        `json:"flight_id"`
	Step           int           `json:"step"`
	Elapsed        time.Duration `json:"elapsed"`
	Position       geo.Point     `json:"position"`
	Altitude       float64       `json:"altitude"`       // Feet
	Speed          float64       `json:"speed"`          // Knots
	Heading        float64       `json:"heading"`        // Degrees True
	VerticalSpeed  float64       `json:"vertical_speed"` // Feet per minute
	Stage          string        `json:"stage"`
	ActiveWaypoint string        `json:"active_waypoint"`
}

// FlightEvent is a notable moment of a flight, written to the event log.
type FlightEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // e.g. "departure", "waypoint", "arrival"
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
}
