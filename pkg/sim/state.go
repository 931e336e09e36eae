// Package sim runs a time-stepped flight along the trajectory of a flight plan.
package sim

import (
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
)

// Phase is the lifecycle phase of a Simulator.
type Phase string

const (
	// PhaseIdle indicates the simulator has not been started.
	PhaseIdle Phase = "idle"
	// PhaseRunning indicates the simulator is consuming trajectory points.
	PhaseRunning Phase = "running"
	// PhaseCompleted indicates every trajectory point has been visited. It is terminal.
	PhaseCompleted Phase = "completed"
)

// AircraftState is the mutable kinematic state of the simulated aircraft.
// It is shared by the simulator and the autopilot and must only be touched from
// the goroutine that drives them; other goroutines work on Snapshot copies.
type AircraftState struct {
	Position geo.Point `json:"position" msgpack:"position"`
	Altitude float64   `json:"altitude" msgpack:"altitude"` // Feet, never clamped
	Speed    float64   `json:"speed" msgpack:"speed"`       // Knots
	Heading  float64   `json:"heading" msgpack:"heading"`   // Degrees True
}

// NewAircraftState returns a state parked at origin with zero altitude, speed and heading.
func NewAircraftState(origin model.Waypoint) *AircraftState {
	return &AircraftState{Position: origin.Position}
}

// Snapshot returns a value copy of the state.
func (s *AircraftState) Snapshot() AircraftState {
	return *s
}
