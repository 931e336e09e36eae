// Package autopilot steers a shared aircraft state toward a waypoint, altitude and speed.
package autopilot

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
	"fmsgo/pkg/sim"
)

// ErrNotEngaged is returned by every control operation before Engage.
var ErrNotEngaged = errors.New("autopilot not engaged")

// Control law constants. Rates are per minute and applied as one sixtieth per call.
const (
	AltitudeTolerance = 100.0 // Feet
	ClimbRate         = 500.0 // Feet per minute
	SpeedTolerance    = 10.0  // Knots
	AccelerationRate  = 50.0  // Knots per minute
)

// Autopilot mutates the AircraftState it is engaged on. Like the simulator it shares the
// state with, it must be driven from a single goroutine.
type Autopilot struct {
	plan   *flightplan.FlightPlan
	state  *sim.AircraftState
	logger *slog.Logger
}

// New creates a disengaged autopilot. plan may be nil; it is only needed by DirectTo.
func New(plan *flightplan.FlightPlan, logger *slog.Logger) *Autopilot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Autopilot{plan: plan, logger: logger}
}

// Engage binds the autopilot to state. Engaging again rebinds it; a nil state disengages.
func (a *Autopilot) Engage(state *sim.AircraftState) {
	if state == nil {
		a.Disengage()
		return
	}
	a.state = state
	a.logger.Info("Autopilot engaged",
		"lat", state.Position.Lat,
		"lon", state.Position.Lon,
		"alt", state.Altitude)
}

// Disengage releases the state.
func (a *Autopilot) Disengage() {
	if a.state == nil {
		return
	}
	a.state = nil
	a.logger.Info("Autopilot disengaged")
}

// Engaged reports whether a state is bound.
func (a *Autopilot) Engaged() bool {
	return a.state != nil
}

// NavigateToWaypoint sets the heading to the initial bearing toward wp.
func (a *Autopilot) NavigateToWaypoint(wp model.Waypoint) error {
	if a.state == nil {
		return ErrNotEngaged
	}

	bearing := geo.Bearing(a.state.Position, wp.Position)
	turn := geo.NormalizeAngle(bearing - a.state.Heading)
	a.state.Heading = bearing

	a.logger.Debug("Navigating to waypoint",
		"waypoint", wp.Code,
		"heading", fmt.Sprintf("%.1f", bearing),
		"turn", fmt.Sprintf("%.1f", turn))
	return nil
}

// MaintainAltitude moves the altitude one step toward target when it is more than
// AltitudeTolerance away.
func (a *Autopilot) MaintainAltitude(target float64) error {
	if a.state == nil {
		return ErrNotEngaged
	}

	diff := target - a.state.Altitude
	if math.Abs(diff) <= AltitudeTolerance {
		return nil
	}

	a.state.Altitude += math.Copysign(ClimbRate, diff) / 60
	a.logger.Debug("Adjusting altitude",
		"target", target,
		"current", fmt.Sprintf("%.0f", a.state.Altitude))
	return nil
}

// MaintainSpeed moves the speed one step toward target when it is more than
// SpeedTolerance away.
func (a *Autopilot) MaintainSpeed(target float64) error {
	if a.state == nil {
		return ErrNotEngaged
	}

	diff := target - a.state.Speed
	if math.Abs(diff) <= SpeedTolerance {
		return nil
	}

	a.state.Speed += math.Copysign(AccelerationRate, diff) / 60
	a.logger.Debug("Adjusting speed",
		"target", target,
		"current", fmt.Sprintf("%.1f", a.state.Speed))
	return nil
}

// DirectTo navigates to the route waypoint with the given code.
func (a *Autopilot) DirectTo(code string) error {
	if a.state == nil {
		return ErrNotEngaged
	}
	if a.plan == nil {
		return fmt.Errorf("%w: %s (no flight plan)", flightplan.ErrUnknownWaypoint, code)
	}

	for _, wp := range a.plan.Route() {
		if wp.Code == code {
			a.logger.Info("Direct to", "waypoint", code)
			return a.NavigateToWaypoint(wp)
		}
	}
	return fmt.Errorf("%w: %s not in route %s", flightplan.ErrUnknownWaypoint, code, a.plan)
}
