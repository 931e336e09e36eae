// Package flightplan holds the origin, destination and intermediate fixes of a flight.
package flightplan

import (
	"errors"
	"fmt"
	"time"

	"fmsgo/pkg/model"
	"fmsgo/pkg/trajectory"
)

var (
	// ErrInvalidRoute is returned when a plan would have fewer than two route points.
	ErrInvalidRoute = errors.New("invalid route: origin and destination are required")
	// ErrUnknownWaypoint is returned when a waypoint code cannot be resolved.
	ErrUnknownWaypoint = errors.New("unknown waypoint")
)

// KmToNM converts kilometers to nautical miles.
const KmToNM = 0.539957

// FlightPlan is immutable after construction.
type FlightPlan struct {
	origin      model.Waypoint
	destination model.Waypoint
	waypoints   []model.Waypoint
}

// New creates a plan. Origin and destination must both carry a code.
func New(origin, destination model.Waypoint, waypoints ...model.Waypoint) (*FlightPlan, error) {
	if origin.Code == "" || destination.Code == "" {
		return nil, ErrInvalidRoute
	}
	return &FlightPlan{
		origin:      origin,
		destination: destination,
		waypoints:   append([]model.Waypoint(nil), waypoints...),
	}, nil
}

// FromRoute creates a plan from a full route: first is the origin, last the destination.
func FromRoute(route []model.Waypoint) (*FlightPlan, error) {
	if len(route) < 2 {
		return nil, fmt.Errorf("%w: got %d route points", ErrInvalidRoute, len(route))
	}
	return New(route[0], route[len(route)-1], route[1:len(route)-1]...)
}

func (p *FlightPlan) Origin() model.Waypoint      { return p.origin }
func (p *FlightPlan) Destination() model.Waypoint { return p.destination }

// Waypoints returns a copy of the intermediate waypoints.
func (p *FlightPlan) Waypoints() []model.Waypoint {
	return append([]model.Waypoint(nil), p.waypoints...)
}

// Route returns origin, intermediates and destination as a fresh slice.
func (p *FlightPlan) Route() []model.Waypoint {
	route := make([]model.Waypoint, 0, len(p.waypoints)+2)
	route = append(route, p.origin)
	route = append(route, p.waypoints...)
	return append(route, p.destination)
}

// TotalDistance sums the great-circle legs along the route, in kilometers.
func (p *FlightPlan) TotalDistance() float64 {
	return trajectory.Length(p.Route())
}

// EstimatedTimeEnRoute returns the flight time at a constant average ground speed in knots.
func (p *FlightPlan) EstimatedTimeEnRoute(avgSpeedKts float64) time.Duration {
	if avgSpeedKts <= 0 {
		return 0
	}
	hours := p.TotalDistance() * KmToNM / avgSpeedKts
	return time.Duration(hours * float64(time.Hour))
}

// String returns the route as space separated codes, e.g. "GMMN GMMX GMAD".
func (p *FlightPlan) String() string {
	s := p.origin.Code
	for _, wp := range p.waypoints {
		s += " " + wp.Code
	}
	return s + " " + p.destination.Code
}
