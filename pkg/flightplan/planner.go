package flightplan

import (
	"context"
	"fmt"
	"log/slog"

	"fmsgo/pkg/model"
)

// WaypointLookup resolves waypoint codes. A nil waypoint with nil error means not found.
type WaypointLookup interface {
	GetByCode(ctx context.Context, code string) (*model.Waypoint, error)
}

// Planner assembles flight plans from waypoint codes.
type Planner struct {
	lookup WaypointLookup
	logger *slog.Logger
}

// NewPlanner creates a planner backed by lookup.
func NewPlanner(lookup WaypointLookup, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{lookup: lookup, logger: logger}
}

// CreatePlan resolves the codes and builds a plan.
// An unresolvable origin or destination yields ErrInvalidRoute; an unresolvable
// intermediate code yields ErrUnknownWaypoint.
func (p *Planner) CreatePlan(ctx context.Context, originCode, destinationCode string, viaCodes ...string) (*FlightPlan, error) {
	origin, err := p.resolve(ctx, originCode)
	if err != nil {
		return nil, err
	}
	destination, err := p.resolve(ctx, destinationCode)
	if err != nil {
		return nil, err
	}
	if origin == nil || destination == nil {
		return nil, fmt.Errorf("%w: origin %q, destination %q", ErrInvalidRoute, originCode, destinationCode)
	}

	via := make([]model.Waypoint, 0, len(viaCodes))
	for _, code := range viaCodes {
		wp, err := p.resolve(ctx, code)
		if err != nil {
			return nil, err
		}
		if wp == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownWaypoint, code)
		}
		via = append(via, *wp)
	}

	plan, err := New(*origin, *destination, via...)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Flight plan created",
		"route", plan.String(),
		"distance_km", fmt.Sprintf("%.1f", plan.TotalDistance()))
	return plan, nil
}

func (p *Planner) resolve(ctx context.Context, code string) (*model.Waypoint, error) {
	if code == "" {
		return nil, nil
	}
	wp, err := p.lookup.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up waypoint %s: %w", code, err)
	}
	return wp, nil
}
