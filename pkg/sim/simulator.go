package sim

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/logging"
	"fmsgo/pkg/trajectory"
)

var (
	// ErrCompleted is returned when starting a simulator that already finished its trajectory.
	ErrCompleted = errors.New("simulation already completed")
	// ErrAlreadyRunning is returned when starting a simulator that is running.
	ErrAlreadyRunning = errors.New("simulation already running")
)

// Per-step sampling ranges.
const (
	MinClimbPerStep = 50.0  // Feet
	MaxClimbPerStep = 200.0 // Feet
	MinSpeed        = 250.0 // Knots
	MaxSpeed        = 450.0 // Knots
)

// DefaultStepSeconds is the simulated time per step when Run is not paced.
const DefaultStepSeconds = 1.0

// Option configures a Simulator.
type Option func(*Simulator)

// WithPointsPerLeg sets the trajectory density. Values < 1 fall back to the default.
func WithPointsPerLeg(n int) Option {
	return func(s *Simulator) { s.pointsPerLeg = n }
}

// WithRandom injects the random source.
func WithRandom(r Random) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithState makes the simulator drive an existing state instead of creating one.
func WithState(st *AircraftState) Option {
	return func(s *Simulator) { s.state = st }
}

// Simulator advances an AircraftState one trajectory point per step.
// It is not safe for concurrent use.
type Simulator struct {
	plan         *flightplan.FlightPlan
	state        *AircraftState
	rng          Random
	logger       *slog.Logger
	pointsPerLeg int

	phase      Phase
	trajectory []geo.Point
	cursor     int
	elapsed    float64
}

// NewSimulator creates an idle simulator for plan with its state at the plan origin.
func NewSimulator(plan *flightplan.FlightPlan, opts ...Option) *Simulator {
	s := &Simulator{
		plan:         plan,
		pointsPerLeg: trajectory.DefaultPointsPerLeg,
		phase:        PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.state == nil {
		s.state = NewAircraftState(plan.Origin())
	}
	if s.rng == nil {
		s.rng = NewTimeSeededRandom()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start builds the trajectory and begins the simulation.
func (s *Simulator) Start() error {
	switch s.phase {
	case PhaseCompleted:
		return ErrCompleted
	case PhaseRunning:
		return ErrAlreadyRunning
	}

	s.trajectory = trajectory.Build(s.plan.Route(), s.pointsPerLeg)
	s.cursor = 0
	s.elapsed = 0
	s.phase = PhaseRunning

	if len(s.trajectory) == 0 {
		s.phase = PhaseCompleted
	}

	s.logger.Info("Simulation started",
		"route", s.plan.String(),
		"points", len(s.trajectory))
	return nil
}

// Advance moves the aircraft to the next trajectory point and accounts dt seconds.
// It returns the shared state and true, or nil and false when the simulator is not running.
func (s *Simulator) Advance(dt float64) (*AircraftState, bool) {
	if s.phase != PhaseRunning {
		return nil, false
	}

	current := s.trajectory[s.cursor]
	s.state.Position = current
	s.cursor++

	s.state.Altitude += s.rng.Uniform(MinClimbPerStep, MaxClimbPerStep)
	s.state.Speed = s.rng.Uniform(MinSpeed, MaxSpeed)

	if s.cursor < len(s.trajectory) {
		s.state.Heading = geo.Bearing(current, s.trajectory[s.cursor])
	}

	s.elapsed += dt

	logging.Trace(s.logger, "Simulation step",
		"cursor", s.cursor,
		"lat", current.Lat,
		"lon", current.Lon,
		"alt", s.state.Altitude,
		"hdg", s.state.Heading)

	if s.cursor >= len(s.trajectory) {
		s.phase = PhaseCompleted
		s.logger.Info("Simulation completed",
			"steps", s.cursor,
			"elapsed", time.Duration(s.elapsed*float64(time.Second)))
	}

	return s.state, true
}

// Run starts the simulator and advances it once per interval until the trajectory is exhausted
// or ctx is done. onStep, if set, is called on the calling goroutine after every step.
// A non-positive interval runs unpaced with DefaultStepSeconds per step.
func (s *Simulator) Run(ctx context.Context, interval time.Duration, onStep func(*AircraftState)) error {
	if err := s.Start(); err != nil {
		return err
	}

	dt := interval.Seconds()
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	} else {
		dt = DefaultStepSeconds
	}

	for s.IsRunning() {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		st, ok := s.Advance(dt)
		if ok && onStep != nil {
			onStep(st)
		}
	}
	return nil
}

func (s *Simulator) Phase() Phase                 { return s.phase }
func (s *Simulator) IsRunning() bool              { return s.phase == PhaseRunning }
func (s *Simulator) Cursor() int                  { return s.cursor }
func (s *Simulator) State() *AircraftState        { return s.state }
func (s *Simulator) Plan() *flightplan.FlightPlan { return s.plan }

// Elapsed returns the accumulated simulated time.
func (s *Simulator) Elapsed() time.Duration {
	return time.Duration(s.elapsed * float64(time.Second))
}

// Remaining returns the number of trajectory points not yet visited.
func (s *Simulator) Remaining() int {
	return len(s.trajectory) - s.cursor
}

// Trajectory returns a copy of the built trajectory, empty before Start.
func (s *Simulator) Trajectory() []geo.Point {
	return append([]geo.Point(nil), s.trajectory...)
}
