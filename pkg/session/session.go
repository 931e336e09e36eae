// Package session flies a flight plan: it drives the simulator and the autopilot on one
// goroutine, sequences the route legs and publishes and records every step.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fmsgo/pkg/autopilot"
	"fmsgo/pkg/config"
	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/logging"
	"fmsgo/pkg/model"
	"fmsgo/pkg/sim"
)

// ErrFinished is returned when running a session twice or commanding a finished one.
var ErrFinished = errors.New("session already finished")

// vsWindow is the simulated time over which vertical speed is averaged.
const vsWindow = 5 * time.Second

// trackWindow is the number of positions the ground track is computed over.
const trackWindow = 5

// Sample is the published result of one simulation step.
type Sample struct {
	SessionID      string            `json:"session_id"`
	Step           int               `json:"step"`
	Elapsed        time.Duration     `json:"elapsed"`
	State          sim.AircraftState `json:"state"`
	Track          float64           `json:"track"` // Ground track, degrees True
	Phase          sim.Phase         `json:"phase"`
	Stage          string            `json:"stage"`
	VerticalSpeed  float64           `json:"vertical_speed"` // Feet per minute
	ActiveWaypoint string            `json:"active_waypoint,omitempty"`
	TargetAltitude float64           `json:"target_altitude"`
	TargetSpeed    float64           `json:"target_speed"`
}

// Sink is a consumer of the sample stream. Publish runs on the control goroutine and must not block.
type Sink interface {
	Publish(s Sample)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Sample)

func (f SinkFunc) Publish(s Sample) { f(s) }

// Recorder persists flights and their samples.
type Recorder interface {
	CreateFlight(ctx context.Context, f *model.Flight) error
	RecordSample(ctx context.Context, s *model.FlightSample) error
	CompleteFlight(ctx context.Context, id string, status model.FlightStatus, at time.Time) error
}

// Option configures a Session.
type Option func(*Session)

// WithSimulatorOptions passes options to the underlying simulator.
func WithSimulatorOptions(opts ...sim.Option) Option {
	return func(s *Session) { s.simOpts = append(s.simOpts, opts...) }
}

// WithInterval sets the wall-clock pacing. Zero runs unpaced.
func WithInterval(d time.Duration) Option {
	return func(s *Session) { s.interval = d }
}

// WithSink adds a sample consumer.
func WithSink(sink Sink) Option {
	return func(s *Session) { s.sinks = append(s.sinks, sink) }
}

// WithRecorder records the flight.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithTargets reads the initial targets from p and persists target changes through it.
func WithTargets(p config.Provider) Option {
	return func(s *Session) { s.targets = p }
}

// WithAutopilot enables or disables the autopilot. It is enabled by default.
func WithAutopilot(enabled bool) Option {
	return func(s *Session) { s.autopilotOn = enabled }
}

// WithJournal records events into j, typically shared by the sessions of one trip.
func WithJournal(j *Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is one flight of a plan. Run must be called once; Submit, ID and Plan are safe
// from any goroutine.
type Session struct {
	id       string
	plan     *flightplan.FlightPlan
	route    []model.Waypoint
	cfg      config.SessionConfig
	interval time.Duration
	simOpts  []sim.Option
	sinks    []Sink
	recorder Recorder
	targets  config.Provider
	journal  *Journal
	logger   *slog.Logger

	autopilotOn bool
	commands    chan Command
	submitMu    sync.Mutex // Only submitters send on commands
	started     atomic.Bool
	finished    atomic.Bool

	// Owned by the control goroutine.
	sim       *sim.Simulator
	ap        *autopilot.Autopilot
	vs        *sim.VerticalSpeedBuffer
	track     *geo.TrackBuffer
	stages    *sim.StageMachine
	step      int
	active    int
	targetAlt float64
	targetSpd float64

	mu   sync.Mutex
	last Sample
}

// New creates a session for plan.
func New(plan *flightplan.FlightPlan, cfg config.SessionConfig, opts ...Option) *Session {
	defaults := config.DefaultConfig().Autopilot
	s := &Session{
		id:          uuid.NewString(),
		plan:        plan,
		route:       plan.Route(),
		cfg:         cfg,
		autopilotOn: true,
		targetAlt:   defaults.TargetAltitude,
		targetSpd:   defaults.TargetSpeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.journal == nil {
		s.journal = NewJournal()
	}
	s.logger = s.logger.With("session", s.id)

	size := cfg.CommandBuffer
	if size <= 0 {
		size = 16
	}
	s.commands = make(chan Command, size)

	s.sim = sim.NewSimulator(plan, append([]sim.Option{sim.WithLogger(s.logger)}, s.simOpts...)...)
	s.ap = autopilot.New(plan, s.logger)
	s.vs = sim.NewVerticalSpeedBuffer(vsWindow)
	s.track = geo.NewTrackBuffer(trackWindow)
	s.stages = sim.NewStageMachine()
	return s
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Plan() *flightplan.FlightPlan { return s.plan }
func (s *Session) Journal() *Journal            { return s.journal }

// Last returns the most recent sample and whether one has been published.
func (s *Session) Last() (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last.SessionID != ""
}

// Submit posts commands without blocking; either all of them are queued or none is.
// They are applied before the next step. Once the flight has ended it returns ErrFinished.
func (s *Session) Submit(cmds ...Command) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	if s.finished.Load() {
		return ErrFinished
	}
	if free := cap(s.commands) - len(s.commands); len(cmds) > free {
		return fmt.Errorf("%w: %d commands, %d free", ErrQueueFull, len(cmds), free)
	}
	for _, cmd := range cmds {
		s.commands <- cmd
	}
	return nil
}

// Run flies the plan until the trajectory is exhausted or ctx is cancelled.
// A cancelled flight is recorded as aborted and ctx.Err() is returned.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrFinished
	}

	if s.targets != nil {
		s.targetAlt = s.targets.TargetAltitude(ctx)
		s.targetSpd = s.targets.TargetSpeed(ctx)
	}
	if s.autopilotOn {
		s.ap.Engage(s.sim.State())
		defer s.ap.Disengage()
	}
	s.active = 1

	s.event("departure", "Departed "+s.plan.Origin().Code, s.plan.String())

	err := s.sim.Run(ctx, s.interval, func(st *sim.AircraftState) {
		if s.step == 0 {
			s.begin(ctx)
		}
		s.onStep(ctx, st)
	})
	s.finished.Store(true)

	status := model.FlightCompleted
	if err != nil {
		status = model.FlightAborted
		s.event("aborted", "Flight aborted", err.Error())
	} else {
		s.event("arrival", "Arrived at "+s.plan.Destination().Code,
			fmt.Sprintf("%d steps, %s simulated", s.step, s.sim.Elapsed()))
		s.journal.CompleteLeg()
	}

	if s.recorder != nil && s.step > 0 {
		// The flight is closed even when ctx is already cancelled.
		if rerr := s.recorder.CompleteFlight(context.WithoutCancel(ctx), s.id, status, time.Now()); rerr != nil {
			s.logger.Warn("Failed to complete flight record", "error", rerr)
		}
	}
	return err
}

// begin records the flight once the simulator has built its trajectory.
func (s *Session) begin(ctx context.Context) {
	if s.recorder == nil {
		return
	}
	codes := make([]string, len(s.route))
	for i, wp := range s.route {
		codes[i] = wp.Code
	}
	traj := s.sim.Trajectory()
	f := &model.Flight{
		ID:           s.id,
		Origin:       s.plan.Origin().Code,
		Destination:  s.plan.Destination().Code,
		Route:        codes,
		PointsPerLeg: len(traj) / max(len(s.route)-1, 1),
		Trajectory:   traj,
		Status:       model.FlightActive,
		StartedAt:    time.Now(),
	}
	if err := s.recorder.CreateFlight(ctx, f); err != nil {
		s.logger.Warn("Failed to record flight", "error", err)
		s.recorder = nil
	}
}

func (s *Session) onStep(ctx context.Context, st *sim.AircraftState) {
	s.drainCommands(ctx)
	s.sequence(st.Position)

	if s.ap.Engaged() {
		if wp, ok := s.activeWaypoint(); ok {
			_ = s.ap.NavigateToWaypoint(wp)
		}
		_ = s.ap.MaintainAltitude(s.targetAlt)
		_ = s.ap.MaintainSpeed(s.targetSpd)
	}

	elapsed := s.sim.Elapsed()
	vs := s.vs.Update(elapsed, st.Altitude)
	track := s.track.Push(st.Position, st.Heading)
	prevStage := s.stages.Current()
	stage := s.stages.Update(vs, s.sim.Phase())
	if stage != prevStage {
		s.event("stage", sim.FormatStage(stage), fmt.Sprintf("%.0f ft", st.Altitude))
	}

	sample := Sample{
		SessionID:      s.id,
		Step:           s.step,
		Elapsed:        elapsed,
		State:          st.Snapshot(),
		Track:          track,
		Phase:          s.sim.Phase(),
		Stage:          stage,
		VerticalSpeed:  vs,
		TargetAltitude: s.targetAlt,
		TargetSpeed:    s.targetSpd,
	}
	if wp, ok := s.activeWaypoint(); ok {
		sample.ActiveWaypoint = wp.Code
	}

	s.mu.Lock()
	s.last = sample
	s.mu.Unlock()

	for _, sink := range s.sinks {
		sink.Publish(sample)
	}

	if s.recorder != nil {
		err := s.recorder.RecordSample(ctx, &model.FlightSample{
			FlightID:       s.id,
			Step:           sample.Step,
			Elapsed:        sample.Elapsed,
			Position:       sample.State.Position,
			Altitude:       sample.State.Altitude,
			Speed:          sample.State.Speed,
			Heading:        sample.State.Heading,
			VerticalSpeed:  sample.VerticalSpeed,
			Stage:          sample.Stage,
			ActiveWaypoint: sample.ActiveWaypoint,
		})
		if err != nil {
			s.logger.Warn("Failed to record sample", "step", s.step, "error", err)
		}
	}

	logging.Trace(s.logger, "Session step",
		"step", s.step,
		"stage", stage,
		"vs", fmt.Sprintf("%.0f", vs),
		"active", sample.ActiveWaypoint)
	s.step++
}

// sequence advances the active leg while the aircraft is within the capture radius of the
// active waypoint.
func (s *Session) sequence(pos geo.Point) {
	radius := s.cfg.CaptureRadius.Km()
	for s.active < len(s.route) {
		wp := s.route[s.active]
		if geo.Distance(pos, wp.Position) > radius {
			return
		}
		s.active++
		s.event("waypoint", "Passed "+wp.Code, "")
	}
}

func (s *Session) activeWaypoint() (model.Waypoint, bool) {
	if s.active < 1 || s.active >= len(s.route) {
		return model.Waypoint{}, false
	}
	return s.route[s.active], true
}

func (s *Session) drainCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(ctx, cmd)
		default:
			return
		}
	}
}

func (s *Session) apply(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case CmdSetAltitude:
		s.targetAlt = cmd.Value
		if s.targets != nil {
			if err := s.targets.SetTargetAltitude(ctx, cmd.Value); err != nil {
				s.logger.Warn("Failed to persist target altitude", "error", err)
			}
		}
	case CmdSetSpeed:
		s.targetSpd = cmd.Value
		if s.targets != nil {
			if err := s.targets.SetTargetSpeed(ctx, cmd.Value); err != nil {
				s.logger.Warn("Failed to persist target speed", "error", err)
			}
		}
	case CmdDirectTo:
		idx := -1
		for i := 1; i < len(s.route); i++ {
			if s.route[i].Code == cmd.Code {
				idx = i
				break
			}
		}
		if idx < 0 {
			s.logger.Warn("Direct-to rejected", "waypoint", cmd.Code, "error", flightplan.ErrUnknownWaypoint)
			return
		}
		if s.ap.Engaged() {
			if err := s.ap.DirectTo(cmd.Code); err != nil {
				s.logger.Warn("Direct-to failed", "waypoint", cmd.Code, "error", err)
				return
			}
		}
		s.active = idx
	default:
		s.logger.Warn("Unknown command", "type", cmd.Type)
		return
	}
	s.logger.Info("Command applied", "command", cmd.String())
}

func (s *Session) event(typ, title, summary string) {
	s.logger.Info(title, "event", typ)
	s.journal.AddEvent(&model.FlightEvent{
		Timestamp: time.Now(),
		Type:      typ,
		Title:     title,
		Summary:   summary,
	})
}
