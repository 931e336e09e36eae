package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsgo/pkg/autopilot"
	"fmsgo/pkg/config"
	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
	"fmsgo/pkg/sim"
)

var (
	gmmn = model.Waypoint{Name: "Mohammed V International Airport", Code: "GMMN", Position: geo.Point{Lat: 33.3675, Lon: -7.5898}}
	gmmx = model.Waypoint{Name: "Marrakech Menara Airport", Code: "GMMX", Position: geo.Point{Lat: 31.6069, Lon: -8.0364}}
	gmad = model.Waypoint{Name: "Agadir Al Massira Airport", Code: "GMAD", Position: geo.Point{Lat: 30.3753, Lon: -9.5478}}
)

// lowRandom always returns the lower bound.
type lowRandom struct{}

func (lowRandom) Uniform(min, _ float64) float64 { return min }

type fakeRecorder struct {
	flights   []*model.Flight
	samples   []*model.FlightSample
	completed map[string]model.FlightStatus
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{completed: make(map[string]model.FlightStatus)}
}

func (r *fakeRecorder) CreateFlight(ctx context.Context, f *model.Flight) error {
	r.flights = append(r.flights, f)
	return nil
}

func (r *fakeRecorder) RecordSample(ctx context.Context, s *model.FlightSample) error {
	r.samples = append(r.samples, s)
	return nil
}

func (r *fakeRecorder) CompleteFlight(ctx context.Context, id string, status model.FlightStatus, at time.Time) error {
	r.completed[id] = status
	return nil
}

type mapState map[string]string

func (m mapState) GetState(ctx context.Context, key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapState) SetState(ctx context.Context, key, val string) error {
	m[key] = val
	return nil
}

func (m mapState) DeleteState(ctx context.Context, key string) error {
	delete(m, key)
	return nil
}

func newSession(t *testing.T, opts ...Option) (*Session, *[]Sample) {
	t.Helper()
	plan, err := flightplan.New(gmmn, gmad, gmmx)
	require.NoError(t, err)

	var samples []Sample
	base := []Option{
		WithSimulatorOptions(sim.WithPointsPerLeg(10), sim.WithRandom(lowRandom{})),
		WithSink(SinkFunc(func(s Sample) { samples = append(samples, s) })),
	}
	return New(plan, config.DefaultConfig().Session, append(base, opts...)...), &samples
}

func TestSession_Run(t *testing.T) {
	rec := newFakeRecorder()
	s, samples := newSession(t, WithRecorder(rec))

	require.NoError(t, s.Run(context.Background()))

	got := *samples
	require.Len(t, got, 20)
	for i, smp := range got {
		assert.Equal(t, i, smp.Step)
		assert.Equal(t, s.ID(), smp.SessionID)
	}

	last := got[19]
	assert.Equal(t, sim.PhaseCompleted, last.Phase)
	assert.Equal(t, sim.StageArrived, last.Stage)
	assert.Equal(t, gmad.Position, last.State.Position)
	assert.Empty(t, last.ActiveWaypoint)
	assert.Equal(t, 20*time.Second, last.Elapsed)

	latest, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, last, latest)

	require.Len(t, rec.flights, 1)
	f := rec.flights[0]
	assert.Equal(t, s.ID(), f.ID)
	assert.Equal(t, []string{"GMMN", "GMMX", "GMAD"}, f.Route)
	assert.Equal(t, 10, f.PointsPerLeg)
	assert.Len(t, f.Trajectory, 20)
	assert.Len(t, rec.samples, 20)
	assert.Equal(t, model.FlightCompleted, rec.completed[s.ID()])

	events := s.Journal().Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "departure", events[0].Type)
	assert.Equal(t, "arrival", events[len(events)-1].Type)
	var passed []string
	for _, e := range events {
		if e.Type == "waypoint" {
			passed = append(passed, e.Title)
		}
	}
	assert.Equal(t, []string{"Passed GMMX", "Passed GMAD"}, passed)
	assert.Equal(t, 1, s.Journal().Legs())

	assert.ErrorIs(t, s.Run(context.Background()), ErrFinished)
}

func TestSession_LegSequencing(t *testing.T) {
	s, samples := newSession(t)
	require.NoError(t, s.Run(context.Background()))

	got := *samples
	// Index 9 is the end of the first leg, exactly on GMMX.
	assert.Equal(t, "GMMX", got[0].ActiveWaypoint)
	assert.Equal(t, "GMMX", got[8].ActiveWaypoint)
	assert.Equal(t, gmmx.Position, got[9].State.Position)
	assert.Equal(t, "GMAD", got[9].ActiveWaypoint)
	assert.Equal(t, "GMAD", got[18].ActiveWaypoint)
}

func TestSession_AutopilotControl(t *testing.T) {
	s, samples := newSession(t)
	require.NoError(t, s.Run(context.Background()))

	first := (*samples)[0]
	// Simulator climb of 50 ft, then one autopilot correction toward 10000 ft.
	assert.InDelta(t, sim.MinClimbPerStep+autopilot.ClimbRate/60, first.State.Altitude, 1e-9)
	assert.InDelta(t, sim.MinSpeed+autopilot.AccelerationRate/60, first.State.Speed, 1e-9)
	assert.InDelta(t, geo.Bearing(gmmn.Position, gmmx.Position), first.State.Heading, 1e-9)
	assert.Equal(t, 10000.0, first.TargetAltitude)
	assert.Equal(t, 300.0, first.TargetSpeed)
}

func TestSession_GroundTrack(t *testing.T) {
	s, samples := newSession(t)
	require.NoError(t, s.Run(context.Background()))

	got := *samples
	// A single position has no track; the heading stands in.
	assert.Equal(t, got[0].State.Heading, got[0].Track)
	assert.InDelta(t, geo.Bearing(got[0].State.Position, got[3].State.Position), got[3].Track, 1e-9)
	// The window slides past the first positions.
	assert.InDelta(t, geo.Bearing(got[10].State.Position, got[14].State.Position), got[14].Track, 1e-9)
}

func TestSession_AutopilotDisabled(t *testing.T) {
	s, samples := newSession(t, WithAutopilot(false))
	require.NoError(t, s.Run(context.Background()))

	first := (*samples)[0]
	assert.Equal(t, sim.MinClimbPerStep, first.State.Altitude)
	assert.Equal(t, sim.MinSpeed, first.State.Speed)
}

func TestSession_Commands(t *testing.T) {
	state := mapState{}
	provider := config.NewProvider(config.DefaultConfig(), state)
	s, samples := newSession(t, WithTargets(provider))

	require.NoError(t, s.Submit(SetAltitude(4000)))
	require.NoError(t, s.Submit(SetSpeed(180)))
	require.NoError(t, s.Submit(DirectTo("GMAD")))
	require.NoError(t, s.Submit(DirectTo("EGLL")))

	require.NoError(t, s.Run(context.Background()))

	first := (*samples)[0]
	assert.Equal(t, 4000.0, first.TargetAltitude)
	assert.Equal(t, 180.0, first.TargetSpeed)
	assert.Equal(t, "GMAD", first.ActiveWaypoint)
	assert.InDelta(t, geo.Bearing(gmmn.Position, gmad.Position), first.State.Heading, 1e-9)

	// Targets are persisted for the next session.
	assert.Equal(t, "4000", state[config.KeyTargetAltitude])
	assert.Equal(t, 180.0, provider.TargetSpeed(context.Background()))
}

func TestSession_TargetsFromProvider(t *testing.T) {
	state := mapState{config.KeyTargetAltitude: "6000"}
	s, samples := newSession(t, WithTargets(config.NewProvider(config.DefaultConfig(), state)))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 6000.0, (*samples)[0].TargetAltitude)
}

func TestSession_QueueFull(t *testing.T) {
	plan, err := flightplan.New(gmmn, gmad)
	require.NoError(t, err)
	cfg := config.DefaultConfig().Session
	cfg.CommandBuffer = 2
	s := New(plan, cfg)

	require.NoError(t, s.Submit(SetSpeed(200)))
	assert.ErrorIs(t, s.Submit(SetAltitude(9000), SetSpeed(210)), ErrQueueFull)
	assert.Len(t, s.commands, 1, "a rejected batch queues nothing")

	require.NoError(t, s.Submit(SetSpeed(220)))
	assert.ErrorIs(t, s.Submit(SetSpeed(230)), ErrQueueFull)
}

func TestSession_SubmitAfterFinish(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Run(context.Background()))

	assert.ErrorIs(t, s.Submit(SetAltitude(5000)), ErrFinished)
	assert.Empty(t, s.commands)
}

func TestSession_Cancelled(t *testing.T) {
	rec := newFakeRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, samples := newSession(t, WithRecorder(rec), WithSink(SinkFunc(func(smp Sample) {
		if smp.Step == 4 {
			cancel()
		}
	})))

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, *samples, 5)
	assert.Equal(t, model.FlightAborted, rec.completed[s.ID()])
	assert.Zero(t, s.Journal().Legs())
}

func TestSession_SharedJournal(t *testing.T) {
	j := NewJournal()
	first, _ := newSession(t, WithJournal(j))
	second, _ := newSession(t, WithJournal(j))

	require.NoError(t, first.Run(context.Background()))
	require.NoError(t, second.Run(context.Background()))

	assert.Same(t, j, second.Journal())
	assert.Equal(t, 2, j.Legs())
}
