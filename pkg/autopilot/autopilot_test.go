package autopilot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
	"fmsgo/pkg/sim"
)

var (
	gmmn = model.Waypoint{Code: "GMMN", Position: geo.Point{Lat: 33.3675, Lon: -7.5898}}
	gmmx = model.Waypoint{Code: "GMMX", Position: geo.Point{Lat: 31.6069, Lon: -8.0364}}
	gmad = model.Waypoint{Code: "GMAD", Position: geo.Point{Lat: 30.3753, Lon: -9.5478}}
)

func engaged(t *testing.T, st *sim.AircraftState) *Autopilot {
	t.Helper()
	plan, err := flightplan.New(gmmn, gmad, gmmx)
	require.NoError(t, err)
	ap := New(plan, nil)
	ap.Engage(st)
	return ap
}

func TestAutopilot_NotEngaged(t *testing.T) {
	ap := New(nil, nil)
	assert.False(t, ap.Engaged())

	assert.ErrorIs(t, ap.NavigateToWaypoint(gmad), ErrNotEngaged)
	assert.ErrorIs(t, ap.MaintainAltitude(10000), ErrNotEngaged)
	assert.ErrorIs(t, ap.MaintainSpeed(300), ErrNotEngaged)
	assert.ErrorIs(t, ap.DirectTo("GMAD"), ErrNotEngaged)
}

func TestAutopilot_EngageDisengage(t *testing.T) {
	st := sim.NewAircraftState(gmmn)
	ap := engaged(t, st)
	assert.True(t, ap.Engaged())

	ap.Disengage()
	assert.False(t, ap.Engaged())
	assert.ErrorIs(t, ap.MaintainAltitude(10000), ErrNotEngaged)

	// Disengaging twice is harmless.
	ap.Disengage()
}

func TestAutopilot_EngageNil(t *testing.T) {
	ap := engaged(t, sim.NewAircraftState(gmmn))

	assert.NotPanics(t, func() { ap.Engage(nil) })
	assert.False(t, ap.Engaged())
	assert.ErrorIs(t, ap.MaintainSpeed(250), ErrNotEngaged)
}

func TestAutopilot_MaintainAltitude(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		want    float64
	}{
		{"Climb", 9000, 10000, 9000 + 500.0/60},
		{"Descend", 11000, 10000, 11000 - 500.0/60},
		{"Within tolerance above", 10050, 10000, 10050},
		{"Within tolerance below", 9950, 10000, 9950},
		{"Exactly at tolerance", 9900, 10000, 9900},
		{"Just outside tolerance", 9899, 10000, 9899 + 500.0/60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &sim.AircraftState{Altitude: tt.current}
			ap := engaged(t, st)

			require.NoError(t, ap.MaintainAltitude(tt.target))
			assert.Equal(t, tt.want, st.Altitude)
		})
	}
}

func TestAutopilot_MaintainAltitudeConverges(t *testing.T) {
	st := &sim.AircraftState{Altitude: 0}
	ap := engaged(t, st)

	for i := 0; i < 10000; i++ {
		require.NoError(t, ap.MaintainAltitude(5000))
	}
	assert.InDelta(t, 5000, st.Altitude, AltitudeTolerance)
}

func TestAutopilot_MaintainSpeed(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		want    float64
	}{
		{"Accelerate", 250, 300, 250 + 50.0/60},
		{"Decelerate", 350, 300, 350 - 50.0/60},
		{"Within tolerance", 305, 300, 305},
		{"Exactly at tolerance", 290, 300, 290},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &sim.AircraftState{Speed: tt.current}
			ap := engaged(t, st)

			require.NoError(t, ap.MaintainSpeed(tt.target))
			assert.Equal(t, tt.want, st.Speed)
		})
	}
}

func TestAutopilot_NavigateToWaypoint(t *testing.T) {
	st := sim.NewAircraftState(gmmn)
	st.Heading = 10
	ap := engaged(t, st)

	require.NoError(t, ap.NavigateToWaypoint(gmad))
	assert.InDelta(t, geo.Bearing(gmmn.Position, gmad.Position), st.Heading, 1e-9)
	assert.Equal(t, gmmn.Position, st.Position, "navigation only changes heading")

	// Waypoint at the current position: bearing of identical points.
	require.NoError(t, ap.NavigateToWaypoint(gmmn))
	assert.Zero(t, st.Heading)
}

func TestAutopilot_DirectTo(t *testing.T) {
	st := sim.NewAircraftState(gmmn)
	ap := engaged(t, st)

	require.NoError(t, ap.DirectTo("GMMX"))
	assert.InDelta(t, geo.Bearing(gmmn.Position, gmmx.Position), st.Heading, 1e-9)

	err := ap.DirectTo("LFPG")
	assert.ErrorIs(t, err, flightplan.ErrUnknownWaypoint)

	noPlan := New(nil, nil)
	noPlan.Engage(st)
	assert.ErrorIs(t, noPlan.DirectTo("GMMX"), flightplan.ErrUnknownWaypoint)
}

func TestAutopilot_InterleavedWithSimulator(t *testing.T) {
	plan, err := flightplan.New(gmmn, gmad)
	require.NoError(t, err)

	s := sim.NewSimulator(plan, sim.WithPointsPerLeg(10), sim.WithRandom(sim.NewPCGRandom(3)))
	ap := New(plan, nil)
	ap.Engage(s.State())

	require.NoError(t, s.Start())
	for s.IsRunning() {
		st, ok := s.Advance(1)
		require.True(t, ok)
		simSpeed := st.Speed

		require.NoError(t, ap.MaintainSpeed(simSpeed+100))
		assert.Equal(t, simSpeed+50.0/60, st.Speed, "autopilot writes after the simulator")
	}
}
