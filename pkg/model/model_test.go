package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsgo/pkg/geo"
)

func TestWaypoint_UnmarshalDatabaseLayout(t *testing.T) {
	data := []byte(`[
		{"name": "Casablanca VOR", "icao_code": "CAS", "latitude": 33.365, "longitude": -7.586, "type": "VOR"},
		{"name": "Marrakech Menara Airport", "icao_code": "GMMX", "latitude": 31.6069, "longitude": -8.0364, "type": "airport", "elevation": 240}
	]`)

	var wps []Waypoint
	require.NoError(t, json.Unmarshal(data, &wps))
	require.Len(t, wps, 2)

	assert.Equal(t, "CAS", wps[0].Code)
	assert.Equal(t, geo.Point{Lat: 33.365, Lon: -7.586}, wps[0].Position)
	assert.Zero(t, wps[0].Elevation, "elevation defaults to 0")
	assert.Equal(t, "airport", wps[1].Category)
	assert.Equal(t, 240.0, wps[1].Elevation)
}

func TestWaypoint_MarshalIsFlat(t *testing.T) {
	wp := Waypoint{
		Name:     "Agadir Al Massira Airport",
		Code:     "GMAD",
		Position: geo.Point{Lat: 30.3753, Lon: -9.5478},
		Category: "airport",
	}

	data, err := json.Marshal(wp)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "GMAD", raw["icao_code"])
	assert.Equal(t, 30.3753, raw["latitude"])
	assert.Equal(t, -9.5478, raw["longitude"])
	assert.NotContains(t, raw, "Position")
}

func TestFlightSample_JSON(t *testing.T) {
	s := FlightSample{
		FlightID: "f1",
		Step:     3,
		Position: geo.Point{Lat: 33.3675, Lon: -7.5898},
		Altitude: 1200,
		Stage:    "climb",
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "climb", raw["stage"])
	assert.Equal(t, map[string]any{"lat": 33.3675, "lon": -7.5898}, raw["position"])
}
