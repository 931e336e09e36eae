package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegion_Contains(t *testing.T) {
	r := DefaultRegion()

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"Casablanca", casablanca, true},
		{"Agadir", agadir, true},
		{"Null Island", Point{Lat: 0, Lon: 0}, false},
		{"Madrid", Point{Lat: 40.4168, Lon: -3.7038}, false},
		{"South-west corner inclusive", Point{Lat: 21.4, Lon: -17.0}, true},
		{"North-east corner inclusive", Point{Lat: 36.0, Lon: -1.0}, true},
		{"Just east of bound", Point{Lat: 30, Lon: -0.99}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.p))
		})
	}
}

func TestLoadRegion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "region.geojson")

	// Triangle with a bounding box that also covers points outside the polygon.
	data := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"name":"Marker"},"geometry":{"type":"Point","coordinates":[0,0]}},
		{"type":"Feature","properties":{"name":"Triangle"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[0,10],[0,0]]]}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	r, err := LoadRegion(path)
	require.NoError(t, err)

	assert.Equal(t, "Triangle", r.Name)
	assert.True(t, r.Contains(Point{Lat: 1, Lon: 1}))
	assert.False(t, r.Contains(Point{Lat: 9, Lon: 9}), "inside bound but outside polygon")
	assert.False(t, r.Contains(Point{Lat: 20, Lon: 1}))
}

func TestLoadRegion_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRegion(filepath.Join(dir, "missing.geojson"))
	assert.Error(t, err)

	noPoly := filepath.Join(dir, "points.geojson")
	require.NoError(t, os.WriteFile(noPoly, []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0,0]}}]}`), 0o644))
	_, err = LoadRegion(noPoly)
	assert.Error(t, err)
}
