package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsgo/pkg/db"
	"fmsgo/pkg/model"
	"fmsgo/pkg/session"
	"fmsgo/pkg/store"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := `
server:
    enabled: true
    address: localhost:0 # 0 lets OS choose free port
log:
    server:
        path: "` + filepath.ToSlash(filepath.Join(dir, "server.log")) + `"
        level: "debug"
    requests:
        path: "` + filepath.ToSlash(filepath.Join(dir, "requests.log")) + `"
        level: "info"
    events:
        path: "` + filepath.ToSlash(filepath.Join(dir, "events.log")) + `"
db:
    path: "` + filepath.ToSlash(filepath.Join(dir, "fmsgo.db")) + `"
sim:
    points_per_leg: 5
    step_interval: 0s
    seed: 42
waypoints:
    import_file: ""
`
	path := filepath.Join(dir, "fmsgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	fl := flightFlags{
		origin:      "gmmn",
		destination: "GMAD",
		via:         []string{"GMMX"},
		geojsonPath: filepath.Join(dir, "flight.geojson"),
		shpPath:     filepath.Join(dir, "flight.shp"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, configPath, fl))

	assert.FileExists(t, fl.geojsonPath)
	assert.FileExists(t, fl.shpPath)
	assert.FileExists(t, filepath.Join(dir, "events.log"))

	d, err := db.Init(filepath.Join(dir, "fmsgo.db"))
	require.NoError(t, err)
	st := store.NewSQLiteStore(d)
	defer st.Close()

	flights, err := st.ListFlights(ctx, 10)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, model.FlightCompleted, flights[0].Status)
	assert.Equal(t, []string{"GMMN", "GMMX", "GMAD"}, flights[0].Route)

	samples, err := st.ListSamples(ctx, flights[0].ID)
	require.NoError(t, err)
	assert.Len(t, samples, 10)

	_, ok := st.GetState(ctx, session.JournalStateKey)
	assert.True(t, ok, "trip journal persisted")
}

func TestRun_UnknownWaypoint(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	err := run(context.Background(), configPath, flightFlags{origin: "GMMN", destination: "ZZZZ"})
	assert.Error(t, err)
}

func TestSplitCodes(t *testing.T) {
	assert.Equal(t, []string{"GMMX", "CAS"}, splitCodes(" gmmx, ,CAS,"))
	assert.Nil(t, splitCodes(""))
}
