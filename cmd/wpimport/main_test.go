package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsgo/pkg/config"
	"fmsgo/pkg/export"
)

func TestRun_ImportAndExport(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DB.Path = filepath.Join(dir, "wp.db")
	ctx := context.Background()

	csvPath := filepath.Join(dir, "wps.csv")
	csv := "Type,Name,Ident,Latitude,Longitude,Elevation\n" +
		"Airport,Fes Saiss,GMFF,33.9273,-4.9779,579\n" +
		"Airport,Paris Charles de Gaulle,LFPG,49.0097,2.5479,119\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))

	jsonPath := filepath.Join(dir, "wps.json")
	js := `[{"name":"Tangier Ibn Battouta","icao_code":"GMTT","latitude":35.7269,"longitude":-5.9169,"type":"airport","elevation":19}]`
	require.NoError(t, os.WriteFile(jsonPath, []byte(js), 0o644))

	require.NoError(t, run(ctx, cfg, csvPath, ""))
	require.NoError(t, run(ctx, cfg, jsonPath, ""))

	shpPath := filepath.Join(dir, "all.shp")
	require.NoError(t, run(ctx, cfg, "", shpPath))

	wps, err := export.ReadWaypointsShapefile(shpPath)
	require.NoError(t, err)
	codes := make([]string, len(wps))
	for i, wp := range wps {
		codes[i] = wp.Code
	}
	assert.ElementsMatch(t, []string{"GMFF", "GMTT"}, codes)

	// A shapefile round-trips into a fresh database.
	cfg.DB.Path = filepath.Join(dir, "copy.db")
	require.NoError(t, run(ctx, cfg, shpPath, ""))
}

func TestReadWaypoints_Unsupported(t *testing.T) {
	_, err := readWaypoints("waypoints.txt")
	assert.Error(t, err)
}
