// Command wpimport loads waypoints from a JSON, CSV or shapefile into the waypoint database,
// or exports the database as a point shapefile.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"fmsgo/pkg/config"
	"fmsgo/pkg/db"
	"fmsgo/pkg/db/maintenance"
	"fmsgo/pkg/export"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
	"fmsgo/pkg/store"
	"fmsgo/pkg/waypoint"
)

func main() {
	configPath := flag.String("config", "configs/fmsgo.yaml", "Path to the config file")
	inputPath := flag.String("input", "", "Waypoint file to import (.json, .csv or .shp)")
	exportPath := flag.String("export", "", "Write all waypoints to this .shp file")
	flag.Parse()

	if *inputPath == "" && *exportPath == "" {
		flag.Usage()
		log.Fatal("An input or export path is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := run(context.Background(), cfg, *inputPath, *exportPath); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, inputPath, exportPath string) error {
	d, err := db.Init(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	st := store.NewSQLiteStore(d)
	defer st.Close()

	region := geo.DefaultRegion()
	if cfg.Waypoints.RegionFile != "" {
		if region, err = geo.LoadRegion(cfg.Waypoints.RegionFile); err != nil {
			return err
		}
	}
	mgr, err := waypoint.NewManager(st, region, cfg.Waypoints, nil)
	if err != nil {
		return err
	}

	if inputPath != "" {
		wps, err := readWaypoints(inputPath)
		if err != nil {
			return err
		}
		added, skipped, err := mgr.Import(ctx, wps)
		if err != nil {
			return fmt.Errorf("import failed after %d waypoints: %w", added, err)
		}
		fmt.Printf("Imported %d waypoints from %s (%d skipped)\n", added, inputPath, skipped)
	}

	if exportPath != "" {
		wps, err := mgr.All(ctx)
		if err != nil {
			return err
		}
		if err := export.WriteWaypointsShapefile(exportPath, wps); err != nil {
			return fmt.Errorf("failed to export waypoints: %w", err)
		}
		fmt.Printf("Exported %d waypoints to %s\n", len(wps), exportPath)
	}
	return nil
}

func readWaypoints(path string) ([]model.Waypoint, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return export.ReadWaypointsShapefile(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return maintenance.ReadCSV(f)
	case ".json":
		return waypoint.ReadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported waypoint file %s", path)
	}
}
