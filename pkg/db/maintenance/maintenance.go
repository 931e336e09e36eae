// Package maintenance runs startup housekeeping on the database.
package maintenance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"fmsgo/pkg/config"
	"fmsgo/pkg/db"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
	"fmsgo/pkg/store"
)

// Importer adds waypoints to the waypoint database.
type Importer interface {
	Import(ctx context.Context, wps []model.Waypoint) (added, skipped int, err error)
}

// Run executes all maintenance tasks: waypoint import and flight pruning.
// Failures are logged and never stop startup. It blocks until completion.
func Run(ctx context.Context, st store.StateStore, imp Importer, d *db.DB, csvPath string, retention time.Duration) error {
	slog.Info("Starting database maintenance...")

	if err := importWaypoints(ctx, st, imp, csvPath); err != nil {
		slog.Error("Waypoint import failed", "error", err)
	} else {
		slog.Info("Waypoint import check completed")
	}

	if retention > 0 {
		n, err := d.PruneFlights(retention)
		if err != nil {
			slog.Error("Flight pruning failed", "error", err)
		} else {
			slog.Info("Flight pruning completed", "removed", n)
		}
	}

	return nil
}

// importWaypoints imports a CSV master file when its modification time changed since the last import.
func importWaypoints(ctx context.Context, st store.StateStore, imp Importer, csvPath string) error {
	if csvPath == "" {
		return nil
	}
	info, err := os.Stat(csvPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat csv: %w", err)
	}

	fileMTime := info.ModTime().UTC().Format(time.RFC3339)

	storedMTime, found := st.GetState(ctx, config.KeyImportMTime)
	if found && storedMTime == fileMTime {
		return nil // Up to date
	}

	slog.Info("Importing waypoints from CSV...", "path", csvPath)

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	wps, err := ReadCSV(f)
	if err != nil {
		return err
	}

	added, skipped, err := imp.Import(ctx, wps)
	if err != nil {
		return fmt.Errorf("failed to import waypoints: %w", err)
	}
	slog.Info("Imported waypoints", "added", added, "skipped", skipped)

	if err := st.SetState(ctx, config.KeyImportMTime, fileMTime); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	return nil
}

// ReadCSV parses a waypoint master file.
// Headers: Type,Name,Ident,Latitude,Longitude,Elevation. Column order is free and a UTF-8 BOM is tolerated.
// Rows without coordinates are dropped.
func ReadCSV(r io.Reader) ([]model.Waypoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	idxMap := make(map[string]int)
	for i, h := range headers {
		idxMap[strings.TrimSpace(h)] = i
	}
	slog.Debug("CSV Header Map", "idxMap", idxMap)

	get := func(row []string, col string) string {
		if i, ok := idxMap[col]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var wps []model.Waypoint
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read error: %w", err)
		}

		lat, errLat := strconv.ParseFloat(get(record, "Latitude"), 64)
		lon, errLon := strconv.ParseFloat(get(record, "Longitude"), 64)
		if errLat != nil || errLon != nil {
			slog.Debug("Skipping CSV row without coordinates", "line", line)
			continue
		}

		wp := model.Waypoint{
			Name:     get(record, "Name"),
			Code:     get(record, "Ident"),
			Position: geo.Point{Lat: lat, Lon: lon},
			Category: strings.ToLower(get(record, "Type")),
		}
		if elev, err := strconv.ParseFloat(get(record, "Elevation"), 64); err == nil {
			wp.Elevation = elev
		}
		wps = append(wps, wp)
	}
	return wps, nil
}
