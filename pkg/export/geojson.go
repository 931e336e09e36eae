// Package export writes flight plans and trajectories to GeoJSON and shapefiles and reads
// waypoint shapefiles.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
)

// GeoJSON builds a feature collection with one Point feature per route waypoint and, when
// trajectory is not empty, a LineString feature for the trajectory.
func GeoJSON(plan *flightplan.FlightPlan, trajectory []geo.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	route := plan.Route()
	for i, wp := range route {
		f := geojson.NewFeature(wp.Position.Orb())
		f.Properties["kind"] = "waypoint"
		f.Properties["seq"] = i
		f.Properties["code"] = wp.Code
		f.Properties["name"] = wp.Name
		if wp.Category != "" {
			f.Properties["type"] = wp.Category
		}
		fc.Append(f)
	}

	if len(trajectory) > 0 {
		line := make(orb.LineString, len(trajectory))
		for i, p := range trajectory {
			line[i] = p.Orb()
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "trajectory"
		f.Properties["route"] = plan.String()
		f.Properties["points"] = len(trajectory)
		f.Properties["distance_km"] = plan.TotalDistance()
		fc.Append(f)
	}

	return fc
}

// WriteGeoJSON writes fc as indented JSON.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}
