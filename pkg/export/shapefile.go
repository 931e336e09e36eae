package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"

	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
)

// ErrEmptyTrajectory is returned when there is nothing to write.
var ErrEmptyTrajectory = errors.New("empty trajectory")

// Waypoint shapefile attribute names.
const (
	FieldName = "NAME"
	FieldCode = "CODE"
	FieldType = "TYPE"
	FieldElev = "ELEV"
)

// WriteShapefile writes trajectory as a single PolyLine record to path (.shp, .shx and .dbf).
// The record carries the route and its length in km.
func WriteShapefile(path string, plan *flightplan.FlightPlan, trajectory []geo.Point) error {
	if len(trajectory) == 0 {
		return ErrEmptyTrajectory
	}

	w, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	defer w.Close()

	fields := []shp.Field{
		shp.StringField("ROUTE", 254),
		shp.FloatField("DIST_KM", 12, 3),
		shp.NumberField("POINTS", 10),
	}
	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("failed to set shapefile fields: %w", err)
	}

	part := make([]shp.Point, len(trajectory))
	for i, p := range trajectory {
		part[i] = shp.Point{X: p.Lon, Y: p.Lat}
	}
	row := int(w.Write(shp.NewPolyLine([][]shp.Point{part})))

	route := plan.String()
	if len(route) > 254 {
		route = route[:254]
	}
	attrs := []any{route, plan.TotalDistance(), len(trajectory)}
	for i, v := range attrs {
		if err := w.WriteAttribute(row, i, v); err != nil {
			return fmt.Errorf("failed to write attribute %s: %w", fields[i], err)
		}
	}
	return nil
}

// WriteWaypointsShapefile writes wps as Point records with NAME, CODE, TYPE and ELEV attributes.
func WriteWaypointsShapefile(path string, wps []model.Waypoint) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{
		shp.StringField(FieldName, 80),
		shp.StringField(FieldCode, 16),
		shp.StringField(FieldType, 16),
		shp.FloatField(FieldElev, 10, 1),
	}); err != nil {
		return fmt.Errorf("failed to set shapefile fields: %w", err)
	}

	for _, wp := range wps {
		row := int(w.Write(&shp.Point{X: wp.Position.Lon, Y: wp.Position.Lat}))
		for i, v := range []any{wp.Name, wp.Code, wp.Category, wp.Elevation} {
			if err := w.WriteAttribute(row, i, v); err != nil {
				return fmt.Errorf("failed to write waypoint %s: %w", wp.Code, err)
			}
		}
	}
	return nil
}

// ReadWaypointsShapefile reads Point records into waypoints. Attribute names are matched
// case-insensitively; records without a CODE are skipped.
func ReadWaypointsShapefile(path string) ([]model.Waypoint, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer shape.Close()

	idx := make(map[string]int)
	for i, f := range shape.Fields() {
		idx[strings.ToUpper(f.String())] = i
	}
	attr := func(row int, name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return strings.Trim(shape.ReadAttribute(row, i), " \x00")
	}

	var wps []model.Waypoint
	for shape.Next() {
		n, p := shape.Shape()

		pt, ok := p.(*shp.Point)
		if !ok {
			continue
		}
		wp := model.Waypoint{
			Name:     attr(n, FieldName),
			Code:     attr(n, FieldCode),
			Position: geo.Point{Lat: pt.Y, Lon: pt.X},
			Category: attr(n, FieldType),
		}
		if wp.Code == "" {
			continue
		}
		if elev, err := strconv.ParseFloat(attr(n, FieldElev), 64); err == nil {
			wp.Elevation = elev
		}
		wps = append(wps, wp)
	}

	if err := shape.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shapes: %w", err)
	}
	return wps, nil
}
