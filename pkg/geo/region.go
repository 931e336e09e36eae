package geo

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Region is a named geographic area waypoints must fall inside.
// Bound is always checked; Geometry, when set, refines the check to a polygon.
type Region struct {
	Name     string
	Bound    orb.Bound
	Geometry orb.Geometry
}

// DefaultRegion returns the approximate bounding box of Morocco
// (latitude 21.4 to 36.0 N, longitude 17.0 to 1.0 W).
func DefaultRegion() Region {
	return Region{
		Name: "Morocco",
		Bound: orb.Bound{
			Min: orb.Point{-17.0, 21.4},
			Max: orb.Point{-1.0, 36.0},
		},
	}
}

// Contains reports whether p lies inside the region. Edges are inclusive.
func (r Region) Contains(p Point) bool {
	op := p.Orb()
	if !r.Bound.Contains(op) {
		return false
	}
	if r.Geometry == nil {
		return true
	}
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, op)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, op)
	}
	return false
}

// LoadRegion reads a GeoJSON file and builds a region from its first polygonal feature.
func LoadRegion(path string) (Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Region{}, fmt.Errorf("failed to read region geojson %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Region{}, fmt.Errorf("failed to parse region geojson %s: %w", path, err)
	}

	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		name, _ := f.Properties["name"].(string)
		if name == "" {
			name = path
		}
		return Region{
			Name:     name,
			Bound:    f.Geometry.Bound(),
			Geometry: f.Geometry,
		}, nil
	}

	return Region{}, fmt.Errorf("no polygon feature in %s", path)
}
