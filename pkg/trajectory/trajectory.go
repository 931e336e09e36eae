// Package trajectory flattens a waypoint route into an ordered sequence of interpolated points.
package trajectory

import (
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
)

// DefaultPointsPerLeg is the number of points generated for each leg of a route.
const DefaultPointsPerLeg = 100

// Build interpolates every leg of route with pointsPerLeg points and concatenates the legs.
//
// Each leg includes both of its endpoints, so the waypoint shared by two consecutive legs appears
// twice in the output. A route of n >= 2 waypoints therefore yields exactly (n-1)*pointsPerLeg
// points. A single waypoint yields its own position and an empty route yields nothing.
// pointsPerLeg < 1 falls back to DefaultPointsPerLeg.
func Build(route []model.Waypoint, pointsPerLeg int) []geo.Point {
	if pointsPerLeg < 1 {
		pointsPerLeg = DefaultPointsPerLeg
	}

	switch len(route) {
	case 0:
		return nil
	case 1:
		return []geo.Point{route[0].Position}
	}

	points := make([]geo.Point, 0, (len(route)-1)*pointsPerLeg)
	for i := 0; i < len(route)-1; i++ {
		leg := geo.Interpolate(route[i].Position, route[i+1].Position, pointsPerLeg)
		points = append(points, leg...)
	}
	return points
}

// Length returns the summed great-circle distance along route in kilometers.
func Length(route []model.Waypoint) float64 {
	var total float64
	for i := 0; i < len(route)-1; i++ {
		total += geo.Distance(route[i].Position, route[i+1].Position)
	}
	return total
}
