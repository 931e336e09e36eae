package waypoint

import (
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
)

// DefaultWaypoints is the initial database content.
func DefaultWaypoints() []model.Waypoint {
	return []model.Waypoint{
		{Name: "Casablanca VOR", Code: "CAS", Position: geo.Point{Lat: 33.365, Lon: -7.586}, Category: "VOR"},
		{Name: "Mohammed V International Airport", Code: "GMMN", Position: geo.Point{Lat: 33.3675, Lon: -7.5898}, Category: "airport", Elevation: 200},
		{Name: "Marrakech Menara Airport", Code: "GMMX", Position: geo.Point{Lat: 31.6069, Lon: -8.0364}, Category: "airport", Elevation: 466},
		{Name: "Agadir Al Massira Airport", Code: "GMAD", Position: geo.Point{Lat: 30.3753, Lon: -9.5478}, Category: "airport", Elevation: 77},
	}
}
