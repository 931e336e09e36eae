package model

import (
	"encoding/json"

	"fmsgo/pkg/geo"
)

// Waypoint is a named geographic fix. Code is its unique identifier.
type Waypoint struct {
	Name      string
	Code      string
	Position  geo.Point
	Category  string  // e.g. "airport", "VOR"
	Elevation float64 // Meters
}

// waypointJSON is the flat on-disk layout of the waypoint database file.
type waypointJSON struct {
	Name      string  `json:"name"`
	Code      string  `json:"icao_code"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Category  string  `json:"type"`
	Elevation float64 `json:"elevation"`
}

// MarshalJSON implements json.Marshaler.
func (w Waypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(waypointJSON{
		Name:      w.Name,
		Code:      w.Code,
		Latitude:  w.Position.Lat,
		Longitude: w.Position.Lon,
		Category:  w.Category,
		Elevation: w.Elevation,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *Waypoint) UnmarshalJSON(data []byte) error {
	var raw waypointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = Waypoint{
		Name:      raw.Name,
		Code:      raw.Code,
		Position:  geo.Point{Lat: raw.Latitude, Lon: raw.Longitude},
		Category:  raw.Category,
		Elevation: raw.Elevation,
	}
	return nil
}
