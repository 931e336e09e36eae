package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
	"fmsgo/pkg/waypoint"
)

const (
	defaultNearestLimit = 5
	maxNearestLimit     = 100
)

// WaypointSource is the read side of the waypoint database.
type WaypointSource interface {
	All(ctx context.Context) ([]model.Waypoint, error)
	GetByCode(ctx context.Context, code string) (*model.Waypoint, error)
	Nearest(ctx context.Context, p geo.Point, limit int) ([]waypoint.Neighbor, error)
}

// WaypointHandler handles waypoint lookups.
type WaypointHandler struct {
	source WaypointSource
}

func NewWaypointHandler(src WaypointSource) *WaypointHandler {
	return &WaypointHandler{source: src}
}

// HandleList returns every waypoint.
// GET /api/waypoints
func (h *WaypointHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	wps, err := h.source.All(r.Context())
	if err != nil {
		slog.Error("Failed to list waypoints", "error", err)
		http.Error(w, "failed to list waypoints", http.StatusInternalServerError)
		return
	}
	if wps == nil {
		wps = []model.Waypoint{}
	}
	writeJSON(w, http.StatusOK, wps)
}

// HandleGet returns one waypoint by code.
// GET /api/waypoints/{code}
func (h *WaypointHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("code"))
	wp, err := h.source.GetByCode(r.Context(), code)
	if err != nil {
		slog.Error("Failed to get waypoint", "code", code, "error", err)
		http.Error(w, "failed to get waypoint", http.StatusInternalServerError)
		return
	}
	if wp == nil {
		http.Error(w, "waypoint not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, wp)
}

// HandleNearest returns the waypoints closest to a position.
// GET /api/waypoints/nearest?lat=<deg>&lon=<deg>&limit=<n>
func (h *WaypointHandler) HandleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		http.Error(w, "invalid lat", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		http.Error(w, "invalid lon", http.StatusBadRequest)
		return
	}
	limit := defaultNearestLimit
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}
	limit = min(limit, maxNearestLimit)

	out, err := h.source.Nearest(r.Context(), geo.Point{Lat: lat, Lon: lon}, limit)
	if err != nil {
		slog.Error("Nearest waypoint query failed", "error", err)
		http.Error(w, "nearest query failed", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []waypoint.Neighbor{}
	}
	writeJSON(w, http.StatusOK, out)
}
