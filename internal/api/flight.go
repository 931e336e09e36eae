package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fmsgo/pkg/export"
	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/model"
	"fmsgo/pkg/session"
	"fmsgo/pkg/trajectory"
)

// defaultETESpeed is the ground speed in knots used when the request does not give one.
const defaultETESpeed = 450.0

// ActiveSession is the flight the handler controls.
type ActiveSession interface {
	ID() string
	Plan() *flightplan.FlightPlan
	Submit(cmds ...session.Command) error
}

// FlightHandler serves the active flight plan and accepts autopilot commands.
type FlightHandler struct {
	session      ActiveSession
	pointsPerLeg int
}

// NewFlightHandler creates a new FlightHandler. Returns nil without a session.
func NewFlightHandler(s ActiveSession, pointsPerLeg int) *FlightHandler {
	if s == nil {
		return nil
	}
	return &FlightHandler{session: s, pointsPerLeg: pointsPerLeg}
}

// FlightPlanResponse describes the active plan.
type FlightPlanResponse struct {
	SessionID       string           `json:"session_id"`
	Route           []model.Waypoint `json:"route"`
	TotalDistanceKm float64          `json:"total_distance_km"`
	Speed           float64          `json:"speed"`
	ETESeconds      float64          `json:"ete_seconds"`
	ETE             string           `json:"ete"`
}

// HandlePlan returns the route with its distance and time en route.
// GET /api/flightplan?speed=<knots>
func (h *FlightHandler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	speed := defaultETESpeed
	if v := r.URL.Query().Get("speed"); v != "" {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "invalid speed", http.StatusBadRequest)
			return
		}
		speed = s
	}

	plan := h.session.Plan()
	ete := plan.EstimatedTimeEnRoute(speed)
	writeJSON(w, http.StatusOK, FlightPlanResponse{
		SessionID:       h.session.ID(),
		Route:           plan.Route(),
		TotalDistanceKm: plan.TotalDistance(),
		Speed:           speed,
		ETESeconds:      ete.Seconds(),
		ETE:             ete.String(),
	})
}

// HandleGeoJSON returns the route and its trajectory as a GeoJSON FeatureCollection.
// GET /api/flightplan/geojson
func (h *FlightHandler) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	plan := h.session.Plan()
	fc := export.GeoJSON(plan, trajectory.Build(plan.Route(), h.pointsPerLeg))

	w.Header().Set("Content-Type", "application/geo+json")
	if err := export.WriteGeoJSON(w, fc); err != nil {
		slog.Error("Failed to encode flight plan geojson", "error", err)
	}
}

// AutopilotRequest carries optional new targets. At least one field must be set.
type AutopilotRequest struct {
	Altitude *float64 `json:"altitude,omitempty"` // Feet
	Speed    *float64 `json:"speed,omitempty"`    // Knots
	DirectTo string   `json:"direct_to,omitempty"`
}

func (req AutopilotRequest) commands() []session.Command {
	var cmds []session.Command
	if req.Altitude != nil {
		cmds = append(cmds, session.SetAltitude(*req.Altitude))
	}
	if req.Speed != nil {
		cmds = append(cmds, session.SetSpeed(*req.Speed))
	}
	if req.DirectTo != "" {
		cmds = append(cmds, session.DirectTo(req.DirectTo))
	}
	return cmds
}

// HandleAutopilot queues commands for the running session. A request is applied whole or not at all.
// POST /api/autopilot
func (h *FlightHandler) HandleAutopilot(w http.ResponseWriter, r *http.Request) {
	var req AutopilotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmds := req.commands()
	if len(cmds) == 0 {
		http.Error(w, "no autopilot target given", http.StatusBadRequest)
		return
	}

	if err := h.session.Submit(cmds...); err != nil {
		switch {
		case errors.Is(err, session.ErrQueueFull):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case errors.Is(err, session.ErrFinished):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	queued := make([]string, len(cmds))
	for i, cmd := range cmds {
		queued[i] = cmd.String()
	}
	slog.Info("Autopilot commands queued", "session", h.session.ID(), "commands", queued)
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": queued})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
