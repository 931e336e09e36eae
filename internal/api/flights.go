package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"fmsgo/pkg/model"
	"fmsgo/pkg/store"
)

// FlightsHandler serves recorded flights.
type FlightsHandler struct {
	store store.FlightStore
}

// NewFlightsHandler creates a new FlightsHandler. Returns nil without a store.
func NewFlightsHandler(st store.FlightStore) *FlightsHandler {
	if st == nil {
		return nil
	}
	return &FlightsHandler{store: st}
}

// HandleList returns the most recent flights without their trajectories.
// GET /api/flights?limit=<n>
func (h *FlightsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	flights, err := h.store.ListFlights(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list flights", "error", err)
		http.Error(w, "failed to list flights", http.StatusInternalServerError)
		return
	}
	if flights == nil {
		flights = []*model.Flight{}
	}
	writeJSON(w, http.StatusOK, flights)
}

// HandleGet returns one flight with its trajectory.
// GET /api/flights/{id}
func (h *FlightsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f, err := h.store.GetFlight(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get flight", "id", id, "error", err)
		http.Error(w, "failed to get flight", http.StatusInternalServerError)
		return
	}
	if f == nil {
		http.Error(w, "flight not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// HandleSamples returns the recorded samples of a flight in step order.
// GET /api/flights/{id}/samples
func (h *FlightsHandler) HandleSamples(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f, err := h.store.GetFlight(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get flight", "id", id, "error", err)
		http.Error(w, "failed to get flight", http.StatusInternalServerError)
		return
	}
	if f == nil {
		http.Error(w, "flight not found", http.StatusNotFound)
		return
	}

	samples, err := h.store.ListSamples(r.Context(), id)
	if err != nil {
		slog.Error("Failed to list samples", "id", id, "error", err)
		http.Error(w, "failed to list samples", http.StatusInternalServerError)
		return
	}
	if samples == nil {
		samples = []*model.FlightSample{}
	}
	writeJSON(w, http.StatusOK, samples)
}
