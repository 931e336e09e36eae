package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fmsgo/pkg/model"
	"fmsgo/pkg/session"
	"fmsgo/pkg/store"
)

// JournalProvider provides access to the trip journal.
type JournalProvider interface {
	Events() []model.FlightEvent
	Legs() int
}

// TripHandler handles trip-related API endpoints.
type TripHandler struct {
	journal JournalProvider
	store   store.StateStore
}

// NewTripHandler creates a new TripHandler. Returns nil without a journal.
func NewTripHandler(j JournalProvider, st store.StateStore) *TripHandler {
	if j == nil {
		return nil
	}
	return &TripHandler{journal: j, store: st}
}

// TripResponse is the trip summary.
type TripResponse struct {
	Legs   int                 `json:"legs"`
	Events []model.FlightEvent `json:"events"`
}

// HandleEvents returns the trip events as JSON.
// It first checks the in-memory journal, then falls back to the persisted one.
// GET /api/trip/events
func (h *TripHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	resp := TripResponse{Legs: h.journal.Legs(), Events: h.journal.Events()}

	if len(resp.Events) == 0 && h.store != nil {
		if val, found := h.store.GetState(r.Context(), session.JournalStateKey); found && val != "" {
			var ps session.PersistentState
			if err := json.Unmarshal([]byte(val), &ps); err != nil {
				slog.Warn("TripHandler: failed to unmarshal persisted journal", "error", err)
			} else {
				resp.Events = ps.Events
				resp.Legs = ps.Legs
			}
		}
	}

	if resp.Events == nil {
		resp.Events = []model.FlightEvent{}
	}
	writeJSON(w, http.StatusOK, resp)
}
