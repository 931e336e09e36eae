package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"fmsgo/pkg/version"
)

// NewServer creates and configures the HTTP server.
// flight, flights and trip may be nil; their endpoints are then not registered.
// shutdown is called after a POST /api/shutdown response has been written.
func NewServer(addr string, tel *TelemetryHandler, flight *FlightHandler, wps *WaypointHandler, flights *FlightsHandler, trip *TripHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 2. Telemetry
	mux.HandleFunc("GET /api/telemetry", tel.handleTelemetry)
	mux.HandleFunc("GET /api/telemetry/stream", tel.handleStream)

	// 3. Flight Plan & Autopilot
	if flight != nil {
		mux.HandleFunc("GET /api/flightplan", flight.HandlePlan)
		mux.HandleFunc("GET /api/flightplan/geojson", flight.HandleGeoJSON)
		mux.HandleFunc("POST /api/autopilot", flight.HandleAutopilot)
	}

	// 4. Waypoints
	if wps != nil {
		mux.HandleFunc("GET /api/waypoints", wps.HandleList)
		mux.HandleFunc("GET /api/waypoints/nearest", wps.HandleNearest)
		mux.HandleFunc("GET /api/waypoints/{code}", wps.HandleGet)
	}

	// 5. Recorded Flights
	if flights != nil {
		mux.HandleFunc("GET /api/flights", flights.HandleList)
		mux.HandleFunc("GET /api/flights/{id}", flights.HandleGet)
		mux.HandleFunc("GET /api/flights/{id}/samples", flights.HandleSamples)
	}

	// 6. Trip
	if trip != nil {
		mux.HandleFunc("GET /api/trip/events", trip.HandleEvents)
	}

	// 7. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		if shutdown == nil {
			return
		}
		// Let the response flush first.
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// Stream writes set their own deadline.
		IdleTimeout: 60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
