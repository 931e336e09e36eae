package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fmsgo/pkg/session"
)

// streamBuffer is the number of samples queued per stream client before samples are dropped.
const streamBuffer = 32

const streamWriteTimeout = 5 * time.Second

// TelemetryResponse is the API response structure.
type TelemetryResponse struct {
	session.Sample
	Active bool `json:"active"`
}

// TelemetryHandler keeps the latest sample and fans the sample stream out to WebSocket clients.
type TelemetryHandler struct {
	mu      sync.RWMutex
	last    session.Sample
	active  bool
	clients map[chan session.Sample]struct{}

	upgrader websocket.Upgrader
}

func NewTelemetryHandler() *TelemetryHandler {
	return &TelemetryHandler{
		clients:  make(map[chan session.Sample]struct{}),
		upgrader: websocket.Upgrader{EnableCompression: false},
	}
}

// Publish implements session.Sink. Slow stream clients miss samples instead of stalling the flight.
func (h *TelemetryHandler) Publish(s session.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = s
	h.active = true

	for ch := range h.clients {
		select {
		case ch <- s:
		default:
		}
	}
}

// Latest returns the most recent sample and whether any was published.
func (h *TelemetryHandler) Latest() (session.Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.active
}

func (h *TelemetryHandler) subscribe() chan session.Sample {
	ch := make(chan session.Sample, streamBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *TelemetryHandler) unsubscribe(ch chan session.Sample) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *TelemetryHandler) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	last, active := h.Latest()
	resp := TelemetryResponse{Sample: last, Active: active}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode telemetry response", "error", err)
	}
}

// handleStream upgrades to a WebSocket and writes every published sample as a JSON message.
// GET /api/telemetry/stream
func (h *TelemetryHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Unable to upgrade telemetry stream", "error", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// The read pump only watches for the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if last, ok := h.Latest(); ok {
		if err := h.write(conn, last); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case s := <-ch:
			if err := h.write(conn, s); err != nil {
				slog.Debug("Telemetry stream closed", "error", err)
				return
			}
		}
	}
}

func (h *TelemetryHandler) write(conn *websocket.Conn, s session.Sample) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(TelemetryResponse{Sample: s, Active: true})
}
