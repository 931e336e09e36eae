package session

import (
	"encoding/json"
	"sync"
	"time"

	"fmsgo/pkg/geo"
	"fmsgo/pkg/logging"
	"fmsgo/pkg/model"
)

// Journal is the event history of a trip. A trip can span several sessions.
type Journal struct {
	mu     sync.RWMutex
	events []model.FlightEvent
	legs   int
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// AddEvent appends event to the history and writes it to the event log.
func (j *Journal) AddEvent(event *model.FlightEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	j.events = append(j.events, *event)

	logging.LogEvent(event)
}

// CompleteLeg counts a finished session.
func (j *Journal) CompleteLeg() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.legs++
}

// Events returns a copy of the history.
func (j *Journal) Events() []model.FlightEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]model.FlightEvent(nil), j.events...)
}

// Legs returns the number of completed sessions.
func (j *Journal) Legs() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.legs
}

// Reset clears the journal.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events = nil
	j.legs = 0
}

// PersistentState represents the serializable part of the journal.
type PersistentState struct {
	Events []model.FlightEvent `json:"events"`
	Legs   int                 `json:"legs"`
	Lat    float64             `json:"lat"`
	Lon    float64             `json:"lon"`
}

// GetPersistentState returns the journal JSON-encoded, tagged with the aircraft position.
func (j *Journal) GetPersistentState(pos geo.Point) ([]byte, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return json.Marshal(PersistentState{
		Events: j.events,
		Legs:   j.legs,
		Lat:    pos.Lat,
		Lon:    pos.Lon,
	})
}

// Restore rehydrates the journal from GetPersistentState output.
func (j *Journal) Restore(data []byte) error {
	var ps PersistentState
	if err := json.Unmarshal(data, &ps); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.events = ps.Events
	j.legs = ps.Legs
	return nil
}
