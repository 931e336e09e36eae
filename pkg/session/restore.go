package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"fmsgo/pkg/geo"
	"fmsgo/pkg/store"
)

// JournalStateKey is the state key holding the persisted journal.
const JournalStateKey = "session_journal"

// restoreRangeKm is how close a departure must be to the last arrival to continue the trip (50 nm).
const restoreRangeKm = 92.6

// SaveJournal persists j with the position the aircraft stopped at.
func SaveJournal(ctx context.Context, st store.StateStore, j *Journal, pos geo.Point) error {
	data, err := j.GetPersistentState(pos)
	if err != nil {
		return err
	}
	return st.SetState(ctx, JournalStateKey, string(data))
}

// TryRestore continues the previous trip when departure lies within 50 nm of where it ended.
// It reports whether the journal was restored.
func TryRestore(ctx context.Context, st store.StateStore, j *Journal, departure geo.Point) bool {
	val, found := st.GetState(ctx, JournalStateKey)
	if !found || val == "" {
		return false
	}

	var ps PersistentState
	if err := json.Unmarshal([]byte(val), &ps); err != nil {
		slog.Error("Session: Failed to unmarshal persisted journal", "error", err)
		return false
	}

	dist := geo.Distance(geo.Point{Lat: ps.Lat, Lon: ps.Lon}, departure)
	if dist > restoreRangeKm {
		slog.Info("Session: Previous trip ended too far away, starting fresh", "dist_km", dist)
		return false
	}

	if err := j.Restore([]byte(val)); err != nil {
		slog.Error("Session: Failed to restore journal", "error", err)
		return false
	}
	slog.Info("Session: Continuing previous trip", "dist_km", dist, "legs", j.Legs())
	return true
}
