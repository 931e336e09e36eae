package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsgo/pkg/logging"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "SortsAndFilters",
			in:   `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Session step" stage=climb step=12 session=0b8f6a52-1c1e-4d43-9a4e-5f3d2c1b0a99 vs="1450 "`,
			want: "06:50:46 Session step (stage=climb, step=12, vs=1450)",
		},
		{
			name: "NoTime",
			in:   `level=WARN msg="Direct-to rejected" waypoint=ZZZZ`,
			want: "Direct-to rejected (waypoint=ZZZZ)",
		},
		{
			name: "NotStructured",
			in:   "plain text",
			want: "plain text",
		},
		{
			name: "NoMessage",
			in:   "a=1 b=2",
			want: "a=1 b=2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatLogLine(tt.in))
		})
	}
}

func TestHandleLatestLog(t *testing.T) {
	_, _ = logging.GlobalLogCapture.Write([]byte(`level=INFO msg="Simulation started" points=200` + "\n"))
	_, _ = logging.GlobalEventCapture.Write([]byte("[12:00:00] [departure] Departed GMMN - GMMN GMAD\n"))

	w := httptest.NewRecorder()
	handleLatestLog(w, httptest.NewRequest(http.MethodGet, "/api/log/latest", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Simulation started (points=200)", body["log"])
	assert.Equal(t, "[12:00:00] [departure] Departed GMMN - GMMN GMAD", body["event"])
}
