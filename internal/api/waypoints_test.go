package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsgo/pkg/model"
	"fmsgo/pkg/waypoint"
)

func TestWaypointHandler_List(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/waypoints")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var wps []model.Waypoint
	require.NoError(t, json.Unmarshal(body, &wps))
	assert.Len(t, wps, 4)
}

func TestWaypointHandler_Get(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		code       string
		wantStatus int
		wantCode   string
	}{
		{"Found", "GMMX", http.StatusOK, "GMMX"},
		{"LowerCase", "gmad", http.StatusOK, "GMAD"},
		{"Missing", "ZZZZ", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.get(t, "/api/waypoints/"+tt.code)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var wp model.Waypoint
			require.NoError(t, json.Unmarshal(body, &wp))
			assert.Equal(t, tt.wantCode, wp.Code)
		})
	}
}

func TestWaypointHandler_Nearest(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCodes  []string
	}{
		{"Casablanca", "?lat=33.36&lon=-7.58&limit=2", http.StatusOK, []string{"CAS", "GMMN"}},
		{"DefaultLimit", "?lat=30.4&lon=-9.5", http.StatusOK, []string{"GMAD", "GMMX", "CAS", "GMMN"}},
		{"MissingLat", "?lon=-7.58", http.StatusBadRequest, nil},
		{"LatOutOfRange", "?lat=91&lon=0", http.StatusBadRequest, nil},
		{"BadLimit", "?lat=33&lon=-7&limit=0", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.get(t, "/api/waypoints/nearest"+tt.query)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got []waypoint.Neighbor
			require.NoError(t, json.Unmarshal(body, &got))
			codes := make([]string, len(got))
			for i, n := range got {
				codes[i] = n.Waypoint.Code
			}
			assert.Equal(t, tt.wantCodes, codes)
		})
	}
}
