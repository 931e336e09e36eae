package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmsgo/pkg/config"
	"fmsgo/pkg/db"
	"fmsgo/pkg/flightplan"
	"fmsgo/pkg/geo"
	"fmsgo/pkg/model"
	"fmsgo/pkg/session"
	"fmsgo/pkg/store"
	"fmsgo/pkg/version"
	"fmsgo/pkg/waypoint"
)

var (
	gmmn = model.Waypoint{Name: "Mohammed V International Airport", Code: "GMMN", Position: geo.Point{Lat: 33.3675, Lon: -7.5898}, Category: "airport"}
	gmmx = model.Waypoint{Name: "Marrakech Menara Airport", Code: "GMMX", Position: geo.Point{Lat: 31.6069, Lon: -8.0364}, Category: "airport"}
	gmad = model.Waypoint{Name: "Agadir Al Massira Airport", Code: "GMAD", Position: geo.Point{Lat: 30.3753, Lon: -9.5478}, Category: "airport"}
)

// fakeSession records submitted commands.
type fakeSession struct {
	plan *flightplan.FlightPlan
	err  error

	mu   sync.Mutex
	cmds []session.Command
}

func newFakeSession(t *testing.T) *fakeSession {
	t.Helper()
	plan, err := flightplan.New(gmmn, gmad, gmmx)
	require.NoError(t, err)
	return &fakeSession{plan: plan}
}

func (f *fakeSession) ID() string                   { return "session-1" }
func (f *fakeSession) Plan() *flightplan.FlightPlan { return f.plan }

func (f *fakeSession) Submit(cmds ...session.Command) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmds...)
	return nil
}

func (f *fakeSession) submitted() []session.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.Command(nil), f.cmds...)
}

type testEnv struct {
	store   *store.SQLiteStore
	manager *waypoint.Manager
	session *fakeSession
	journal *session.Journal
	tel     *TelemetryHandler
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	d, err := db.Init(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	st := store.NewSQLiteStore(d)
	t.Cleanup(func() { st.Close() })

	m, err := waypoint.NewManager(st, geo.DefaultRegion(), config.DefaultConfig().Waypoints, nil)
	require.NoError(t, err)
	_, err = m.Seed(ctx)
	require.NoError(t, err)

	env := &testEnv{
		store:   st,
		manager: m,
		session: newFakeSession(t),
		journal: session.NewJournal(),
		tel:     NewTelemetryHandler(),
	}
	srv := NewServer("",
		env.tel,
		NewFlightHandler(env.session, 10),
		NewWaypointHandler(m),
		NewFlightsHandler(st),
		NewTripHandler(env.journal, st),
		nil,
	)
	env.server = httptest.NewServer(srv.Handler)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(e.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, body = env.get(t, "/api/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var v map[string]string
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, version.Version, v["version"])
}

func TestServer_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/api/flightplan", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = env.get(t, "/api/autopilot")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_OptionalHandlers(t *testing.T) {
	srv := NewServer("", NewTelemetryHandler(), nil, nil, nil, nil, nil)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	for _, path := range []string{"/api/flightplan", "/api/waypoints", "/api/flights", "/api/trip/events"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestServer_Shutdown(t *testing.T) {
	done := make(chan struct{})
	srv := NewServer("", NewTelemetryHandler(), nil, nil, nil, nil, func() { close(done) })
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/shutdown", "text/plain", http.NoBody)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	<-done
}
