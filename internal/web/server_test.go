package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/api"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/config"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/controller"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/view"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves the backend REST API from canned envelopes.
type fakeBackend struct {
	mutex     sync.Mutex
	saveError string
	clearErr  string
	saved     []map[string]interface{}
	logs      []map[string]string
	clears    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		logs: []map[string]string{
			{"timestamp": "2026-10-16T10:00:00", "level": "INFO", "message": "gestartet"},
			{"timestamp": "2026-10-16T10:05:00", "level": "ERROR", "message": "HA nicht erreichbar"},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "ha_connected": true})
	})
	r.HandleFunc("/api/entities", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]interface{}{
			"pv_production": map[string]interface{}{"value": 4321.5, "unit": "kWh", "entity_id": "sensor.pv"},
		}})
	})
	r.HandleFunc("/api/calculations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]interface{}{
			"production":  map[string]interface{}{"pv": 10.0, "total": 10.0},
			"consumption": map[string]interface{}{"house": 6.0},
			"grid":        map[string]interface{}{"import": 1.0, "export": 5.0},
			"balance":     map[string]interface{}{"self_consumption": 5.0, "self_consumption_rate": 50.0},
		}})
	})
	r.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]interface{}{
			"available_entities": []map[string]interface{}{
				{"entity_id": "sensor.pv", "friendly_name": "PV", "unit": "kWh"},
				{"entity_id": "sensor.grid"},
			},
			"sensor_keys": []string{"pv_production", "grid_import"},
			"sensor_configs": []map[string]interface{}{
				{"sensor_key": "pv_production", "entity_id": "sensor.pv", "daily_total": "daily", "enabled": 1},
				{"sensor_key": "grid_import", "entity_id": nil, "daily_total": nil, "enabled": 0},
			},
		}})
	}).Methods("GET")
	r.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		f.mutex.Lock()
		defer f.mutex.Unlock()

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.saved = append(f.saved, body)

		if f.saveError != "" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": f.saveError})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}).Methods("POST")
	r.HandleFunc("/api/logs", func(w http.ResponseWriter, r *http.Request) {
		f.mutex.Lock()
		defer f.mutex.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": f.logs})
	}).Methods("GET")
	r.HandleFunc("/api/logs", func(w http.ResponseWriter, r *http.Request) {
		f.mutex.Lock()
		defer f.mutex.Unlock()
		f.clears++
		if f.clearErr != "" {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": f.clearErr})
			return
		}
		f.logs = nil
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}).Methods("DELETE")

	return r
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Disable logs for tests
	return logger
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0, CORSOrigins: []string{"http://ha.local"}},
		Backend:   config.BackendConfig{BaseURL: backendURL, RequestTimeout: 2},
		Dashboard: config.DashboardConfig{RefreshInterval: 30, Timezone: "UTC"},
		UI:        config.UIConfig{RedirectDelay: 1500, BannerDuration: 3000},
	}
}

type testEnv struct {
	backend   *fakeBackend
	server    *Server
	dashboard *controller.Dashboard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := newFakeBackend()
	backendServer := httptest.NewServer(backend.router())
	t.Cleanup(backendServer.Close)

	cfg := testConfig(backendServer.URL)
	logger := testLogger()
	client := api.NewClient(cfg.Backend.BaseURL, cfg.RequestTimeout(), logger)

	dashboard := controller.NewDashboard(client, view.NewDocument(), controller.DashboardOptions{
		RefreshInterval: cfg.RefreshInterval(),
		RequestTimeout:  cfg.RequestTimeout(),
		Location:        time.UTC,
	}, logger)

	server, err := NewServer(cfg, dashboard, client, logger)
	require.NoError(t, err)

	return &testEnv{backend: backend, server: server, dashboard: dashboard}
}

func (e *testEnv) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	q, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return q
}

func TestDashboardPage_ShowsLoadingBeforeFirstRefresh(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	q := parse(t, rec)
	assert.Equal(t, 1, q.Find("#sensors-grid .loading").Length())
	assert.Equal(t, 0, q.Find("#daily-summary").Length())
	assert.Equal(t, "dashboard", q.Find("body").AttrOr("data-page", ""))
}

func TestRefresh_RendersDashboardAndRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/refresh", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	q := parse(t, env.do(t, http.MethodGet, "/", nil))
	assert.Equal(t, "Verbunden", q.Find("#connection-status .status").Text())
	assert.Equal(t, "4.321,5", q.Find("#sensors-grid .sensor-value").First().Text())
	assert.Equal(t, 7, q.Find("#energy-balance .balance-item").Length())
}

func TestViewSnapshot_CORS(t *testing.T) {
	env := newTestEnv(t)
	waitRefresh(t, env)

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.Header.Set("Origin", "http://ha.local")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://ha.local", rec.Header().Get("Access-Control-Allow-Origin"))

	var snapshot struct {
		Regions map[string]string `json:"regions"`
		States  map[string]string `json:"states"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	assert.Contains(t, snapshot.Regions[view.RegionSensorsGrid], "sensor.pv")
	assert.Equal(t, "rendered", snapshot.States[view.RegionEnergyBalance])

	req = httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func waitRefresh(t *testing.T, env *testEnv) {
	t.Helper()
	select {
	case <-env.dashboard.Refresh(context.Background()):
	case <-time.After(3 * time.Second):
		t.Fatal("refresh did not finish")
	}
}

func TestConfigPage_RendersStoredValues(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	q := parse(t, rec)
	assert.Equal(t, 2, q.Find("#sensor-configs .sensor-config[data-sensor-key]").Length())

	selected := q.Find("select[name='pv_production_entity'] option[selected]").AttrOr("value", "")
	assert.Equal(t, "sensor.pv", selected)

	_, pvChecked := q.Find("input[name='pv_production_enabled']").Attr("checked")
	assert.True(t, pvChecked)
	_, gridChecked := q.Find("input[name='grid_import_enabled']").Attr("checked")
	assert.False(t, gridChecked, "stored 0 renders unchecked")
}

func TestConfigSubmit_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/config", url.Values{
		"action":                {"save"},
		"sensor_key":            {"pv_production", "grid_import"},
		"pv_production_entity":  {"sensor.pv"},
		"pv_production_type":    {"total"},
		"pv_production_enabled": {"on"},
		"grid_import_entity":    {"sensor.grid"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	q := parse(t, rec)
	banner := q.Find("#messages .success-message")
	assert.Equal(t, "Konfiguration erfolgreich gespeichert!", banner.Text())
	assert.Equal(t, "/", banner.AttrOr("data-redirect", ""))
	assert.Equal(t, "1500", banner.AttrOr("data-redirect-after", ""))

	env.backend.mutex.Lock()
	defer env.backend.mutex.Unlock()
	require.Len(t, env.backend.saved, 1)
	configs := env.backend.saved[0]["configs"].([]interface{})
	require.Len(t, configs, 2)

	pv := configs[0].(map[string]interface{})
	assert.Equal(t, "pv_production", pv["sensor_key"])
	assert.Equal(t, "total", pv["daily_total"])
	assert.Equal(t, true, pv["enabled"])

	grid := configs[1].(map[string]interface{})
	assert.Equal(t, "sensor.grid", grid["entity_id"])
	assert.Nil(t, grid["daily_total"])
	assert.Equal(t, false, grid["enabled"])
}

func TestConfigSubmit_BackendRejects(t *testing.T) {
	env := newTestEnv(t)
	env.backend.saveError = "bad entity"

	rec := env.do(t, http.MethodPost, "/config", url.Values{
		"action":             {"save"},
		"grid_import_entity": {"sensor.pv"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	q := parse(t, rec)
	banner := q.Find("#messages .error")
	assert.Equal(t, "Fehler: bad entity", banner.Text())
	_, redirect := banner.Attr("data-redirect")
	assert.False(t, redirect)
	assert.Equal(t, 0, q.Find("noscript meta").Length())

	value := q.Find("select[name='grid_import_entity'] option[selected]").AttrOr("value", "")
	assert.Equal(t, "sensor.pv", value, "submitted value stays in the form")
}

func TestConfigSubmit_Cancel(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/config", url.Values{"action": {"cancel"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, env.backend.saved)
}

func TestLogsPage(t *testing.T) {
	env := newTestEnv(t)

	q := parse(t, env.do(t, http.MethodGet, "/logs", nil))
	entries := q.Find("#logs-container .log-entry")
	require.Equal(t, 2, entries.Length())
	assert.True(t, entries.Eq(1).HasClass("log-error"))
}

func TestLogsClear_AsksForConfirmation(t *testing.T) {
	env := newTestEnv(t)

	q := parse(t, env.do(t, http.MethodPost, "/logs/clear", url.Values{}))
	assert.Equal(t, 1, q.Find("#messages input[name='confirm']").Length())
	assert.Equal(t, 2, q.Find("#logs-container .log-entry").Length())
	assert.Equal(t, 0, env.backend.clears)
}

func TestLogsClear_ReloadsList(t *testing.T) {
	env := newTestEnv(t)

	q := parse(t, env.do(t, http.MethodPost, "/logs/clear", url.Values{"confirm": {"yes"}}))
	assert.Equal(t, 1, env.backend.clears)
	assert.Equal(t, "Keine Logs verfügbar", q.Find("#logs-container .loading").Text())
}

func TestLogsClear_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.backend.clearErr = "Datenbank gesperrt"

	q := parse(t, env.do(t, http.MethodPost, "/logs/clear", url.Values{"confirm": {"yes"}}))
	assert.Equal(t, "Fehler beim Löschen der Logs: Datenbank gesperrt", q.Find("#messages .error").Text())
	assert.Equal(t, 2, q.Find("#logs-container .log-entry").Length())
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/static/app.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "applyPatch")

	rec = env.do(t, http.MethodGet, "/static/style.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebSocket_SnapshotThenPatches(t *testing.T) {
	env := newTestEnv(t)
	env.server.hub.Start()
	defer env.server.hub.Stop()

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var snapshot []view.Patch
	require.NoError(t, conn.ReadJSON(&snapshot))
	ids := make(map[string]bool)
	for _, p := range snapshot {
		ids[p.ID] = true
	}
	assert.True(t, ids[view.RegionSensorsGrid])

	require.Eventually(t, func() bool { return env.server.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	env.dashboard.Document().Patch(view.RegionLastUpdate, "12:00:00")

	for {
		var patches []view.Patch
		require.NoError(t, conn.ReadJSON(&patches))
		if len(patches) == 1 && patches[0].ID == view.RegionLastUpdate {
			assert.Equal(t, "12:00:00", string(patches[0].HTML))
			return
		}
	}
}
