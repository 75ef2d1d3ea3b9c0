package www

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosync/config"
	"mosync/engine"
	"mosync/erp"
	"mosync/mocache"
	"mosync/store"
)

func newTestServer(t *testing.T, deliveryURL string) (*httptest.Server, *engine.Engine) {
	t.Helper()
	return newTestServerWithConfig(t, deliveryURL, "")
}

func newTestServerWithConfig(t *testing.T, deliveryURL, configPath string) (*httptest.Server, *engine.Engine) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "www.db")
	cfg.Delivery.URL = deliveryURL

	db, err := store.Open(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: configPath,
		DB:         db,
		ERPClient:  erp.NewClient("", "", time.Second),
		Cache:      mocache.New(db, cfg.Cache.RetentionWindow()),
		LogFunc:    func(string, ...any) {},
	})
	srv := httptest.NewServer(NewRouter(eng))
	t.Cleanup(srv.Close)
	return srv, eng
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func seed(t *testing.T, eng *engine.Engine) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	q := 24.0
	for mo, a := range map[string]mocache.Attrs{
		"MO/1":   {SKUName: "Liquid A", Quantity: &q, Note: "liquid", SourceCreatedAt: now.Add(-time.Hour)},
		"MO/2":   {SKUName: "Pod", Note: "cartirdge", SourceCreatedAt: now.Add(-2 * time.Hour)},
		"MO/old": {SKUName: "Old", Note: "liquid", SourceCreatedAt: now.Add(-10 * 24 * time.Hour)},
	} {
		_, err := eng.Cache().Upsert(ctx, mo, a)
		require.NoError(t, err)
	}
}

func TestMOStatsAndList(t *testing.T) {
	srv, eng := newTestServer(t, "")
	seed(t, eng)

	var stats mocache.Inspection
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/mo-stats", &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.WithinWindow)
	assert.Equal(t, 1, stats.OutsideWindow)
	assert.Equal(t, 7, stats.RetentionDays)

	var list struct {
		Count          int             `json:"count"`
		ProductionType string          `json:"production_type"`
		Data           []mocache.Entry `json:"data"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/mo-list?production_type=liquid", &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "MO/1", list.Data[0].MONumber)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/mo-list?productionType=liquid&in_window=true", &list))
	assert.Equal(t, 1, list.Count)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/mo-list", &list))
	assert.Equal(t, 3, list.Count)
	assert.Equal(t, "all", list.ProductionType)
}

func TestGetMO(t *testing.T) {
	srv, eng := newTestServer(t, "")
	seed(t, eng)

	var e mocache.Entry
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/mo/MO%2F2", &e))
	assert.Equal(t, "Pod", e.SKUName)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/mo/MO-missing", nil))
}

func TestRecordStatusEndpoint(t *testing.T) {
	var got map[string]any
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer receiver.Close()
	srv, eng := newTestServer(t, receiver.URL)
	seed(t, eng)

	resp, err := http.Post(srv.URL+"/api/mo/MO1/status", "application/json", bytes.NewBufferString(`{"status":"Completed","sku":"X","target_qty":3.9}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", got["status"])
	assert.Equal(t, float64(3), got["target_qty"])

	resp, err = http.Post(srv.URL+"/api/mo/MO1/status", "application/json", bytes.NewBufferString(`{"status":"paused"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecordStatusDeliveryFailureIsAccepted(t *testing.T) {
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer receiver.Close()
	srv, _ := newTestServer(t, receiver.URL)

	resp, err := http.Post(srv.URL+"/api/mo/MO1/status", "application/json", bytes.NewBufferString(`{"status":"active"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "rateLimited", body["category"])
}

func TestAdminCleanup(t *testing.T) {
	srv, eng := newTestServer(t, "")
	seed(t, eng)

	resp, err := http.Post(srv.URL+"/api/admin/cleanup-mo", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "1 evicted", body["detail"])

	var jobs []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/jobs", &jobs))
	assert.Len(t, jobs, 4)

	var runs []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/jobs/runs", &runs))
	assert.Len(t, runs, 1)
}

func TestAdminSyncReportsERPFailure(t *testing.T) {
	srv, _ := newTestServer(t, "")
	resp, err := http.Post(srv.URL+"/api/admin/sync-mo", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestBreakerAndExport(t *testing.T) {
	srv, eng := newTestServer(t, "")
	seed(t, eng)

	var b struct {
		Snapshot struct {
			State string `json:"state"`
		} `json:"snapshot"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/breaker", &b))
	assert.Equal(t, "CLOSED", b.Snapshot.State)

	resp, err := http.Get(srv.URL + "/api/mo-export.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "mo-cache-")
}

func putJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAdminConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mosync.yaml")
	srv, eng := newTestServerWithConfig(t, "http://receiver.local", path)

	var got engine.Settings
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/admin/config", &got))
	assert.Equal(t, "http://receiver.local", got.Delivery.URL)
	assert.Equal(t, 10, got.Delivery.BatchSize)

	// the ERP base points back at this server so the reconnect ping fails fast
	resp := putJSON(t, srv.URL+"/api/admin/config",
		`{"delivery":{"list_url":"http://receiver.local/mo-list"},"erp":{"base_url":"`+srv.URL+`","session_id":"abc123"}}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "http://receiver.local/mo-list", eng.Endpoints().List)
	s := eng.Settings()
	assert.Equal(t, "http://receiver.local", s.Delivery.URL)
	assert.Equal(t, "abc123", s.ERP.SessionID)
	assert.Equal(t, []string{"liquid", "device", "cartridge"}, s.ERP.Categories)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://receiver.local/mo-list", saved.Delivery.ListURL)
	assert.Equal(t, "abc123", saved.ERP.SessionID)
}

func TestAdminConfigRejectsInvalid(t *testing.T) {
	srv, eng := newTestServer(t, "http://receiver.local")

	resp := putJSON(t, srv.URL+"/api/admin/config", `{"delivery":{"batch_size":0,"list_url":"http://elsewhere"}}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 10, eng.Settings().Delivery.BatchSize)
	assert.Empty(t, eng.Settings().Delivery.ListURL)

	resp = putJSON(t, srv.URL+"/api/admin/config", `{"delivery":`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
