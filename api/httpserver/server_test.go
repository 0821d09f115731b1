package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordmap/infra/logger"
	"ordmap/infra/metrics"
	"ordmap/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, capacity int) *gin.Engine {
	t.Helper()
	reg := prometheus.NewRegistry()
	store := service.NewStore(service.Options{
		Capacity: capacity,
		Metrics:  metrics.New(reg),
		Logger:   logger.Discard(),
	})
	return NewRouter(store, reg, logger.Discard())
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, 0)
	w, body := do(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestKeyLifecycle(t *testing.T) {
	r := newTestRouter(t, 0)

	w, body := do(t, r, http.MethodPut, "/v1/keys/color", `{"value":"red"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["revision"])

	w, body = do(t, r, http.MethodGet, "/v1/keys/color", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "red", body["value"])

	w, body = do(t, r, http.MethodPut, "/v1/keys/color", `{"value":"black"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["replaced"])

	w, _ = do(t, r, http.MethodDelete, "/v1/keys/color", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, body = do(t, r, http.MethodGet, "/v1/keys/color", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["found"])

	w, _ = do(t, r, http.MethodDelete, "/v1/keys/color", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutBadBody(t *testing.T) {
	r := newTestRouter(t, 0)
	w, _ := do(t, r, http.MethodPut, "/v1/keys/k", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutCapacity(t *testing.T) {
	r := newTestRouter(t, 1)
	w, _ := do(t, r, http.MethodPut, "/v1/keys/a", `{"value":"1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, r, http.MethodPut, "/v1/keys/b", `{"value":"2"}`)
	assert.Equal(t, http.StatusInsufficientStorage, w.Code)
	assert.Contains(t, body["error"], "allocation")
}

func TestScanMinMaxDump(t *testing.T) {
	r := newTestRouter(t, 0)
	for _, k := range []string{"5", "3", "8", "1", "4"} {
		w, _ := do(t, r, http.MethodPut, "/v1/keys/"+k, `{"value":"v`+k+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, body := do(t, r, http.MethodGet, "/v1/scan?from=3&to=8&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries := body["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, "3", entries[0].(map[string]any)["key"])
	assert.Equal(t, "4", entries[1].(map[string]any)["key"])

	w, _ = do(t, r, http.MethodGet, "/v1/scan?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, body = do(t, r, http.MethodGet, "/v1/min", "")
	assert.Equal(t, "1", body["key"])
	_, body = do(t, r, http.MethodGet, "/v1/max", "")
	assert.Equal(t, "8", body["key"])

	_, body = do(t, r, http.MethodGet, "/v1/dump?order=postorder", "")
	var keys []string
	for _, e := range body["entries"].([]any) {
		keys = append(keys, e.(map[string]any)["key"].(string))
	}
	assert.Equal(t, []string{"1", "4", "3", "8", "5"}, keys)

	w, _ = do(t, r, http.MethodGet, "/v1/dump?order=zigzag", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsClearAndMetrics(t *testing.T) {
	r := newTestRouter(t, 0)
	for _, k := range []string{"a", "b"} {
		do(t, r, http.MethodPut, "/v1/keys/"+k, `{"value":"x"}`)
	}

	_, body := do(t, r, http.MethodGet, "/v1/stats", "")
	assert.Equal(t, 2.0, body["size"])
	assert.Equal(t, true, body["balanced"])

	w, body := do(t, r, http.MethodPost, "/v1/clear", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["cleared"])

	w, _ = do(t, r, http.MethodGet, "/v1/min", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ordmap_operations_total")
	assert.Contains(t, w.Body.String(), "ordmap_entries")
}
