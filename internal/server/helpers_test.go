package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/metrics"
	"github.com/stretchr/testify/require"
)

const testConfig = `
httpServer:
  checks:
    - name: edge
      port: 18080
  admin:
    port: 19000
    ratelimit:
      perSecond: 1000
      burst: 1000
abuse:
  threshold: 1
profiles:
  - name: login
    strategy: token_bucket
    windowMs: 3600000
    maxRequests: 2
    message: Too many login attempts
  - name: search
    strategy: sliding_window
    windowMs: 60000
    maxRequests: 100
    skip:
      addresses: ["10.0.0.0/8"]
routes:
  - prefix: /api/auth
    profile: login
  - prefix: /api/search
    profile: search
`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestConfigManager(t *testing.T) *config.Manager {
	t.Helper()
	mgr, err := config.NewManager()
	require.NoError(t, err)
	require.NoError(t, mgr.Load([]byte(testConfig)))
	return mgr
}

func newTestRuntime(t *testing.T, mgr *config.Manager, collector metrics.MetricsCollector) *Runtime {
	t.Helper()
	logger := logr.Discard()
	rt, err := NewRuntime(mgr.GetConfig(), &logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

// newCheckRouter 构建只挂载决策服务的 gin 引擎
func newCheckRouter(t *testing.T, rt *Runtime) *gin.Engine {
	t.Helper()
	cfg := &config.CheckConfig{Name: "edge", Port: 18080}
	logger := logr.Discard()

	svc := NewCheckServices()
	svc.Initialize(cfg, rt, &logger)

	r := gin.New()
	svc.RegisterGroup(&r.RouterGroup)
	return r
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
