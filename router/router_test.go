package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"expenseguard/config"
	"expenseguard/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: ":8080", Mode: gin.TestMode},
		JWT:    config.JWTConfig{Secret: "router-test-secret"},
		Risk:   config.RiskConfig{AlertMinSeverity: "high"},
	}
	middleware.InitJWT(cfg)
	return cfg
}

func TestSetupRouter_Health(t *testing.T) {
	r := SetupRouter(testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSetupRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r := SetupRouter(testConfig())

	paths := []struct{ method, path string }{
		{"GET", "/api/v1/expenses"},
		{"POST", "/api/v1/expenses/import"},
		{"GET", "/api/v1/risk/report"},
		{"POST", "/api/v1/risk/evaluate"},
		{"POST", "/api/v1/categories"},
		{"GET", "/api/v1/export/excel"},
	}
	for _, p := range paths {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, p.path)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := SetupRouter(testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/api/v1/expenses", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Request-ID")
}
