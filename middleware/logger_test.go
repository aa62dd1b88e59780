package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.String(200, "ok") })
	router.GET("/missing", func(c *gin.Context) { c.String(404, "nope") })

	req := httptest.NewRequest("GET", "/ok", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "path=/ok")

	// 透传调用方的请求 ID，4xx 记为 WARN
	buf.Reset()
	req2 := httptest.NewRequest("GET", "/missing", nil)
	req2.Header.Set(RequestIDHeader, "req-123")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	assert.Equal(t, "req-123", w2.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "request_id=req-123")
	assert.Contains(t, buf.String(), "status=404")
}
