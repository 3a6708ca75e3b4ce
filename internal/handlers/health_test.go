package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"dev.helix.memstore/internal/observability"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(_ context.Context) error { return p.err }

func healthRouter(pinger *stubPinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", NewHealthHandler(pinger).Health)
	return router
}

func TestHealthOK(t *testing.T) {
	router := healthRouter(&stubPinger{})

	w := doJSON(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestHealthDatabaseDown(t *testing.T) {
	router := healthRouter(&stubPinger{err: errors.New("connection refused")})

	w := doJSON(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	collector := observability.NewCollector()

	router := gin.New()
	router.Use(Metrics(collector))
	router.GET("/v1/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	doJSON(router, http.MethodGet, "/v1/stats", "")
	doJSON(router, http.MethodGet, "/v1/stats", "")
	doJSON(router, http.MethodGet, "/no-such-route", "")

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	assert.Contains(t, body, `memstore_requests_total{endpoint="/v1/stats",method="GET",status="200"} 2`)
	assert.Contains(t, body, `memstore_requests_total{endpoint="unmatched",method="GET",status="404"} 1`)
	assert.Contains(t, body, "memstore_request_duration_seconds_bucket")
}
