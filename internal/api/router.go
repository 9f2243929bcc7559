// Package api is the HTTP surface of the transfer engine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/metrics"
)

type RouterConfig struct {
	Metrics     *metrics.Metrics    // nil disables instrumentation and /metrics
	Gatherer    prometheus.Gatherer // source of /metrics
	MetricsPath string
}

// NewRouter wires the middleware chain, /health, /metrics and the transfer API.
func NewRouter(h *TransferHandler, log *slog.Logger, cfg RouterConfig) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(RequestID(), AccessLog(log), gin.Recovery())
	if cfg.Metrics != nil {
		r.Use(Instrument(cfg.Metrics))
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.Handler(cfg.Gatherer)))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(r)
	return r
}
