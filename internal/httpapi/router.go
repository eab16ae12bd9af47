// Package httpapi serves the points engine and session store over HTTP.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pieme/nzpoints/internal/metrics"
)

// NewRouter wires the routes. gatherer backs /metrics and may be nil to
// omit the endpoint.
func NewRouter(logger *zap.Logger, h *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metricsMiddleware(m))

	r.GET("/healthz", h.Health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	v1.GET("/rules", h.ListRules)
	v1.GET("/rules/:name", h.GetRules)
	v1.POST("/evaluate", h.Evaluate)

	sessions := v1.Group("/sessions")
	sessions.GET("", h.ListSessions)
	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.PUT("/:id/steps/:step", h.SetStep)
	sessions.POST("/:id/final", h.MarkFinal)
	sessions.POST("/:id/history", h.SaveHistory)
	sessions.POST("/:id/reset", h.Reset)
	sessions.POST("/:id/clear", h.Clear)
	sessions.GET("/:id/result", h.SessionResult)
	sessions.GET("/:id/events", h.SessionEvents)

	return r
}

// zapLoggerMiddleware logs one line per request.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
