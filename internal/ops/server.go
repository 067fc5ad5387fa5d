// Package ops serves the health and Prometheus endpoints of a front-end.
package ops

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/ride-booking-client/pkg/health"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"github.com/richxcame/ride-booking-client/pkg/middleware"
	"go.uber.org/zap"
)

var startTime = time.Now()

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string               `json:"status"`
	Service   string               `json:"service"`
	Version   string               `json:"version"`
	Timestamp string               `json:"timestamp"`
	Uptime    string               `json:"uptime"`
	Checks    []health.CheckStatus `json:"checks,omitempty"`
}

// Server is the ops HTTP server.
type Server struct {
	router *gin.Engine
	srv    *http.Server
}

// NewRouter builds the ops routes. /healthz answers 200 even when degraded.
func NewRouter(service, version string, cfg health.CheckerConfig, checks map[string]health.Checker) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(),
		middleware.CorrelationID(),
		middleware.TracingMiddleware(service),
		middleware.RequestLogger(service),
	)

	router.GET("/healthz", func(c *gin.Context) {
		report := health.Run(c.Request.Context(), cfg, checks)
		c.JSON(http.StatusOK, HealthResponse{
			Status:    report.Status,
			Service:   service,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
			Checks:    report.Checks,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// NewServer creates a server listening on addr.
func NewServer(addr string, router *gin.Engine) *Server {
	return &Server{
		router: router,
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		logger.Info("ops server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
