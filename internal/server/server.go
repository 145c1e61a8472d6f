// Package server exposes the agent's local HTTP API: printer discovery and
// status, manual prints, previews, and the auto-print switch. It is consumed
// by the POS front-end on the same machine, hence the permissive CORS setup.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mesa-livre/print-agent/internal/device"
	"github.com/mesa-livre/print-agent/internal/engine"
	"github.com/mesa-livre/print-agent/internal/layout"
	"github.com/mesa-livre/print-agent/internal/preview"
	"github.com/mesa-livre/print-agent/internal/sink"
)

// Server holds the handler dependencies.
type Server struct {
	log     *logrus.Logger
	locator *device.Locator
	engine  *engine.Engine
	sink    *sink.PrinterSink
	layout  func() *layout.Layout
	preview *preview.Renderer // nil when Chrome is unavailable
	version string
}

func New(log *logrus.Logger, locator *device.Locator, eng *engine.Engine, printerSink *sink.PrinterSink, layoutFn func() *layout.Layout, prev *preview.Renderer, version string) *Server {
	return &Server{
		log:     log,
		locator: locator,
		engine:  eng,
		sink:    printerSink,
		layout:  layoutFn,
		preview: prev,
		version: version,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	printer := r.Group("/printer")
	{
		printer.GET("/detect", s.handleDetect)
		printer.GET("/status", s.handleStatus)
		printer.POST("/print", s.handlePrint)
		printer.POST("/test", s.handleTestPrint)
		printer.GET("/preview", s.handlePreview)
	}

	auto := r.Group("/autoprint")
	{
		auto.POST("/enable", s.handleEnable)
		auto.POST("/disable", s.handleDisable)
		auto.POST("/reset", s.handleReset)
		auto.POST("/printer", s.handleSelectPrinter)
		auto.GET("/status", s.handleAutoStatus)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
