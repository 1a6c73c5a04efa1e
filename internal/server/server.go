// Package server serves the dashboard page, its JSON API and the
// health, readiness and metrics endpoints.
package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zachdehooge/quake-dashboard/internal/dashboard"
	"github.com/Zachdehooge/quake-dashboard/internal/generator"
	"github.com/Zachdehooge/quake-dashboard/internal/quake"
)

// Dashboard is the state holder the handlers drive.
type Dashboard interface {
	Snapshot() (dashboard.State, dashboard.View)
	Location() *time.Location
	SelectWindow(ctx context.Context, w quake.Window) error
	SelectPresentation(p dashboard.Presentation) error
	SelectTab(t dashboard.Tab) error
	ManualRefresh(ctx context.Context)
	CheckReadiness(ctx context.Context) error
}

// Options tunes the page the server renders.
type Options struct {
	Addr            string
	RefreshInterval time.Duration
	FitPadding      int
}

// Server exposes the dashboard over HTTP.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	opts       Options
	logger     *slog.Logger
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type earthquakesResponse struct {
	Window       quake.Window           `json:"window"`
	Presentation dashboard.Presentation `json:"view"`
	Header       string                 `json:"header"`
	Markers      []quake.Marker         `json:"markers"`
	Heat         []quake.HeatPoint      `json:"heat"`
	FitBounds    *quake.Bounds          `json:"fitBounds,omitempty"`
	List         dashboard.Panel        `json:"list"`
}

// New creates a server for dash.
func New(dash Dashboard, opts Options, logger *slog.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:        opts.Addr,
			Handler:     r,
			ReadTimeout: 10 * time.Second,
			// Window changes wait for the feed fetch before redirecting.
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dash:   dash,
		opts:   opts,
		logger: logger,
	}

	r.GET("/", s.handlePage)
	r.POST("/window", s.handleWindow)
	r.POST("/view", s.handleView)
	r.POST("/tab", s.handleTab)
	r.POST("/refresh", s.handleRefresh)

	api := r.Group("/api")
	{
		api.GET("/earthquakes", s.handleEarthquakes)
		api.GET("/news", s.handleNews)
	}

	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePage(c *gin.Context) {
	_, v := s.dash.Snapshot()
	page := generator.NewPage(v, s.opts.RefreshInterval, s.opts.FitPadding, time.Now(), s.dash.Location())
	page.Interactive = true

	var buf bytes.Buffer
	if err := generator.Render(&buf, page); err != nil {
		s.logger.Error("page render failed", "error", err)
		writeError(c, http.StatusInternalServerError, "render_failed", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleWindow(c *gin.Context) {
	w, err := quake.ParseWindow(c.PostForm("window"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_window", err)
		return
	}
	if err := s.dash.SelectWindow(c.Request.Context(), w); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_window", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleView(c *gin.Context) {
	p, err := dashboard.ParsePresentation(c.PostForm("view"))
	if err == nil {
		err = s.dash.SelectPresentation(p)
	}
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_view", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleTab(c *gin.Context) {
	t, err := dashboard.ParseTab(c.PostForm("tab"))
	if err == nil {
		err = s.dash.SelectTab(t)
	}
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_tab", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.dash.ManualRefresh(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleEarthquakes(c *gin.Context) {
	_, v := s.dash.Snapshot()
	c.JSON(http.StatusOK, earthquakesResponse{
		Window:       v.Window,
		Presentation: v.Presentation,
		Header:       v.Header,
		Markers:      v.Markers,
		Heat:         v.Heat,
		FitBounds:    v.FitBounds,
		List:         v.List,
	})
}

func (s *Server) handleNews(c *gin.Context) {
	_, v := s.dash.Snapshot()
	c.JSON(http.StatusOK, v.News)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.dash.CheckReadiness(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func writeError(c *gin.Context, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: msg})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// IsClosed reports whether err is the normal result of Shutdown.
func IsClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed)
}
