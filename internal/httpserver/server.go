// Package httpserver serves the counters API, SVG renders and chart sessions.
package httpserver

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/reqchart/internal/chart"
	"github.com/tinytelemetry/reqchart/internal/collector"
	"github.com/tinytelemetry/reqchart/internal/metrics"
	"github.com/tinytelemetry/reqchart/internal/model"
	"github.com/tinytelemetry/reqchart/internal/scene"
)

// MaxWidth bounds the container widths accepted from clients.
const MaxWidth = 16384

const svgContentType = "image/svg+xml; charset=utf-8"

// Ingester validates and stores raw counters. Implemented by *collector.Collector.
type Ingester interface {
	Ingest(raw []model.RawCounter, source string) (collector.Result, error)
}

// Config holds optional server parameters.
type Config struct {
	Options      chart.Options
	CounterLimit int
	Sessions     SessionConfig
	Metrics      *metrics.Recorder
	Ingester     Ingester
}

// Server provides the HTTP API.
type Server struct {
	addr      string
	store     model.CounterStore
	ingest    Ingester
	opts      chart.Options
	limit     int
	metrics   *metrics.Recorder
	sessions  *SessionManager
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, store model.CounterStore, conf ...Config) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	c := Config{Options: chart.DefaultOptions(), CounterLimit: model.DefaultCounterLimit}
	if len(conf) > 0 {
		c = conf[0]
		if c.CounterLimit == 0 {
			c.CounterLimit = model.DefaultCounterLimit
		}
	}
	if c.Ingester == nil {
		c.Ingester = collector.New(nil, store, collector.Config{SourceName: "api", Metrics: c.Metrics})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:      addr,
		store:     store,
		ingest:    c.Ingester,
		opts:      c.Options,
		limit:     c.CounterLimit,
		metrics:   c.Metrics,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	sc := c.Sessions
	sc.Options = c.Options
	if sc.Metrics == nil {
		sc.Metrics = c.Metrics
	}
	s.sessions = NewSessionManager(s.dataset, sc)
	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager { return s.sessions }

// RefreshSessions re-renders mounted sessions after the data changed.
func (s *Server) RefreshSessions() { s.sessions.Refresh() }

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	s.routes(r)
	return r
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/counters", s.handleListCounters)
	r.POST("/api/counters", s.handleIngestCounters)
	r.GET("/api/chart.svg", s.handleChartSVG)

	r.POST("/api/sessions", s.handleMount)
	r.GET("/api/sessions/:id", s.handleSessionInfo)
	r.POST("/api/sessions/:id/resize", s.handleResize)
	r.GET("/api/sessions/:id/chart.svg", s.handleSessionSVG)
	r.DELETE("/api/sessions/:id", s.handleUnmount)

	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop unmounts every session and gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	s.sessions.Close()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) dataset() (chart.Dataset, error) {
	counters, err := s.store.ListCounters(s.limit)
	if err != nil {
		return nil, err
	}
	ds, diags := chart.FromCounters(counters)
	for _, d := range diags {
		log.Printf("httpserver: rejected stored %s", d)
		s.metrics.ObserveRejected(d.Reason)
	}
	return ds, nil
}

func parseWidth(raw string) (int, error) {
	if raw == "" {
		return model.DefaultChartWidth, nil
	}
	w, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("width must be an integer")
	}
	return checkWidth(w)
}

func checkWidth(w int) (int, error) {
	if w < 0 || w > MaxWidth {
		return 0, errors.New("width out of range")
	}
	return w, nil
}

type widthRequest struct {
	Width *int `json:"width"`
}

func (r widthRequest) value() (int, error) {
	if r.Width == nil {
		return model.DefaultChartWidth, nil
	}
	return checkWidth(*r.Width)
}

func (s *Server) handleHealth(c *gin.Context) {
	months, err := s.store.CounterCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"months":   months,
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleListCounters(c *gin.Context) {
	limit := s.limit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	counters, err := s.store.ListCounters(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if counters == nil {
		counters = []model.Counter{}
	}
	c.JSON(http.StatusOK, gin.H{"counters": counters})
}

func (s *Server) handleIngestCounters(c *gin.Context) {
	var req struct {
		Counters []model.RawCounter `json:"counters" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing counters field"})
		return
	}

	res, err := s.ingest.Ingest(req.Counters, "api")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.sessions.Refresh()
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleChartSVG(c *gin.Context) {
	width, err := parseWidth(c.Query("width"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	ds, err := s.dataset()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h, err := scene.Mount(c.Query("id"), s.opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.Render(ds, s.opts.Layout(width)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.metrics.ObserveRender("svg", time.Since(start).Seconds())
	writeSVG(c, h)
}

func (s *Server) handleMount(c *gin.Context) {
	var req widthRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
	}
	width, err := req.value()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.sessions.Mount(width)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sess.Info())
}

func (s *Server) handleSessionInfo(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Info())
}

func (s *Server) handleResize(c *gin.Context) {
	var req widthRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Width == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing width field"})
		return
	}
	width, err := req.value()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.sessions.Resize(c.Param("id"), width)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, sess.Info())
}

func (s *Server) handleSessionSVG(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	writeSVG(c, sess.Handle())
}

func (s *Server) handleUnmount(c *gin.Context) {
	if err := s.sessions.Unmount(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func writeSVG(c *gin.Context, h *scene.Handle) {
	body, err := h.SVG()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, svgContentType, body)
}
