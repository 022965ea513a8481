package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lara-bot/internal/common/logger"
	"lara-bot/internal/common/middleware"
)

const probeTimeout = 2 * time.Second

// Probe reports whether a dependency is ready to serve.
type Probe func(ctx context.Context) error

// Options configures the health server. Probes are checked by /ready only.
type Options struct {
	Addr      string
	Service   string
	StartedAt time.Time
	Probes    map[string]Probe
	Debug     bool
}

// Server exposes liveness and readiness over HTTP.
type Server struct {
	opts   Options
	router *gin.Engine
	srv    *http.Server
}

func NewServer(opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery(), middleware.Logger("/health", "/live", "/ready"))

	s := &Server{opts: opts, router: router}
	router.GET("/health", s.health)
	router.GET("/live", s.live)
	router.GET("/ready", s.ready)

	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info().Str("addr", s.opts.Addr).Msg("health server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.opts.Service,
		"uptime":  time.Since(s.opts.StartedAt).Round(time.Second).String(),
	})
}

func (s *Server) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	checks := make(gin.H, len(s.opts.Probes))
	status := http.StatusOK
	for name, probe := range s.opts.Probes {
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			logger.Warn().Err(err).Str("probe", name).Msg("readiness probe failed")
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
