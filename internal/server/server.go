// Package server exposes the session store over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/danmuck/binlens/internal/config"
	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/observability"
	"github.com/danmuck/binlens/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

type Server struct {
	Name    string    `json:"name"`
	Addr    string    `json:"addr"`
	Started time.Time `json:"started"`
	Store   *session.Store

	router  *gin.Engine
	maxBody int64
}

// New wires the router and store from cfg. Routes are registered by
// RegisterRoutes so callers can add their own first.
func New(cfg config.ServerConfig) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CorsOrigins),
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		Name:    cfg.Name,
		Addr:    cfg.Addr,
		Started: time.Now(),
		Store:   session.NewStore(cfg.MaxSessions, decode.Options{Seed: cfg.Seed}),
		router:  r,
		maxBody: cfg.MaxBodyBytes,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": s.Name,
			"version": version,
		})
	})
	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":    true,
			"uptime":   time.Since(s.Started).String(),
			"service":  s.Name,
			"version":  version,
			"sessions": len(s.Store.List()),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := s.router.Group("/sessions")
	sessions.POST("", s.openSession)
	sessions.GET("", s.listSessions)
	sessions.GET("/:id", s.getSession)
	sessions.DELETE("/:id", s.deleteSession)
	sessions.GET("/:id/raw", s.rawSession)
	sessions.POST("/:id/selection", s.selectFields)
	sessions.GET("/:id/segments/:seg", s.getSegment)
	sessions.PUT("/:id/segments/:seg/fields/:field", s.writeField)
}

func (s *Server) Serve() error {
	s.RegisterRoutes()
	log.Info().Str("name", s.Name).Str("addr", s.Addr).Msg("binlensd listening")
	return s.router.Run(s.Addr)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
