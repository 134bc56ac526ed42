// Package server exposes the load and answer entry points over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"webqa/internal/session"
)

// Surface is what the HTTP handlers drive.
type Surface interface {
	WebLoad(ctx context.Context, urlList, openaiKey, zillizURI, user, password string) string
	GenerateAnswer(ctx context.Context, question string) string
	Status() (session.Info, bool)
}

type Config struct {
	Addr         string
	AllowOrigins []string
}

type Server struct {
	cfg    Config
	engine *gin.Engine
	log    *slog.Logger
}

func New(cfg Config, surface Surface, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = "0.0.0.0:7860"
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), cors.New(corsConfig(cfg.AllowOrigins)))

	h := &handlers{surface: surface}
	engine.GET("/healthz", h.health)
	api := engine.Group("/api")
	{
		api.POST("/web_load", h.webLoad)
		api.POST("/generate_answer", h.generateAnswer)
		api.GET("/status", h.status)
	}
	return &Server{cfg: cfg, engine: engine, log: logger}
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server_listening", slog.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("server_stopping")
	return srv.Shutdown(shutdownCtx)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	return cfg
}
