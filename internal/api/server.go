// Package api is the localhost HTTP control surface. The desktop shell (or
// anything else holding the auth token) drives the editing session through
// it: project lifecycle, segment edits, playback transport, export and
// auto-zoom jobs, and range-served media preview.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/walterlow/snapit/internal/playback"
	"github.com/walterlow/snapit/internal/session"
	"github.com/walterlow/snapit/internal/store"
	"github.com/walterlow/snapit/internal/watcher"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port       int
	Session    *session.Session
	Repository store.Repository
	Media      *playback.MediaServer
	Watcher    watcher.Watcher
	EngineName string
	// DefaultFormat is applied to newly created projects; empty keeps the
	// model default.
	DefaultFormat string
	Logger        *slog.Logger
	StartTime     time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // media streaming and long polls
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
