// Package api serves stored jobs and their review flags over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/amishk599/jobsync/internal/annotation"
	"github.com/amishk599/jobsync/internal/metrics"
	"github.com/amishk599/jobsync/internal/store"
)

// Querier reads pages of stored jobs.
type Querier interface {
	Query(ctx context.Context, q store.Query) (store.Page, error)
}

// Flagger applies review flags to a stored job.
type Flagger interface {
	SetFlags(ctx context.Context, id string, u annotation.Update) error
}

// Server owns the router and its dependencies.
type Server struct {
	jobs     Querier
	flags    Flagger
	metrics  *metrics.Manager
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer creates a Server. A nil metrics manager disables /metrics.
func NewServer(jobs Querier, flags Flagger, m *metrics.Manager, logger *slog.Logger) *Server {
	return &Server{
		jobs:     jobs,
		flags:    flags,
		metrics:  m,
		validate: validator.New(),
		logger:   logger,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Metrics(s.metrics))

	r.GET("/health", s.health)
	r.GET("/jobs", s.listJobs)
	r.POST("/jobs/:id/flags", s.setFlags)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("api shutting down")
	return srv.Shutdown(shutdownCtx)
}
