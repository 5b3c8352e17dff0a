package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flowbit/nl2sql/internal/config"
	"github.com/flowbit/nl2sql/internal/service"
	"github.com/rs/zerolog/log"
)

type Server struct {
	cfg  *config.Config
	http *http.Server
	db   *service.PostgresService // closed after the listener drains
}

// New opens the connection pool and builds the router. Startup fails when the
// database is unreachable.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	deps, err := s.newDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("setup dependencies: %w", err)
	}
	s.db = deps.DB

	s.http = newHTTPServer(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Routes(deps, cfg.CORSOrigins))

	return s, nil
}

// newHTTPServer bounds reading the request only. There is no WriteTimeout:
// the database call has no deadline, and the response waits for it.
func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)
		s.closeDB()
		return err
	case err := <-errCh:
		s.closeDB()
		return err
	}
}

func (s *Server) closeDB() {
	if s.db != nil {
		s.db.Close()
		log.Info().Msg("database pool closed")
	}
}
