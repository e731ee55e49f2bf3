package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

type Server struct {
	Engine *gin.Engine
	log    *logger.Logger
	srv    *http.Server
}

func NewServer(log *logger.Logger, engine *gin.Engine) *Server {
	return &Server{Engine: engine, log: log.With("component", "HTTPServer")}
}

// Run blocks until ctx is cancelled or the listener fails. Open SSE streams
// are cut when the shutdown grace period runs out.
func (s *Server) Run(ctx context.Context, address string) error {
	s.srv = &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", address)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("HTTP server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		_ = s.srv.Close()
		return err
	}
	return nil
}
