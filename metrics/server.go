package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the coordinator's Prometheus collectors over HTTP.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *zap.Logger
}

// Start binds addr and serves /metrics in the background. A bind failure is
// returned to the caller rather than taking the daemon down from the serving
// goroutine.
func Start(addr string, logger *zap.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for coordinator metrics on %s: %w", addr, err)
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{
		httpServer: &http.Server{Handler: mux},
		listener:   lis,
		logger:     logger,
	}

	go func() {
		s.logger.Info("serving coordinator metrics", zap.String("addr", lis.Addr().String()))
		if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("coordinator metrics server stopped unexpectedly", zap.Error(err))
		}
	}()

	return s, nil
}

// Addr is the address the server is bound to.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shut down coordinator metrics server", zap.Error(err))
		return
	}
	s.logger.Info("coordinator metrics server stopped")
}
