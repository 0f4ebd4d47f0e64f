package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/lightningnetwork/lnd/signal"
	"go.uber.org/zap"

	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	"github.com/omnistake/xcm-delegator/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server is the main daemon construct of the delegation coordinator. It
// spins up the admin API, the coordinator app and the metrics server, and
// tears them down on shutdown.
type Server struct {
	started int32

	cfg    *xddcfg.Config
	logger *zap.Logger

	app         *App
	rpcServer   *rpcServer
	db          kvdb.Backend
	interceptor signal.Interceptor
}

func NewCoordinatorServer(cfg *xddcfg.Config, l *zap.Logger, app *App, db kvdb.Backend, sig signal.Interceptor) *Server {
	return &Server{
		cfg:         cfg,
		logger:      l,
		app:         app,
		rpcServer:   newRPCServer(app, l),
		db:          db,
		interceptor: sig,
	}
}

// RunUntilShutdown runs the coordinator until a signal is received to shut
// down the process.
func (s *Server) RunUntilShutdown() error {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return nil
	}

	promAddr, err := s.cfg.Metrics.Address()
	if err != nil {
		return fmt.Errorf("failed to get prometheus address: %w", err)
	}
	metricsServer, err := metrics.Start(promAddr, s.logger)
	if err != nil {
		return err
	}

	defer func() {
		s.logger.Info("Shutdown complete")
	}()

	defer func() {
		s.logger.Info("Closing database...")
		s.db.Close()
		s.logger.Info("Database closed")
		metricsServer.Stop(context.Background())
		s.logger.Info("Metrics server stopped")
	}()

	if err := s.app.Start(); err != nil {
		return fmt.Errorf("failed to start the coordinator app: %w", err)
	}
	defer func() {
		if err := s.app.Stop(); err != nil {
			s.logger.Error("failed to stop the coordinator app", zap.Error(err))
		}
	}()

	listenAddr := s.cfg.RpcListener
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}

	httpServer := &http.Server{
		Handler:           s.rpcServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("RPC server shutdown failed", zap.Error(err))
		}
	}()

	go func() {
		s.logger.Info("RPC server listening", zap.String("address", lis.Addr().String()))
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("RPC server stopped unexpectedly", zap.Error(err))
			s.interceptor.RequestShutdown()
		}
	}()

	s.logger.Info("Delegation coordinator daemon is fully active!")

	// Wait for shutdown signal from either a graceful server stop or from
	// the interrupt handler.
	<-s.interceptor.ShutdownChannel()

	return nil
}
