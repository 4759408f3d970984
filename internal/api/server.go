// Package api provides the HTTP REST API and WebSocket feed of the
// media bridge.
//
// It exposes attached devices, their reconciled state and history, an
// intent endpoint for mutations, and a WebSocket that streams every
// state change. The server follows the same lifecycle pattern as the
// other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stbridge/media-bridge-core/internal/bridge"
	"github.com/stbridge/media-bridge-core/internal/history"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/config"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Bridge  *bridge.Manager
	History history.Repository // optional; nil disables the history endpoint
	Version string
}

// Server is the bridge's HTTP API server. It manages the listener,
// routes, middleware and the WebSocket hub. Create with New, start with
// Start.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	bridge  *bridge.Manager
	history history.Repository
	version string

	server         *http.Server
	hub            *Hub
	cancel         context.CancelFunc
	removeListener func()
}

// New creates an API server with the given dependencies. The server is
// not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge manager is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		bridge:  deps.Bridge,
		history: deps.History,
		version: deps.Version,
	}, nil
}

// Start builds the router, starts the WebSocket hub, registers for
// state changes and launches the HTTP listener in a background
// goroutine.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.logger)
	go s.hub.Run(srvCtx)

	s.removeListener = s.bridge.AddListener(s.hub.BroadcastState)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server, waiting for in-flight
// requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.removeListener != nil {
		s.removeListener()
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
