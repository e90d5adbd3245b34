// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 15 * time.Second

// ShutdownHook performs cleanup during graceful shutdown. Hooks run in
// reverse registration order.
type ShutdownHook func(ctx context.Context) error

// ServerConfig configures the API listener.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Manager runs the API server and handles its shutdown.
type Manager interface {
	// Start serves until ctx is cancelled or the server fails.
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	cfg     ServerConfig
	handler http.Handler

	server        *http.Server
	addr          net.Addr
	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a manager serving handler on cfg.ListenAddr.
func NewManager(cfg ServerConfig, handler http.Handler) (Manager, error) {
	if handler == nil {
		return nil, errors.New("daemon: handler is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return &manager{
		cfg:     cfg,
		handler: handler,
		logger:  xglog.WithComponent("manager"),
	}, nil
}

// Start listens first, so a bad address fails Start directly, then serves
// until ctx is done.
func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrManagerAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	ln, err := net.Listen("tcp", m.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", m.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           m.handler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	m.mu.Lock()
	m.server = srv
	m.addr = ln.Addr()
	m.mu.Unlock()

	m.logger.Info().
		Str(xglog.FieldEvent, "api.server_started").
		Str("addr", ln.Addr().String()).
		Dur("read_timeout", m.cfg.ReadTimeout).
		Dur("write_timeout", m.cfg.WriteTimeout).
		Msg("API server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str(xglog.FieldEvent, "api.server_failed").Msg("API server failed")
			errCh <- fmt.Errorf("API server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Str(xglog.FieldEvent, "api.shutdown_signal").Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		err := m.Shutdown(shutdownCtx)
		<-errCh
		return err
	}
}

// Addr returns the bound listener address, nil before Start.
func (m *manager) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	srv := m.server
	hooks := m.shutdownHooks
	m.mu.Unlock()

	m.logger.Info().Str(xglog.FieldEvent, "api.shutdown_start").Msg("shutting down")

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		start := time.Now()
		if err := hook.hook(ctx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		m.logger.Debug().Str("hook", hook.name).Dur("duration", time.Since(start)).Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Str(xglog.FieldEvent, "api.shutdown_done").Msg("stopped cleanly")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
}
