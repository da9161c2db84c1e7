package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andrea-alfonsi/nyx/internal/config"
	"github.com/andrea-alfonsi/nyx/internal/ctxlog"
	"github.com/andrea-alfonsi/nyx/internal/notify"
	"github.com/andrea-alfonsi/nyx/pkg/command"
	"github.com/andrea-alfonsi/nyx/pkg/registry"
)

// Announcer publishes the inventory of a freshly loaded host.
type Announcer func(ctx context.Context, cfg *config.Notify, payload any) error

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	registry   *registry.Synchronized[command.Command]
	backends   map[config.Backend]registry.Backend[command.Command]
	announce   Announcer
	httpServer *http.Server

	shutdownTimeout time.Duration
}

// Option customizes an App.
type Option func(*App)

// WithBackend replaces the backend used for libraries declared with name.
func WithBackend(name config.Backend, b registry.Backend[command.Command]) Option {
	return func(a *App) { a.backends[name] = b }
}

// WithAnnouncer replaces the socket.io announcer.
func WithAnnouncer(fn Announcer) Option {
	return func(a *App) { a.announce = fn }
}

// NewApp is the constructor for the main application. Command output goes to
// outW and logs to logW. The returned App owns an empty command registry.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		ctx:      ctxlog.WithLogger(context.Background(), logger),
		outW:     outW,
		logger:   logger,
		config:   cfg,
		model:    &config.Model{},
		backends: defaultBackends(),
		announce: announce,

		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}

	reg := registry.New(
		registry.WithSymbol[command.Command](command.Symbol),
		registry.WithBackend(a.backends[config.BackendGo]),
	)
	a.registry = registry.NewSynchronized(reg)

	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Synchronized[command.Command] {
	return a.registry
}

// Model returns the plugin model built by LoadConfig.
func (a *App) Model() *config.Model {
	return a.model
}

// Close stops the server, if any, and releases every loaded library.
func (a *App) Close() error {
	a.logger.Debug("Closing application.")
	return errors.Join(a.closeHealthCheckServer(), a.registry.Close())
}

func announce(ctx context.Context, cfg *config.Notify, payload any) error {
	return notify.New(cfg).Announce(ctx, payload)
}
