package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/microcosm/component"
	"github.com/kbukum/microcosm/logger"
)

// App runs one node. The type parameter C is the node's config type.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and initializes the logger.
// A validation error is returned unwrapped so its code survives.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := cfg.GetServiceConfig()
	s := newSettings(opts)

	app := &App[C]{
		Name:            base.Service,
		Version:         base.Version,
		Cfg:             cfg,
		Logger:          s.logger,
		gracefulTimeout: s.gracefulTimeout,
	}
	if app.Logger == nil {
		app.Logger = logger.Init(base.Logging, base.Service)
	}
	app.Components = component.NewRegistry(app.Logger.WithComponent("component"))
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts the node, blocks until a shutdown signal or ctx is done, and
// shuts down gracefully.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	a.WaitForSignal(ctx)
	return a.stop()
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Debug("starting node", logger.Fields(
		"service", a.Name,
		"version", a.Version,
	))

	if err := a.Components.StartAll(ctx); err != nil {
		a.rollback()
		return fmt.Errorf("failed to start components: %w", err)
	}
	a.describe()

	if err := runHooks(ctx, a.onStart); err != nil {
		a.rollback()
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		a.rollback()
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Logger.Debug("node ready", logger.DurationFields("startup", time.Since(start)))
	return nil
}

// describe logs one line per component that reports itself.
func (a *App[C]) describe() {
	for _, c := range a.Components.All() {
		d, ok := c.(component.Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		name := desc.Name
		if name == "" {
			name = c.Name()
		}
		fields := logger.Fields("type", desc.Type, "details", desc.Details)
		if desc.Port > 0 {
			fields["port"] = desc.Port
		}
		a.Logger.Info(name+" started", fields)
	}
}

// rollback stops whatever started before a startup failure.
func (a *App[C]) rollback() {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("rollback stopped with errors", logger.Fields(logger.FieldError, err.Error()))
	}
}

// WaitForSignal blocks until SIGINT, SIGTERM or cancellation of ctx.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Debug("context canceled, shutting down")
		return nil
	}
}

// stop runs the stop hooks and stops all components within the graceful timeout.
func (a *App[C]) stop() error {
	a.Logger.Debug("shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("stop hook failed", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	a.Logger.Debug("shutdown complete")
	return shutdownErr
}
