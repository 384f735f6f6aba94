package main

import (
	"context"
	"fmt"

	"github.com/kbukum/microcosm/bootstrap"
	"github.com/kbukum/microcosm/config"
	"github.com/kbukum/microcosm/discovery"
	_ "github.com/kbukum/microcosm/discovery/consul"
	_ "github.com/kbukum/microcosm/discovery/static"
	"github.com/kbukum/microcosm/fanout"
	"github.com/kbukum/microcosm/handler"
	"github.com/kbukum/microcosm/httpclient"
	"github.com/kbukum/microcosm/node"
	"github.com/kbukum/microcosm/observability"
	"github.com/kbukum/microcosm/resilience"
	"github.com/kbukum/microcosm/server"
	"github.com/kbukum/microcosm/tracing"
)

// load reads the config document and applies the command line fallbacks
// before defaults are filled in.
func load(path string, f flags) (*node.Config, error) {
	cfg := &node.Config{}
	if err := config.Load(path, cfg); err != nil {
		return nil, err
	}
	f.apply(cfg)
	return cfg, nil
}

func run(ctx context.Context, path string, f flags) error {
	cfg, err := load(path, f)
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if err := wire(ctx, app); err != nil {
		return err
	}
	return app.Run(ctx)
}

// wire builds the node's components and registers them on app.
func wire(ctx context.Context, app *bootstrap.App[*node.Config]) error {
	cfg := app.Cfg
	log := app.Logger

	tp, err := observability.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	mp, err := observability.InitMeter(ctx, cfg.Metrics)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("init meter: %w", err)
	}
	tel := &telemetry{tp: tp, mp: mp}
	if err := app.RegisterComponent(tel); err != nil {
		return err
	}

	metrics, err := observability.NewMetrics(mp.Meter(programName))
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	tracer := tracing.NewTracer(cfg.Service, tp, log.WithComponent("tracing"), tracing.WithMetrics(metrics))

	disc := discovery.NewComponent(cfg.Discovery.Config, cfg.Discovery.ProviderConfig(), cfg.Registration(), log.WithComponent("discovery"))
	if err := app.RegisterComponent(disc); err != nil {
		return err
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Downstream.Timeout,
		MaxBodyBytes: cfg.Downstream.MaxBodyBytes,
	})
	if err != nil {
		return fmt.Errorf("init downstream client: %w", err)
	}
	var breakers *resilience.Breakers
	if cb := cfg.Downstream.CircuitBreaker; cb.Enabled {
		breakers = resilience.NewBreakers(cb)
	}

	orch := fanout.New(
		cfg.Identity(),
		cfg.Dependencies(),
		fanout.NewDiscoveryResolver(disc),
		fanout.NewHTTPCaller(client, breakers),
		fanout.WithTimeout(cfg.Downstream.Timeout),
		fanout.WithConcurrency(cfg.Downstream.MaxConcurrency),
		fanout.WithLogger(log.WithComponent("fanout")),
	)

	srv := server.New(cfg.HTTPServer, log.WithComponent("server"))
	srv.ApplyDefaults(cfg.Service, app.Components.HealthAll, mp.Handler())
	handler.New(orch, tracer, cfg.Service, log.WithComponent("handler"), metrics).Register(srv.GinEngine())
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	app.OnReady(announce(tracer, cfg))
	return nil
}

// announce logs the node's identity and dependency declaration once it
// is serving.
func announce(tracer *tracing.Tracer, cfg *node.Config) bootstrap.Hook {
	return func(ctx context.Context) error {
		ssn := tracer.NewSession(ctx)
		defer ssn.End()

		id := cfg.Identity()
		ssn.Info(cfg.Service, fmt.Sprintf(tracing.NodeRegistered, id.Service, id.Version, id.Address))
		if !cfg.Foundational() {
			ssn.Info(cfg.Service, fmt.Sprintf(tracing.NodeDependsOn, node.FormatDependencies(cfg.Dependencies())))
		}
		return nil
	}
}
