// Package bootstrap runs the lifecycle of a microcosm node.
//
// An App validates the typed node configuration, initializes the logger,
// starts registered components in order, runs the start and ready hooks,
// waits for SIGINT or SIGTERM, then runs the stop hooks and stops the
// components in reverse order.
//
//	app, err := bootstrap.NewApp(cfg)
//	app.RegisterComponent(discoveryComponent)
//	app.RegisterComponent(server.NewComponent(srv))
//	app.OnReady(announce)
//	err = app.Run(ctx)
package bootstrap
