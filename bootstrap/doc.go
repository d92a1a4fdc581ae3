// Package bootstrap runs a service's lifecycle: it validates the typed
// configuration, initializes logging, starts registered components in
// order, runs lifecycle hooks, waits for a shutdown signal, and stops
// components in reverse order within a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(storeComponent)
//	app.RegisterComponent(cacheComponent)
//	app.RegisterComponent(serverComponent)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// RunTask runs the same lifecycle around a finite task instead of waiting
// for a signal.
package bootstrap
