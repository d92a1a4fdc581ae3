package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/statekit/bootstrap"
	"github.com/kbukum/statekit/kvstore"
	"github.com/kbukum/statekit/observability"
	"github.com/kbukum/statekit/server"
	"github.com/kbukum/statekit/server/api"
	"github.com/kbukum/statekit/server/middleware"
	"github.com/kbukum/statekit/sse"
	"github.com/kbukum/statekit/statecache"

	// Store providers register themselves with kvstore.
	_ "github.com/kbukum/statekit/kvstore/leveldb"
	_ "github.com/kbukum/statekit/kvstore/object"
	_ "github.com/kbukum/statekit/kvstore/redis"
	_ "github.com/kbukum/statekit/kvstore/sqlite"
)

const meterName = "github.com/kbukum/statekit"

// service holds what wire builds, for callers that need direct access.
type service struct {
	cache  *statecache.Cache
	hub    *sse.Hub
	server *server.Server
}

// wire builds the store, the cache and, when serve is true, the event hub
// and HTTP server, registering them with app in dependency order.
func wire(app *bootstrap.App[*Config], serve bool) (*service, error) {
	cfg := app.Cfg
	log := app.Logger

	cacheMetrics, err := observability.NewCacheMetrics(observability.Meter(meterName))
	if err != nil {
		return nil, err
	}

	store, err := kvstore.New(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := app.RegisterComponent(kvstore.NewComponent(store, cfg.Store.Provider, storeDetails(cfg.Store), log)); err != nil {
		return nil, err
	}

	cache, err := statecache.New(store,
		statecache.WithConfig(cfg.Cache),
		statecache.WithLogger(log),
		statecache.WithMetrics(cacheMetrics),
		statecache.WithProvider(cfg.Store.Provider),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	if err := app.RegisterComponent(statecache.NewComponent(cache)); err != nil {
		return nil, err
	}

	svc := &service{cache: cache}
	if !serve {
		return svc, nil
	}

	svc.hub = sse.NewHub(cfg.Events, log)
	if err := app.RegisterComponent(sse.NewComponent(svc.hub, api.EventsPath)); err != nil {
		return nil, err
	}

	httpMetrics, err := observability.NewHTTPMetrics(observability.Meter(meterName))
	if err != nil {
		return nil, err
	}
	svc.server = server.New(cfg.Server, log)
	svc.server.ApplyMiddleware(httpMetrics)
	svc.server.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
	var guards []gin.HandlerFunc
	if cfg.Server.Auth.Enabled() {
		guards = append(guards, middleware.Auth(cfg.Server.Auth))
	}
	api.New(cache, svc.hub, log).Register(svc.server.Engine(), guards...)
	if err := app.RegisterComponent(server.NewComponent(svc.server)); err != nil {
		return nil, err
	}

	// Bridge after the cache has loaded so the first events reflect
	// durable state; unsubscribe before the hub stops.
	var unsubscribe func()
	app.OnStart(func(context.Context) error {
		u, err := api.Bridge(cache, svc.hub, log)
		unsubscribe = u
		return err
	})
	app.OnStop(func(context.Context) error {
		if unsubscribe != nil {
			unsubscribe()
		}
		return nil
	})

	return svc, nil
}
