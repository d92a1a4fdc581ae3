// Command statecached owns one state cache per process and serves it to UI
// panels over HTTP and server-sent events.
//
//	statecached -config ./config.yml
//	statecached -clear -preserve   # erase stored state and exit
//	statecached -issue-token popup # print a bearer token for a panel
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/statekit/bootstrap"
	"github.com/kbukum/statekit/config"
	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/observability"
	"github.com/kbukum/statekit/server/middleware"
	"github.com/kbukum/statekit/version"
)

func main() {
	var (
		configFile  = flag.String("config", "", "path to config.yml (default: search standard locations)")
		envFile     = flag.String("env", "", "path to a .env file")
		clearState  = flag.Bool("clear", false, "erase stored state and exit")
		preserve    = flag.Bool("preserve", true, "with -clear, keep preserved fields such as onboarding")
		showVersion = flag.Bool("version", false, "print version and exit")
		issueFor    = flag.String("issue-token", "", "print a bearer token for the named panel and exit")
		tokenTTL    = flag.Duration("token-ttl", 24*time.Hour, "with -issue-token, token lifetime")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(serviceName, version.Short())
		return
	}

	if *issueFor != "" {
		if err := issueToken(*configFile, *envFile, *issueFor, *tokenTTL); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configFile, *envFile, *clearState, *preserve); err != nil {
		logger.Error("statecached exited with error", logger.ErrorFields("run", err))
		os.Exit(1)
	}
}

func loadConfig(configFile, envFile string) (*Config, error) {
	var cfg Config
	opts := []config.LoaderOption{config.WithEnvPrefix("STATECACHED")}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func issueToken(configFile, envFile, subject string, ttl time.Duration) error {
	cfg, err := loadConfig(configFile, envFile)
	if err != nil {
		return err
	}
	if !cfg.Server.Auth.Enabled() {
		return fmt.Errorf("server.auth.secret is not set")
	}
	token, err := middleware.SignToken(&cfg.Server.Auth, subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func run(configFile, envFile string, clearState, preserve bool) error {
	ctx := context.Background()

	cfg, err := loadConfig(configFile, envFile)
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	shutdownTelemetry, err := observability.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			app.Logger.Warn("telemetry shutdown", logger.ErrorFields("telemetry_shutdown", err))
		}
	}()

	svc, err := wire(app, !clearState)
	if err != nil {
		return err
	}

	if clearState {
		return app.RunTask(ctx, func(ctx context.Context) error {
			if err := svc.cache.Clear(ctx, preserve); err != nil {
				return err
			}
			app.Logger.Info("state cleared", logger.Fields("preserve", preserve))
			return nil
		})
	}
	return app.Run(ctx)
}
