package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/statekit/bootstrap"
	"github.com/kbukum/statekit/config"
	"github.com/kbukum/statekit/kvstore"
	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/server/middleware"
	"github.com/kbukum/statekit/statecache"
)

func newConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.Store.Provider = kvstore.ProviderSQLite
	cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "state.db")
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	return cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Name != serviceName || cfg.Store.Provider != kvstore.ProviderMemory {
		t.Errorf("unexpected defaults: name=%q provider=%q", cfg.Name, cfg.Store.Provider)
	}
	if cfg.Telemetry.ServiceName != serviceName {
		t.Errorf("telemetry service name not propagated: %q", cfg.Telemetry.ServiceName)
	}
}

func TestConfigValidateRejectsProvider(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Provider = "etcd"
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestLoadShippedConfig(t *testing.T) {
	var cfg Config
	if err := config.Load(serviceName, &cfg, config.WithConfigFile("config.yml")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Provider != kvstore.ProviderSQLite || cfg.Server.Port != 8787 {
		t.Errorf("unexpected config: provider=%q port=%d", cfg.Store.Provider, cfg.Server.Port)
	}
	if cfg.Cache.TTLFor(statecache.CategoryAccounts) != 5*time.Minute {
		t.Errorf("accounts TTL = %v", cfg.Cache.TTLFor(statecache.CategoryAccounts))
	}
}

func TestStoreDetailsMasksSecrets(t *testing.T) {
	cfg := kvstore.Config{Provider: kvstore.ProviderRedis}
	cfg.Redis.Password = "hunter2-long-secret"
	cfg.ApplyDefaults()

	d := storeDetails(cfg)
	if strings.Contains(d, "hunter2-long-secret") {
		t.Errorf("password leaked: %s", d)
	}
	if !strings.Contains(d, "localhost:6379") {
		t.Errorf("expected address in %s", d)
	}

	cfg.Encryption.Key = "value-key"
	cfg.ApplyDefaults()
	if d := storeDetails(cfg); strings.Contains(d, "value-key") || !strings.Contains(d, "encrypted=aes-256-gcm") {
		t.Errorf("unexpected encryption details: %s", d)
	}
}

func TestWireServesState(t *testing.T) {
	cfg := newConfig(t)
	app, err := bootstrap.NewApp(cfg, bootstrap.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	svc, err := wire(app, true)
	if err != nil {
		t.Fatal(err)
	}

	names := []string{}
	for _, c := range app.Components.All() {
		names = append(names, c.Name())
	}
	if strings.Join(names, ",") != "kvstore,statecache,sse,http-server" {
		t.Fatalf("unexpected component order %v", names)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for svc.cache.Status() != statecache.StatusReady || app.Components.Get("http-server").Health(ctx).Status != "healthy" {
		if time.Now().After(deadline) {
			t.Fatal("service did not become ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/v1/state",
		strings.NewReader(`{"updates":{"hasCompletedInitialOnboarding":true},"wait":true}`))
	req.Header.Set("Content-Type", "application/json")
	svc.server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("PATCH: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	svc.server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	var health map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &health)
	if health["status"] != "healthy" {
		t.Errorf("health = %v", health)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestClearTaskPreservesOnboarding(t *testing.T) {
	cfg := newConfig(t)

	seed, err := bootstrap.NewApp(cfg, bootstrap.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	svc, err := wire(seed, false)
	if err != nil {
		t.Fatal(err)
	}
	err = seed.RunTask(context.Background(), func(ctx context.Context) error {
		return svc.cache.SetAndWait(ctx, statecache.Values{
			statecache.FieldSheetID:                "sheet-1",
			statecache.FieldHasCompletedOnboarding: true,
		}, true)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	app, _ := bootstrap.NewApp(cfg, bootstrap.WithLogger(logger.Nop()))
	svc, err = wire(app, false)
	if err != nil {
		t.Fatal(err)
	}
	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		if v, _ := svc.cache.Get(statecache.FieldSheetID); v != "sheet-1" {
			t.Errorf("expected seeded sheetId, got %v", v)
		}
		return svc.cache.Clear(ctx, true)
	})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}

	check, _ := bootstrap.NewApp(cfg, bootstrap.WithLogger(logger.Nop()))
	svc, _ = wire(check, false)
	_ = check.RunTask(context.Background(), func(context.Context) error {
		if v, _ := svc.cache.Get(statecache.FieldSheetID); v != nil {
			t.Errorf("sheetId should be cleared, got %v", v)
		}
		if v, _ := svc.cache.Get(statecache.FieldHasCompletedOnboarding); v != true {
			t.Errorf("onboarding should survive, got %v", v)
		}
		return nil
	})
}

func TestWireGuardsAPIWithToken(t *testing.T) {
	cfg := newConfig(t)
	cfg.Server.Auth.Secret = "panel-secret"
	cfg.Store.Encryption.Key = "value-key"
	app, err := bootstrap.NewApp(cfg, bootstrap.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	svc, err := wire(app, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := app.Components.Get("kvstore").(*kvstore.Component).Store().(*kvstore.EncryptedStore); !ok {
		t.Error("expected the store to be wrapped for encryption")
	}

	get := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		svc.server.Handler().ServeHTTP(rr, req)
		return rr.Code
	}

	if code := get("/v1/state", ""); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", code)
	}
	if code := get("/alive", ""); code != http.StatusOK {
		t.Errorf("probes must stay open, got %d", code)
	}
	token, err := middleware.SignToken(&cfg.Server.Auth, "popup", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if code := get("/v1/state", token); code != http.StatusOK {
		t.Errorf("expected 200 with a token, got %d", code)
	}
}
