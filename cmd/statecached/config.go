package main

import (
	"fmt"

	"github.com/kbukum/statekit/config"
	"github.com/kbukum/statekit/kvstore"
	"github.com/kbukum/statekit/observability"
	"github.com/kbukum/statekit/server"
	"github.com/kbukum/statekit/sse"
	"github.com/kbukum/statekit/statecache"
	"github.com/kbukum/statekit/util"
	"github.com/kbukum/statekit/version"
)

const serviceName = "statecached"

// Config is the statecached configuration file layout.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Store     kvstore.Config       `yaml:"store" mapstructure:"store"`
	Cache     statecache.Config    `yaml:"cache" mapstructure:"cache"`
	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Events    sse.Config           `yaml:"events" mapstructure:"events"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills defaults for every section.
func (c *Config) ApplyDefaults() {
	c.Name = util.Coalesce(c.Name, serviceName)
	c.Version = util.Coalesce(c.Version, version.Short())
	c.ServiceConfig.ApplyDefaults()

	c.Store.ApplyDefaults()
	c.Cache.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Events.ApplyDefaults()

	c.Telemetry.ServiceName = c.Name
	c.Telemetry.ServiceVersion = c.Version
	c.Telemetry.Environment = c.Environment
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return c.Telemetry.Validate()
}

// storeDetails summarizes the store configuration for the startup log.
// Secrets are masked.
func storeDetails(cfg kvstore.Config) string {
	d := providerDetails(cfg)
	if cfg.Encryption.Enabled() {
		d += " encrypted=" + cfg.Encryption.Algorithm
	}
	return d
}

func providerDetails(cfg kvstore.Config) string {
	switch cfg.Provider {
	case kvstore.ProviderRedis:
		d := fmt.Sprintf("redis %s db=%d prefix=%s", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if cfg.Redis.Password != "" {
			d += " password=" + util.MaskSecret(cfg.Redis.Password, 2)
		}
		if cfg.Redis.TLS.IsEnabled() {
			d += " tls"
		}
		return d
	case kvstore.ProviderSQLite:
		return fmt.Sprintf("sqlite %s table=%s", cfg.SQLite.Path, cfg.SQLite.Table)
	case kvstore.ProviderLevelDB:
		return fmt.Sprintf("leveldb %s prefix=%s", cfg.LevelDB.Path, cfg.LevelDB.KeyPrefix)
	case kvstore.ProviderObject:
		obj := cfg.Object
		if obj.Provider == "s3" {
			d := fmt.Sprintf("s3 bucket=%s prefix=%s", obj.Bucket, obj.Prefix)
			if obj.AccessKey != "" {
				d += " access_key=" + util.MaskSecret(obj.AccessKey, 4)
			}
			return d
		}
		return fmt.Sprintf("local %s prefix=%s", obj.BasePath, obj.Prefix)
	default:
		return cfg.Provider
	}
}
