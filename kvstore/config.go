package kvstore

import (
	"fmt"
	"time"

	"github.com/kbukum/statekit/encryption"
	"github.com/kbukum/statekit/security"
	"github.com/kbukum/statekit/storage"
	"github.com/kbukum/statekit/validation"
)

// Provider names.
const (
	ProviderMemory  = "memory"
	ProviderRedis   = "redis"
	ProviderSQLite  = "sqlite"
	ProviderObject  = "object"
	ProviderLevelDB = "leveldb"
)

// DefaultKeyPrefix namespaces keys in shared backends.
const DefaultKeyPrefix = "statecache"

// Config selects and configures the durable store.
type Config struct {
	// Provider selects the backend: memory, redis, sqlite, leveldb or object.
	Provider string `yaml:"provider" mapstructure:"provider"`

	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	SQLite  SQLiteConfig  `yaml:"sqlite" mapstructure:"sqlite"`
	LevelDB LevelDBConfig `yaml:"leveldb" mapstructure:"leveldb"`
	Object  ObjectConfig  `yaml:"object" mapstructure:"object"`

	Encryption EncryptionConfig `yaml:"encryption" mapstructure:"encryption"`
}

// EncryptionConfig enables at-rest encryption of stored values. An empty
// key leaves values in the clear.
type EncryptionConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm" validate:"omitempty,oneof=aes-256-gcm chacha20-poly1305"`
}

// Enabled reports whether a key is configured.
func (c *EncryptionConfig) Enabled() bool { return c.Key != "" }

// RedisConfig configures the redis provider.
type RedisConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db" validate:"gte=0"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size" validate:"gt=0"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns" validate:"gte=0"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gt=0"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gt=0"`
	// KeyPrefix namespaces the cache's keys; Clear only touches keys under it.
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix" validate:"required,excludesall=*?[]"`
	// TLS secures the connection to managed or remote Redis.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *RedisConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// SQLiteConfig configures the sqlite provider.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
	// Table holds one row per field.
	Table       string        `yaml:"table" mapstructure:"table" validate:"required,alphanum"`
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout" validate:"gte=0"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *SQLiteConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "./data/statecache.db"
	}
	if c.Table == "" {
		c.Table = DefaultKeyPrefix
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

// LevelDBConfig configures the leveldb provider.
type LevelDBConfig struct {
	// Path is the database directory.
	Path      string `yaml:"path" mapstructure:"path" validate:"required"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix" validate:"required"`
	// Sync fsyncs every batch.
	Sync bool `yaml:"sync" mapstructure:"sync"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *LevelDBConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "./data/statecache.ldb"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// ObjectConfig configures the object provider.
type ObjectConfig struct {
	storage.Config `yaml:",inline" mapstructure:",squash"`
	// Prefix is the directory (or key prefix) holding one object per field.
	Prefix string `yaml:"prefix" mapstructure:"prefix" validate:"required,excludes=.."`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *ObjectConfig) ApplyDefaults() {
	c.Config.ApplyDefaults()
	if c.Prefix == "" {
		c.Prefix = DefaultKeyPrefix
	}
}

// ApplyDefaults fills defaults for the selected provider only.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderMemory
	}
	if c.Encryption.Enabled() && c.Encryption.Algorithm == "" {
		c.Encryption.Algorithm = string(encryption.AlgorithmAESGCM)
	}
	switch c.Provider {
	case ProviderRedis:
		c.Redis.ApplyDefaults()
	case ProviderSQLite:
		c.SQLite.ApplyDefaults()
	case ProviderLevelDB:
		c.LevelDB.ApplyDefaults()
	case ProviderObject:
		c.Object.ApplyDefaults()
	}
}

// Validate checks the provider name and the selected provider's section.
func (c *Config) Validate() error {
	var section any
	switch c.Provider {
	case ProviderMemory:
	case ProviderRedis:
		section = &c.Redis
	case ProviderSQLite:
		section = &c.SQLite
	case ProviderLevelDB:
		section = &c.LevelDB
	case ProviderObject:
		section = &c.Object
	default:
		return fmt.Errorf("kvstore: unsupported provider %q", c.Provider)
	}
	if section != nil {
		if err := validation.Validate(section); err != nil {
			return fmt.Errorf("kvstore.%s: %w", c.Provider, err)
		}
	}
	if err := validation.Validate(&c.Encryption); err != nil {
		return fmt.Errorf("kvstore.encryption: %w", err)
	}
	return nil
}
