package statecache

import (
	"time"

	"github.com/kbukum/statekit/resilience"
	"github.com/kbukum/statekit/validation"
)

// Defaults.
const (
	DefaultDebounce = 100 * time.Millisecond
	DefaultTTL      = 10 * time.Minute
	AccountsTTL     = 5 * time.Minute
)

// Config tunes write batching and staleness.
type Config struct {
	// Debounce is the quiet period after a non-immediate Set before pending
	// writes are flushed.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce" validate:"gt=0"`

	// TTL is the maximum age per category; categories not listed use DefaultTTL.
	TTL        map[string]time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"dive,keys,required,endkeys,gt=0"`
	DefaultTTL time.Duration            `yaml:"default_ttl" mapstructure:"default_ttl" validate:"gt=0"`

	// FlushRetry retries failed durable writes. One attempt by default.
	FlushRetry resilience.RetryConfig `yaml:"flush_retry" mapstructure:"flush_retry"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.TTL == nil {
		c.TTL = map[string]time.Duration{
			CategoryAccounts:     AccountsTTL,
			CategorySpreadsheets: DefaultTTL,
		}
	}
	c.FlushRetry.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// TTLFor returns the TTL of category.
func (c *Config) TTLFor(category string) time.Duration {
	if ttl, ok := c.TTL[category]; ok {
		return ttl
	}
	return c.DefaultTTL
}
