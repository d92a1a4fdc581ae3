package sse

import "time"

// Config tunes client buffering and keep-alives.
type Config struct {
	// ClientBuffer is the number of events queued per client before new
	// events are dropped for that client.
	ClientBuffer int `yaml:"client_buffer" mapstructure:"client_buffer" validate:"gte=0"`
	// KeepAlive is the interval between keep-alive comments.
	KeepAlive time.Duration `yaml:"keep_alive" mapstructure:"keep_alive" validate:"gte=0"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ClientBuffer <= 0 {
		c.ClientBuffer = 64
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 30 * time.Second
	}
}
