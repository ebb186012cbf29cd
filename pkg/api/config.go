package api

import (
	"net"
	"strconv"
	"time"
)

const (
	defaultAddress      = "localhost"
	defaultPort         = 9180
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// APIConfig configures the management API server.
type APIConfig struct {
	// Enabled is nil when unset, which counts as enabled.
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	Address string `mapstructure:"address" yaml:"address"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IsEnabled reports whether the server should run.
func (c *APIConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Addr returns host:port.
func (c *APIConfig) Addr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// ApplyDefaults fills zero fields. Enabled stays nil, which IsEnabled reads
// as enabled.
func (c *APIConfig) ApplyDefaults() {
	if c.Address == "" {
		c.Address = defaultAddress
	}
	if c.Port <= 0 {
		c.Port = defaultPort
	}
	for _, d := range []struct {
		field *time.Duration
		value time.Duration
	}{
		{&c.ReadTimeout, defaultReadTimeout},
		{&c.WriteTimeout, defaultWriteTimeout},
		{&c.IdleTimeout, defaultIdleTimeout},
	} {
		if *d.field == 0 {
			*d.field = d.value
		}
	}
}
