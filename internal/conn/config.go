package conn

import "time"

// TLSConfig enables TLS towards producers fronted by a terminating
// proxy. Disabled by default; the collector protocol itself is
// transport-agnostic.
type TLSConfig struct {
	Enabled            bool
	ServerName         string
	CAFile             string
	InsecureSkipVerify bool
}

// Config defines connection transport and timeout behavior.
type Config struct {
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
	MaxFrameDelay  time.Duration
	WriteTimeout   time.Duration
	TLS            TLSConfig
}

// DefaultConfig returns conservative defaults for production producers:
// long idle gaps between frames are tolerated, a started frame must
// finish promptly.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxFrameDelay:  15 * time.Second,
		WriteTimeout:   15 * time.Second,
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.MaxFrameDelay <= 0 {
		c.MaxFrameDelay = def.MaxFrameDelay
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}
