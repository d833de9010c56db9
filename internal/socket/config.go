package socket

import "time"

// Config defines the session's bounded waits. Every wait is finite: an
// elapsed bound produces a typed error, never an indefinite block.
type Config struct {
	// ConnectTimeout bounds the websocket dial and upgrade.
	ConnectTimeout time.Duration
	// HandshakeTimeout bounds the wait for the first inbound frame after
	// the connect frame is sent.
	HandshakeTimeout time.Duration
	// HeartbeatInterval is the fixed probe cadence, measured start to start.
	HeartbeatInterval time.Duration
	// AckTimeout bounds the wait for a liveness ack after each probe.
	// It must be shorter than HeartbeatInterval.
	AckTimeout time.Duration
	// WriteTimeout bounds individual frame writes.
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 20 * time.Second,
		AckTimeout:        5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = def.AckTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}
