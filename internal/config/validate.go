package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Realtime.validate(); err != nil {
		return fmt.Errorf("realtime: %w", err)
	}

	if c.Realtime.IsRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required in redis mode")
	}

	return nil
}

func (r *RealtimeConfig) validate() error {
	switch r.Mode {
	case ModeMemory, ModeRedis:
	default:
		return fmt.Errorf("mode must be %q or %q (got %q)", ModeMemory, ModeRedis, r.Mode)
	}
	if r.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	if r.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", r.Workers)
	}
	if r.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0 (got %d)", r.QueueSize)
	}
	if r.DispatchConcurrency <= 0 {
		return fmt.Errorf("dispatch_concurrency must be > 0 (got %d)", r.DispatchConcurrency)
	}
	if r.BackoffInitial <= 0 || r.BackoffMax < r.BackoffInitial {
		return fmt.Errorf("backoff must satisfy 0 < backoff_initial <= backoff_max (got %s, %s)", r.BackoffInitial, r.BackoffMax)
	}
	if r.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be > 0 (got %d)", r.SendBuffer)
	}

	if r.NodeID == "" {
		r.NodeID = defaultNodeID()
	}
	return nil
}

// defaultNodeID is unique per process so a node recognises its own bus
// messages.
func defaultNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}
