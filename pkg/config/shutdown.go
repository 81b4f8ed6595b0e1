package config

import (
	"context"
	"fmt"
	"time"
)

// ShutdownConfig bounds how long the servers, the broker connection and the telemetry exporters may take to drain.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// Context returns a context expiring after Timeout. It is detached from the serving
// context, which is already cancelled once shutdown starts.
func (c *ShutdownConfig) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.Timeout)
}

func (c *ShutdownConfig) String() string {
	return fmt.Sprintf("\n--- Shutdown ---\n  drain timeout: %s\n", c.Timeout)
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("drain timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
