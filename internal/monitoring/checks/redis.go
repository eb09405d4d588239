package checks

import (
	"context"
	"time"

	"github.com/edudao/gatekeeper/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPinger is the part of the redis cache store the probe needs.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis returns a readiness probe for the redis directory cache. A broken
// cache only degrades the service because lookups fall through to the store.
func Redis(client RedisPinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "redis unavailable"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultRedisTimeout))
		defer cancel()

		if err := client.Ping(probeCtx); err != nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
