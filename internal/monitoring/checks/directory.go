package checks

import (
	"context"
	"time"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/monitoring"
)

const (
	defaultDirectoryTimeout = 2 * time.Second
	probeSubject            = "healthcheck"
)

// Directory returns a readiness probe that runs a role id query for a subject
// with no assignments, exercising the same path the resolver uses.
func Directory(dir authz.Directory, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("directory", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if dir == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "directory not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDirectoryTimeout))
		defer cancel()

		if _, err := dir.QueryRoleIDs(probeCtx, probeSubject); err != nil {
			return monitoring.ResultFromError("directory", err, time.Since(start))
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
