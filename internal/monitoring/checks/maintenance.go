package checks

import (
	"context"
	"time"

	"github.com/edudao/gatekeeper/internal/app/maintenance"
	"github.com/edudao/gatekeeper/internal/monitoring"
)

// MaintenanceReporter exposes the purge history of the cache cleaner.
type MaintenanceReporter interface {
	Status() maintenance.RunStatus
}

// Maintenance verifies that cache purges succeed and ran within maxAge. A
// failing purge degrades the service; expired rows are also ignored on read.
func Maintenance(reporter MaintenanceReporter, maxAge time.Duration) monitoring.Check {
	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		if reporter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance jobs registered"}
		}

		status := reporter.Status()
		switch {
		case !status.Enabled:
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance jobs registered"}
		case status.TotalRuns == 0:
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "pending first run"}
		case status.ConsecutiveFailures > 0:
			details := "consecutive failures"
			if status.LastError != nil {
				details = status.LastError.Error()
			}
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: details}
		case maxAge > 0 && time.Since(status.LastRunAt) > maxAge:
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: "stale run " + status.LastRunAt.UTC().Format(time.RFC3339),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}
