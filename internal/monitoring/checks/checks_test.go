package checks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edudao/gatekeeper/internal/app/maintenance"
	"github.com/edudao/gatekeeper/internal/database/testutil"
	"github.com/edudao/gatekeeper/internal/directory"
	"github.com/edudao/gatekeeper/internal/monitoring"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type reporter struct{ status maintenance.RunStatus }

func (r reporter) Status() maintenance.RunStatus { return r.status }

type blockingDirectory struct{ *directory.Static }

func (blockingDirectory) QueryRoleIDs(ctx context.Context, _ string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	result := Database(db, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	result = Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	result = Database(db, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

func TestRedisCheckDegradesOnFailure(t *testing.T) {
	require.Equal(t, monitoring.StatusUp, Redis(pinger{}, 0).Run(context.Background()).Status)
	require.Equal(t, monitoring.StatusDegraded, Redis(pinger{err: errors.New("refused")}, 0).Run(context.Background()).Status)
	require.Equal(t, monitoring.StatusDegraded, Redis(nil, 0).Run(context.Background()).Status)
}

func TestDirectoryCheck(t *testing.T) {
	result := Directory(directory.NewDemoStatic(), 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	result = Directory(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)

	result = Directory(blockingDirectory{directory.NewStatic()}, 10*time.Millisecond).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
}

func TestMaintenanceCheck(t *testing.T) {
	ctx := context.Background()

	require.Equal(t, monitoring.StatusUp, Maintenance(nil, 0).Run(ctx).Status)
	require.Equal(t, monitoring.StatusUp, Maintenance(reporter{}, 0).Run(ctx).Status)

	pending := reporter{status: maintenance.RunStatus{Enabled: true}}
	require.Equal(t, "pending first run", Maintenance(pending, 0).Run(ctx).Details)

	failing := reporter{status: maintenance.RunStatus{
		Enabled:             true,
		TotalRuns:           3,
		LastRunAt:           time.Now(),
		LastError:           errors.New("disk full"),
		ConsecutiveFailures: 2,
	}}
	result := Maintenance(failing, 0).Run(ctx)
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Equal(t, "disk full", result.Details)

	stale := reporter{status: maintenance.RunStatus{Enabled: true, TotalRuns: 1, LastRunAt: time.Now().Add(-2 * time.Hour)}}
	require.Equal(t, monitoring.StatusDegraded, Maintenance(stale, time.Hour).Run(ctx).Status)
	require.Equal(t, monitoring.StatusUp, Maintenance(stale, 0).Run(ctx).Status)
}
