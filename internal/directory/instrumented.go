package directory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/pkg/logger"
	"github.com/edudao/gatekeeper/pkg/metrics"
)

// Instrumented records latency and outcome for every query against next.
type Instrumented struct {
	next authz.Directory
	log  *zap.Logger
}

var _ authz.Directory = (*Instrumented)(nil)

// NewInstrumented wraps next.
func NewInstrumented(next authz.Directory) *Instrumented {
	return &Instrumented{next: next, log: logger.WithModule("directory")}
}

func (d *Instrumented) QueryRoleAssignments(ctx context.Context, userID string) ([]authz.RoleAssignment, error) {
	defer d.observe("role_assignments", time.Now())
	rows, err := d.next.QueryRoleAssignments(ctx, userID)
	d.record("role_assignments", err, zap.String("user_id", userID), zap.Int("rows", len(rows)))
	return rows, err
}

func (d *Instrumented) QueryRoleIDs(ctx context.Context, userID string) ([]string, error) {
	defer d.observe("role_ids", time.Now())
	ids, err := d.next.QueryRoleIDs(ctx, userID)
	d.record("role_ids", err, zap.String("user_id", userID), zap.Int("rows", len(ids)))
	return ids, err
}

func (d *Instrumented) QueryPermissionGrants(ctx context.Context, roleIDs []string) ([]authz.PermissionGrant, error) {
	defer d.observe("permission_grants", time.Now())
	rows, err := d.next.QueryPermissionGrants(ctx, roleIDs)
	d.record("permission_grants", err, zap.Strings("role_ids", roleIDs), zap.Int("rows", len(rows)))
	return rows, err
}

func (d *Instrumented) observe(query string, start time.Time) {
	metrics.DirectoryLatency.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

func (d *Instrumented) record(query string, err error, fields ...zap.Field) {
	if err != nil {
		metrics.DirectoryQueries.WithLabelValues(query, "error").Inc()
		d.log.Warn("directory query failed", append(fields, zap.String("query", query), zap.Error(err))...)
		return
	}
	metrics.DirectoryQueries.WithLabelValues(query, "ok").Inc()
	d.log.Debug("directory query", append(fields, zap.String("query", query))...)
}
