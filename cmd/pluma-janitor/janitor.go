package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/sirupsen/logrus"
)

type retentionStore interface {
	Cleanup(ctx context.Context, policy audit.RetentionPolicy) (int64, error)
}

type poolStatser interface {
	Stats() sql.DBStats
}

// janitor holds the scheduled maintenance jobs
type janitor struct {
	audit         retentionStore
	pool          poolStatser
	log           logrus.FieldLogger
	retentionDays int
	timeout       time.Duration
}

// purgeAudit deletes audit entries older than the retention window
func (j *janitor) purgeAudit(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	deleted, err := j.audit.Cleanup(ctx, audit.RetentionPolicy{RetentionDays: j.retentionDays})
	if err != nil {
		j.log.WithError(err).Error("Audit retention sweep failed")
		return err
	}

	j.log.WithFields(logrus.Fields{
		"deleted":        deleted,
		"retention_days": j.retentionDays,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("Audit retention sweep complete")
	return nil
}

// snapshotPool logs connection pool statistics and warns when callers had
// to wait for a connection since the last snapshot
func (j *janitor) snapshotPool(lastWaitCount int64) int64 {
	stats := j.pool.Stats()
	entry := j.log.WithFields(logrus.Fields{
		"open":          stats.OpenConnections,
		"in_use":        stats.InUse,
		"idle":          stats.Idle,
		"wait_count":    stats.WaitCount,
		"wait_duration": stats.WaitDuration.String(),
	})

	if stats.WaitCount > lastWaitCount {
		entry.Warn("Database pool saturated since last snapshot")
	} else {
		entry.Info("Database pool snapshot")
	}
	return stats.WaitCount
}
