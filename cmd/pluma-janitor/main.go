package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/config"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	poolSchedule = flag.String("pool-schedule", "*/5 * * * *", "Cron schedule for database pool snapshots")
	jobTimeout   = flag.Duration("job-timeout", 10*time.Minute, "Upper bound for a single job run")
	runOnce      = flag.Bool("run-once", false, "Run the audit retention sweep once and exit")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Observability.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cm, err := postgres.NewConnectionManager(ctx, cfg.ConnectionConfig())
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer cm.Close()

	auditStore, err := audit.NewDBLogger(cm.DB())
	if err != nil {
		log.WithError(err).Fatal("Failed to create audit store")
	}

	j := &janitor{
		audit:         auditStore,
		pool:          cm,
		log:           log.WithField("component", "janitor"),
		retentionDays: cfg.Audit.RetentionDays,
		timeout:       *jobTimeout,
	}

	if *runOnce {
		if err := j.purgeAudit(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if cfg.Audit.Enabled {
		_, err = c.AddFunc(cfg.Audit.CleanupSchedule, func() {
			_ = j.purgeAudit(ctx)
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to schedule audit retention sweep")
		}
	} else {
		log.Info("Audit trail disabled; retention sweep not scheduled")
	}

	var lastWait atomic.Int64
	_, err = c.AddFunc(*poolSchedule, func() {
		lastWait.Store(j.snapshotPool(lastWait.Load()))
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule pool snapshots")
	}

	c.Start()
	log.WithFields(logrus.Fields{
		"audit_schedule": cfg.Audit.CleanupSchedule,
		"pool_schedule":  *poolSchedule,
	}).Info("Pluma janitor started")

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	// Wait for running jobs to finish
	<-c.Stop().Done()
	log.Info("Janitor stopped")
}
