// Command spacefy-usage-reporter periodically recalculates per-business
// object storage usage from the S3 bucket and persists it for the API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/youssef3092004/Spacefy/pkg/config"
	"github.com/youssef3092004/Spacefy/pkg/observability"
	"github.com/youssef3092004/Spacefy/pkg/storage/postgres"
	"github.com/youssef3092004/Spacefy/pkg/storage/s3"
	"github.com/youssef3092004/Spacefy/pkg/usage"
)

const defaultSchedule = "@hourly"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if !cfg.Storage.Enabled {
		log.Fatal("object storage must be enabled for the usage reporter")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, postgres.ConnectionConfig{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	objects, err := s3.New(ctx, s3.Config{
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create object storage client")
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)
	reporter := usage.NewReporter(db, objects, logger, nil, 4)

	schedule := os.Getenv("SPACEFY_USAGE_SCHEDULE")
	if schedule == "" {
		schedule = defaultSchedule
	}

	runOnce := func() {
		updated, err := reporter.Run(ctx)
		if err != nil {
			log.WithError(err).Error("usage recalculation failed")
			return
		}
		log.WithField("updated", updated).Info("usage recalculation completed")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, runOnce); err != nil {
		log.WithError(err).WithField("schedule", schedule).Fatal("invalid schedule")
	}

	log.WithField("schedule", schedule).Info("starting usage reporter")
	runOnce()
	c.Start()

	<-ctx.Done()
	log.Info("shutting down")
	<-c.Stop().Done()
}
