// Command spacefy runs the Spacefy HTTP API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/youssef3092004/Spacefy/pkg/api"
	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/cache"
	"github.com/youssef3092004/Spacefy/pkg/config"
	"github.com/youssef3092004/Spacefy/pkg/observability"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage/postgres"
	"github.com/youssef3092004/Spacefy/pkg/storage/s3"
)

const blacklistPurgeInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "spacefy: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.OTel.Enabled,
		Endpoint:       cfg.OTel.Endpoint,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.OTel.ServiceVersion,
		Insecure:       cfg.OTel.Insecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := observability.ShutdownOTel(shutdownCtx, providers, logger); err != nil {
			logger.WithError(err).Error("OpenTelemetry shutdown failed")
		}
	}()

	db, err := postgres.Connect(ctx, postgres.ConnectionConfig{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	postgres.StartPoolGaugeRoutine(ctx, db, metrics, 15*time.Second)

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	if err := permissions.Migrate(ctx, db); err != nil {
		return err
	}

	users := postgres.NewUserStore(db)
	if cfg.Auth.SeedOnStartup {
		if err := users.SeedRoles(ctx); err != nil {
			return err
		}
		n, err := permissions.Seed(ctx, db)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.WithField("count", n).Info("seeded permissions")
		}
	}

	cacheClient, err := cache.NewClient(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}
	defer cacheClient.Close()

	invalidator := cache.NewInvalidator(cacheClient, metrics)
	cacher := cache.NewCacher(cacheClient, invalidator, logger, cache.CacherOptions{
		Enabled: cfg.Cache.Enabled,
		TTLList: cfg.Cache.TTLList,
		TTLByID: cfg.Cache.TTLByID,
		Metrics: metrics,
	})

	var objects *s3.Store
	if cfg.Storage.Enabled {
		objects, err = s3.New(ctx, s3.Config{
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			return err
		}
	}

	permStore := permissions.NewPostgresStore(db)
	resolver := permissions.NewResolver(permStore, permissions.ResolverOptions{
		BypassRoles: cfg.Auth.BypassRoles,
		MemoSize:    cfg.Auth.PermMemoSize,
		MemoTTL:     cfg.Auth.PermMemoTTL,
		Metrics:     metrics,
	})
	blacklist := auth.NewBlacklist(db)

	server := api.NewServer(api.Deps{
		DB:          db,
		Logger:      logger,
		Metrics:     metrics,
		Tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Blacklist:   blacklist,
		Resolver:    resolver,
		PermStore:   permStore,
		Cacher:      cacher,
		Users:       users,
		Branches:    postgres.NewBranchStore(db),
		Businesses:  postgres.NewBusinessStore(db),
		Spaces:      postgres.NewSpaceStore(db),
		Staff:       postgres.NewStaffStore(db),
		Objects:     objects,
		DefaultRole: cfg.Auth.DefaultRole,
		TracingOn:   cfg.OTel.Enabled,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		runBlacklistPurge(gctx, blacklist, metrics, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runBlacklistPurge drops expired blacklist rows on an interval and
// keeps the blacklist gauge current.
func runBlacklistPurge(ctx context.Context, blacklist *auth.Blacklist, metrics *observability.Metrics, logger *observability.Logger) {
	ticker := time.NewTicker(blacklistPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := blacklist.PurgeExpired(ctx)
			if err != nil {
				logger.WithError(err).Warn("blacklist purge failed")
				continue
			}
			if n > 0 {
				logger.WithField("purged", n).Debug("purged expired blacklist tokens")
			}
			if count, err := blacklist.Count(ctx); err == nil {
				metrics.BlacklistedTokens.Set(float64(count))
			}
		case <-ctx.Done():
			return
		}
	}
}
