package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	storepostgres "github.com/tornadohq/tornado/internal/configstore/postgres"
	dbpostgres "github.com/tornadohq/tornado/internal/database/postgres"
	"github.com/tornadohq/tornado/internal/dispatcher"
	"github.com/tornadohq/tornado/internal/engine"
	"github.com/tornadohq/tornado/internal/engineconfig"
	"github.com/tornadohq/tornado/internal/executor"
	"github.com/tornadohq/tornado/internal/retry"
	"github.com/tornadohq/tornado/internal/telemetry/logger"
	"github.com/tornadohq/tornado/internal/telemetry/metrics"
)

var configFile string

func init() {
	startCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a YAML configuration file")
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the Tornado engine until SIGINT/SIGTERM",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := engineconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(log)
	log.Info("starting tornado engine")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig := &dbpostgres.Config{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		Database:          cfg.Database.Database,
		User:              cfg.Database.User,
		Password:          cfg.Database.Password,
		SSLMode:           cfg.Database.SSLMode,
		MaxConns:          20,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    30 * time.Second,
	}
	pool := dbpostgres.NewPool(dbConfig, log)
	if err := pool.Connect(ctx); err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Disconnect(context.Background())
	log.Info("connected to postgres")

	if err := storepostgres.RunMigrations(dbConfig.DSN(), log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := storepostgres.New(pool, log)

	var bus dispatcher.EventBus
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		bus = dispatcher.NewRedisEventBus(client, log)
		log.Info("using redis event bus", "addr", cfg.Redis.Addr)
	} else {
		bus = dispatcher.NewLocalEventBus(cfg.Actors.MailboxCapacity, log)
		log.Info("using in-process event bus")
	}

	reg := metrics.New()

	eng, err := engine.New(ctx, engine.Config{
		MailboxCapacity:            cfg.Actors.MailboxCapacity,
		MatcherPoolSize:            cfg.Actors.MatcherPoolSize,
		RestartsPerSecond:          cfg.Actors.RestartsPerSecond,
		RestartBurst:               cfg.Actors.RestartBurst,
		CircuitBreakerMaxFailures:  cfg.Retry.CircuitBreakerMaxFailures,
		CircuitBreakerResetTimeout: cfg.Retry.CircuitBreakerResetTimeout,
	}, store, bus, reg, log)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	strategy := retry.Strategy{
		Policy:  retry.MaxRetries(cfg.Retry.MaxRetries),
		Backoff: retry.FixedBackoff(cfg.Retry.FixedBackoff.Milliseconds()),
	}
	eng.RegisterExecutor("archive", executor.NewArchiveExecutor(executor.ArchiveConfig{
		BasePath:    "./archive",
		DefaultPath: "unknown.jsonl",
	}), strategy)
	eng.RegisterExecutor("foreach", executor.NewForEachExecutor(bus), strategy)

	go reconfigureLoop(ctx, eng, cfg.Engine.ReconfigurePollInterval, log)

	log.Info("tornado engine running", "matcher_pool_size", cfg.Actors.MatcherPoolSize)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func reconfigureLoop(ctx context.Context, eng *engine.Engine, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := eng.Reconfigure(ctx); err != nil {
				log.Warn("reconfigure failed, keeping previous configuration", "error", err)
			}
		}
	}
}
