// worker is the batch matching process: it connects the configured
// infrastructure, executes one matching run end to end, and exits.  SIGINT
// or SIGTERM aborts the run; an aborted run resumes from its checkpoint
// with --resume.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filamentproject/filament/internal/application/matching"
	"github.com/filamentproject/filament/internal/config"
	neo4jdriver "github.com/filamentproject/filament/internal/infrastructure/database/neo4j"
	"github.com/filamentproject/filament/internal/infrastructure/database/postgres"
	"github.com/filamentproject/filament/internal/infrastructure/database/postgres/repositories"
	redisclient "github.com/filamentproject/filament/internal/infrastructure/database/redis"
	kafkaproducer "github.com/filamentproject/filament/internal/infrastructure/messaging/kafka"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/prometheus"
	milvusclient "github.com/filamentproject/filament/internal/infrastructure/search/milvus"
	minioclient "github.com/filamentproject/filament/internal/infrastructure/storage/minio"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	resumeRunID := flag.String("resume", "", "run id of an aborted run to resume")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Named("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *resumeRunID, log); err != nil {
		log.Error("run failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, resumeRunID string, log logging.Logger) error {
	// Postgres is the system of record; everything else is optional.
	pgCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
	if err := postgres.Migrate(pgCfg, log); err != nil {
		return err
	}
	pool, err := postgres.NewPool(ctx, pgCfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps := matching.Dependencies{
		Cases:   repositories.NewCaseRepository(pool.Pool(), log),
		Runs:    repositories.NewRunRepository(pool.Pool(), log),
		Leads:   repositories.NewLeadRepository(pool.Pool(), log),
		Metrics: prometheus.NewMetrics(),
		Logger:  log,
	}

	redisCli, err := redisclient.NewClient(redisclient.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer redisCli.Close()
	deps.Checkpoints = redisclient.NewCheckpointStore(redisCli,
		cfg.Redis.KeyPrefix, cfg.Redis.CheckpointTTL, log)

	if cfg.Neo4j.Enabled {
		driver, err := neo4jdriver.NewDriver(neo4jdriver.Config{
			URI:                   cfg.Neo4j.URI,
			User:                  cfg.Neo4j.User,
			Password:              cfg.Neo4j.Password,
			Database:              cfg.Neo4j.Database,
			MaxConnectionPoolSize: cfg.Neo4j.MaxConnectionPoolSize,
			ConnectionTimeout:     cfg.Neo4j.ConnectionTimeout,
		}, log)
		if err != nil {
			return err
		}
		defer driver.Close()
		deps.Graph = neo4jdriver.NewGraphScorer(driver, log)
	}

	if cfg.Milvus.Enabled {
		client, err := milvusclient.NewClient(ctx, milvusclient.Config{
			Addr:   cfg.Milvus.Addr,
			DBName: cfg.Milvus.DBName,
		}, log)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Vector = milvusclient.NewVectorScorer(client, cfg.Milvus.Collection, log)
	}

	if cfg.Kafka.Enabled {
		publisher, err := kafkaproducer.NewLeadPublisher(kafkaproducer.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			RequiredAcks: cfg.Kafka.RequiredAcks,
		}, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		deps.Publisher = publisher
	}

	if cfg.MinIO.Enabled {
		client, err := minioclient.NewClient(ctx, minioclient.Config{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKey,
			SecretAccessKey: cfg.MinIO.SecretKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Bucket:          cfg.MinIO.Bucket,
		}, log)
		if err != nil {
			return err
		}
		deps.Reports = minioclient.NewReportStore(client, log)
	}

	stopMetrics := func() {}
	if cfg.Metrics.Enabled {
		stopMetrics = serveMetrics(cfg.Metrics.Addr, cfg.Worker.ShutdownTimeout, deps, log)
	}
	defer stopMetrics()

	engine, err := matching.NewEngine(deps, matching.Options{
		Params:             cfg.Match,
		Concurrency:        cfg.Worker.Concurrency,
		CheckpointInterval: cfg.Worker.CheckpointInterval,
	})
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, resumeRunID)
	if err != nil {
		return err
	}
	log.Info("worker finished",
		logging.String("run_id", result.RunID),
		logging.Int("leads", len(result.Leads)),
	)
	return nil
}

// serveMetrics exposes /metrics and /healthz for the duration of the run.
func serveMetrics(addr string, shutdownTimeout time.Duration, deps matching.Dependencies, log logging.Logger) func() {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", deps.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", logging.Err(err))
		}
	}()
	log.Info("metrics server listening", logging.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}
}

func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := "json"
	if cfg.Format == "text" {
		format = "console"
	}
	logCfg := logging.LogConfig{Level: cfg.Level, Format: format}
	if cfg.Output != "" {
		logCfg.OutputPaths = []string{cfg.Output}
	}
	return logging.NewLogger(logCfg)
}
