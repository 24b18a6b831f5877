// Package main provides the live ingestion entry point: continuous
// reduction of the collision event stream into the reduced tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charm-reso-lab/internal/calib"
	"charm-reso-lab/internal/config"
	"charm-reso-lab/internal/ingestion"
	"charm-reso-lab/internal/observability"
	"charm-reso-lab/internal/pairing"
	"charm-reso-lab/internal/prefilter"
	"charm-reso-lab/internal/reduction"
	"charm-reso-lab/internal/storage"
	chstore "charm-reso-lab/internal/storage/clickhouse"
	"charm-reso-lab/internal/storage/memory"
	"charm-reso-lab/internal/storage/migrations"
	pgstore "charm-reso-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	wsEndpoint := flag.String("ws-endpoint", "", "Collision event stream WebSocket endpoint")
	configPath := flag.String("config", "", "Path to the YAML run configuration (built-in defaults when empty)")
	channel := flag.String("channel", "", "Decay channel override: Ds1ToDstarK0s, Ds2StarToDplusK0s or XcResToDplusLambda")
	workers := flag.Int("workers", 0, "Collision-level parallelism override (0 keeps the configured value)")
	propagate := flag.Bool("propagate", false, "Propagate V0s to the primary vertex (turns the config setting on)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useCCDB := flag.Bool("ccdb", false, "Resolve magnetic-field contexts from the configured CCDB endpoint")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig(*configPath, *channel, *workers, *propagate)
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = runLive(ctx, logger, cfg, *wsEndpoint, *postgresDSN, *clickhouseDSN, *useCCDB, *useMemory)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// loadConfig merges the YAML file with flag overrides and validates the result.
func loadConfig(path, channel string, workers int, propagate bool) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromYAML(path)
		if err != nil {
			return cfg, fmt.Errorf("load %s: %w", path, err)
		}
		cfg = *loaded
	}

	if channel != "" {
		cfg.Channel = channel
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if propagate {
		cfg.PropagateV0 = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// runLive runs continuous reduction over the live collision stream.
func runLive(ctx context.Context, logger *log.Logger, cfg config.Config, wsEndpoint, postgresDSN, clickhouseDSN string, useCCDB, useMemory bool) error {
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required")
	}

	// Require both DSNs unless --use-memory is explicitly set
	if !useMemory && (postgresDSN == "" || clickhouseDSN == "") {
		return fmt.Errorf("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if cfg.PropagateV0 && !useCCDB {
		return fmt.Errorf("propagateV0 needs field contexts; rerun with --ccdb")
	}

	ch := cfg.DecayChannel()

	// Create stores (use interfaces)
	var (
		collisions storage.ReducedCollisionStore = memory.NewCollisionStore()
		dcands     storage.ReducedDStore         = memory.NewDCandidateStore()
		v0s        storage.ReducedV0Store        = memory.NewV0Store()
		pairs      storage.PairStore             = memory.NewPairStore()
	)

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("apply postgres migrations: %w", err)
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("apply clickhouse migrations: %w", err)
		}
		defer conn.Close()

		collisions = pgstore.NewCollisionStore(pool)
		dcands = pgstore.NewDCandidateStore(pool)
		v0s = pgstore.NewV0Store(pool)
		pairs = chstore.NewPairStore(conn)
	}

	// Time every store operation
	collisions = observability.NewInstrumentedCollisionStore(collisions, nil)
	dcands = observability.NewInstrumentedDStore(dcands, nil)
	v0s = observability.NewInstrumentedV0Store(v0s, nil)
	pairs = observability.NewInstrumentedPairStore(pairs, nil)

	engine, err := pairing.NewEngine(pairing.Config{
		Channel:     ch,
		V0Cuts:      cfg.V0Cuts.Selection(),
		PairCuts:    cfg.PairCuts(),
		PropagateV0: cfg.PropagateV0,
		Observer:    observability.NewObserverAdapter(nil),
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	gate, err := prefilter.New(cfg.PrefilterExpression())
	if err != nil {
		return fmt.Errorf("compile prefilter: %w", err)
	}

	var fieldCache *calib.Cache
	if useCCDB {
		fetcher := calib.NewHTTPFetcher(cfg.CCDB.URL,
			calib.WithObjectPath(cfg.CCDB.ObjectPath),
			calib.WithTimeout(cfg.CCDB.Timeout()),
			calib.WithMaxRetries(cfg.CCDB.MaxRetries),
		)
		fieldCache = calib.NewCache(observability.NewInstrumentedFetcher(fetcher, nil), logger)
	}

	src, err := ingestion.NewWSSource(ctx, wsEndpoint, nil, logger)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	defer src.Close()

	proc, err := reduction.NewProcessor(reduction.Options{
		Engine:     engine,
		Prefilter:  gate,
		Calib:      fieldCache,
		Collisions: collisions,
		DCands:     dcands,
		V0s:        v0s,
		Pairs:      pairs,
		Workers:    cfg.Workers,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create processor: %w", err)
	}

	logger.Println("Starting live reduction...")
	start := time.Now()
	summary, err := proc.Run(ctx, src)
	observability.RecordReductionRun(time.Since(start).Seconds(), err == nil)
	if summary != nil {
		logger.Printf("Live reduction stopped: processed=%d selected=%d dRows=%d v0Rows=%d pairs=%d",
			summary.CollisionsProcessed, summary.CollisionsSelected,
			summary.DKept, summary.V0Kept, summary.Pairs)
	}
	return err
}
