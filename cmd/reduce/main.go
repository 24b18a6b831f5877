// Package main provides the batch reduction entry point.
// Executes: event drain → prefilter → pairing → reduced-table persistence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"charm-reso-lab/internal/calib"
	"charm-reso-lab/internal/config"
	"charm-reso-lab/internal/ingestion"
	"charm-reso-lab/internal/observability"
	"charm-reso-lab/internal/pairing"
	"charm-reso-lab/internal/prefilter"
	"charm-reso-lab/internal/qa"
	"charm-reso-lab/internal/reduction"
	"charm-reso-lab/internal/reporting"
	"charm-reso-lab/internal/storage"
	chstore "charm-reso-lab/internal/storage/clickhouse"
	"charm-reso-lab/internal/storage/memory"
	"charm-reso-lab/internal/storage/migrations"
	pgstore "charm-reso-lab/internal/storage/postgres"
	"charm-reso-lab/internal/verification"
)

func main() {
	// Parse flags
	eventsPath := flag.String("events", "", "Path to the JSONL collision events file")
	configPath := flag.String("config", "", "Path to the YAML run configuration (built-in defaults when empty)")
	channel := flag.String("channel", "", "Decay channel override: Ds1ToDstarK0s, Ds2StarToDplusK0s or XcResToDplusLambda")
	workers := flag.Int("workers", 0, "Collision-level parallelism override (0 keeps the configured value)")
	propagate := flag.Bool("propagate", false, "Propagate V0s to the primary vertex (turns the config setting on)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (empty for in-memory storage)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (empty for in-memory storage)")
	useCCDB := flag.Bool("ccdb", false, "Resolve magnetic-field contexts from the configured CCDB endpoint")
	report := flag.Bool("report", false, "Write the QA report and pair CSV after the run")
	verify := flag.Bool("verify", false, "Re-derive every stored pair row from the reduced tables after the run")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[reduce] ", log.LstdFlags|log.Lshortfile)

	if *eventsPath == "" {
		logger.Fatal("--events is required")
	}

	cfg, err := loadConfig(*configPath, *channel, *workers, *propagate)
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}
	if cfg.PropagateV0 && !*useCCDB {
		logger.Fatal("propagateV0 needs field contexts; rerun with --ccdb")
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

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling run...", sig)
		cancel()
	}()

	err = run(ctx, logger, cfg, *eventsPath, *postgresDSN, *clickhouseDSN, *useCCDB, *report, *verify, *outputDir)
	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}
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

// run executes one batch reduction over the events file.
func run(ctx context.Context, logger *log.Logger, cfg config.Config, eventsPath, postgresDSN, clickhouseDSN string, useCCDB, report, verify bool, outputDir string) error {
	ch := cfg.DecayChannel()

	// Create stores (use interfaces)
	var (
		collisions storage.ReducedCollisionStore = memory.NewCollisionStore()
		dcands     storage.ReducedDStore         = memory.NewDCandidateStore()
		v0s        storage.ReducedV0Store        = memory.NewV0Store()
		pairs      storage.PairStore             = memory.NewPairStore()
	)

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("apply postgres migrations: %w", err)
		}

		collisions = pgstore.NewCollisionStore(pool)
		dcands = pgstore.NewDCandidateStore(pool)
		v0s = pgstore.NewV0Store(pool)
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("apply clickhouse migrations: %w", err)
		}
		defer conn.Close()

		pairs = chstore.NewPairStore(conn)
	}

	// Time every store operation
	collisions = observability.NewInstrumentedCollisionStore(collisions, nil)
	dcands = observability.NewInstrumentedDStore(dcands, nil)
	v0s = observability.NewInstrumentedV0Store(v0s, nil)
	pairs = observability.NewInstrumentedPairStore(pairs, nil)

	// QA spectra and Prometheus counters observe the same engine pass
	registry := qa.NewRegistry(ch, cfg.PtBins)
	engine, err := pairing.NewEngine(pairing.Config{
		Channel:     ch,
		V0Cuts:      cfg.V0Cuts.Selection(),
		PairCuts:    cfg.PairCuts(),
		PropagateV0: cfg.PropagateV0,
		Observer:    pairing.MultiObserver{registry, observability.NewObserverAdapter(nil)},
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

	src, err := ingestion.NewJSONLSource(eventsPath)
	if err != nil {
		return fmt.Errorf("open events: %w", err)
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

	start := time.Now()
	summary, err := proc.Run(ctx, src)
	observability.RecordReductionRun(time.Since(start).Seconds(), err == nil)
	if err != nil {
		return err
	}

	fmt.Println("=== Reduction Summary ===")
	fmt.Printf("  Collisions processed: %d\n", summary.CollisionsProcessed)
	fmt.Printf("  Collisions selected:  %d\n", summary.CollisionsSelected)
	fmt.Printf("  D candidates kept:    %d\n", summary.DKept)
	fmt.Printf("  V0s kept:             %d\n", summary.V0Kept)
	fmt.Printf("  Pairs built:          %d\n", summary.Pairs)

	if report {
		if err := writeArtifacts(ctx, outputDir, registry.Snapshot(), collisions, dcands, v0s, pairs); err != nil {
			return err
		}
	}

	if verify {
		if err := runVerification(ctx, collisions, dcands, v0s, pairs); err != nil {
			return err
		}
	}

	return nil
}

// writeArtifacts renders the QA report and the pair CSV into outputDir.
func writeArtifacts(
	ctx context.Context,
	outputDir string,
	snap qa.Snapshot,
	collisions storage.ReducedCollisionStore,
	dcands storage.ReducedDStore,
	v0s storage.ReducedV0Store,
	pairs storage.PairStore,
) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	gen := reporting.NewGenerator(collisions, dcands, v0s, pairs)
	rep, err := gen.Generate(ctx, snap)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	reportPath := filepath.Join(outputDir, "QA_REPORT.md")
	if err := os.WriteFile(reportPath, []byte(reporting.RenderMarkdown(rep)), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	pairRows, err := pairs.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load pairs: %w", err)
	}
	csvPath := filepath.Join(outputDir, "pair_candidates.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderPairCSV(pairRows)), 0644); err != nil {
		return fmt.Errorf("write pair csv: %w", err)
	}

	fmt.Println("\nQA report generated:")
	fmt.Printf("  - %s\n", reportPath)
	fmt.Printf("  - %s\n", csvPath)
	return nil
}

// runVerification re-derives every stored pair row and fails on divergence.
func runVerification(
	ctx context.Context,
	collisions storage.ReducedCollisionStore,
	dcands storage.ReducedDStore,
	v0s storage.ReducedV0Store,
	pairs storage.PairStore,
) error {
	verifier := verification.NewVerifier(collisions, dcands, v0s, pairs)
	rep, err := verifier.VerifyAll(ctx)
	if err != nil {
		return fmt.Errorf("verify pairs: %w", err)
	}

	fmt.Println("\n=== Verification ===")
	fmt.Printf("  Pairs checked: %d\n", rep.TotalPairs)
	fmt.Printf("  Matched:       %d\n", rep.MatchedPairs)
	fmt.Printf("  Divergent:     %d\n", rep.DivergentPairs)

	if rep.DivergentPairs == 0 {
		return nil
	}
	for _, res := range rep.Results {
		if res.Match {
			continue
		}
		for _, d := range res.Divergences {
			fmt.Printf("    - collision %d pair %d: %s stored=%v recomputed=%v\n",
				res.CollisionRef, res.PairIndex, d.Field, d.Expected, d.Actual)
		}
	}
	return fmt.Errorf("%d of %d pair rows diverge from the reduced tables", rep.DivergentPairs, rep.TotalPairs)
}
