// Package cli wires the DrawSense commands: the serving daemon, a
// one-shot prediction and version info.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drawsense/drawsense/internal/api"
	"github.com/drawsense/drawsense/internal/app/backtest"
	"github.com/drawsense/drawsense/internal/app/patterns"
	"github.com/drawsense/drawsense/internal/app/predictor"
	"github.com/drawsense/drawsense/internal/brain"
	"github.com/drawsense/drawsense/internal/daemon"
	"github.com/drawsense/drawsense/internal/domain"
	"github.com/drawsense/drawsense/internal/history"
	"github.com/drawsense/drawsense/internal/infra/drawstore"
	"github.com/drawsense/drawsense/internal/infra/mlfeatures"
	"github.com/drawsense/drawsense/internal/infra/scraper"
	"github.com/drawsense/drawsense/internal/infra/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "drawsense",
	Short: "Statistical prediction engine for 5-of-90 lottery draws",
	Long: `DrawSense analyzes historical draw results and serves weighted
ensemble predictions over HTTP. The engine tunes its strategy weights
against verified outcomes as new draws arrive.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(versionCmd)

	predictCmd.Flags().Int64("type", 0, "Draw type id (0 = all)")
	predictCmd.Flags().Int("day", -1, "Day of week 0-6 (-1 = any)")
	backtestCmd.Flags().Int64("type", 0, "Draw type id (0 = all)")
	backtestCmd.Flags().Int("min-history", 30, "Smallest history prefix to replay from")
	backtestCmd.Flags().Int("workers", 4, "Concurrent replay workers")
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DrawSense API server and refresh loop",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	svc, refresher, db, err := buildEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := api.NewServer(svc)
	srv.SetRefresher(refresher)
	srv.EnableMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go refresher.Run(ctx)

	httpSrv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("[serve] listening on %s", cfg.Addr())
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ─── predict ────────────────────────────────────────────────────────────────

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Print a one-shot prediction as JSON",
	RunE:  runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	svc, _, db, err := buildEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	drawTypeID, _ := cmd.Flags().GetInt64("type")
	day, _ := cmd.Flags().GetInt("day")
	var dayOfWeek *int
	if day >= 0 && day <= 6 {
		dayOfWeek = &day
	}

	p, err := svc.Predict(cmd.Context(), drawTypeID, dayOfWeek)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// ─── backtest ───────────────────────────────────────────────────────────────

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the stored history and report per-strategy hit rates",
	RunE:  runBacktest,
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return err
	}
	defer db.Close()

	drawTypeID, _ := cmd.Flags().GetInt64("type")
	minHistory, _ := cmd.Flags().GetInt("min-history")
	workers, _ := cmd.Flags().GetInt("workers")

	store := drawstore.New(db, time.Now)
	var filter *int64
	if drawTypeID != 0 {
		filter = &drawTypeID
	}
	draws := store.GetDraws(cmd.Context(), filter)

	btCfg := backtest.DefaultConfig()
	btCfg.MinHistory = minHistory
	btCfg.Workers = workers
	res, err := backtest.Run(cmd.Context(), btCfg, draws)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// ─── version ────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the DrawSense version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "drawsense %s\n", api.Version)
	},
}

// ─── wiring ─────────────────────────────────────────────────────────────────

// buildEngine assembles the storage, brains and prediction service.
func buildEngine(ctx context.Context, cfg daemon.Config) (*predictor.Service, *daemon.Refresher, *sqlite.DB, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}

	store := drawstore.New(db, time.Now)
	winning := brain.New(ctx, brain.Config{Stream: domain.StreamWinning, Store: db})
	machine := brain.New(ctx, brain.Config{Stream: domain.StreamMachine, Store: db})
	plog := history.NewFileLog(filepath.Join(cfg.Storage.Dir, "predictions.json"))
	verifier := history.NewVerifier(plog, store, time.Now)

	var features domain.FeatureSource
	if cfg.ML.BaseURL != "" {
		features = mlfeatures.NewClient(cfg.ML.BaseURL, nil)
	}
	svc := predictor.New(predictor.Config{
		Source:   store,
		Winning:  winning,
		Machine:  machine,
		Features: features,
		Log:      plog,
		Verifier: verifier,
		Archive:  db,
	})

	var fetcher scraper.Fetcher
	if cfg.Scraper.BaseURL != "" {
		fetcher = scraper.NewHTTPFetcher(cfg.Scraper.BaseURL, nil)
	}
	refresher := daemon.NewRefresher(daemon.RefresherConfig{
		Fetcher:  fetcher,
		Writer:   db,
		Source:   store,
		Patterns: patterns.NewDetector(patterns.DefaultConfig(), db),
		Verifier: verifier,
		Winning:  winning,
		Machine:  machine,
		Caches: []daemon.Invalidator{
			store,
			daemon.InvalidatorFunc(svc.InvalidateCache),
		},
		RunAnalysis: cfg.Refresh.RunAnalysis,
		Interval:    cfg.RefreshInterval(),
	})
	return svc, refresher, db, nil
}
