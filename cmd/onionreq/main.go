// Command onionreq runs the onion request test driver.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msgmaxim/onionreq/internal/config"
	"github.com/msgmaxim/onionreq/internal/driver"
	"github.com/msgmaxim/onionreq/internal/logging"
	"github.com/msgmaxim/onionreq/internal/metrics"
	"github.com/msgmaxim/onionreq/internal/nodehealth"
	"github.com/msgmaxim/onionreq/pkg/directory"
	"github.com/msgmaxim/onionreq/pkg/pathselect"
	"github.com/msgmaxim/onionreq/pkg/transport"
)

var (
	configPath string
	port       int
)

func main() {
	defer recoverAndExit()

	root := &cobra.Command{
		Use:   "onionreq",
		Short: "Onion request test driver for a decentralized storage-node swarm",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newFileserverCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// recoverAndExit mirrors the panic hook the original test driver installed,
// for panics on the main goroutine: such a panic is printed and the process
// exits 101. Panics on other goroutines (the runner, refresh, aggregation
// and HTTP server goroutines) are not recovered here; the Go runtime prints
// its own trace and exits 2.
func recoverAndExit() {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "panic: %v\n", r)
		os.Exit(101)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Continuously probe the swarm through sampled onion paths and serve the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	cmd.Flags().IntVar(&port, "port", 8000, "port for the results HTTP server")
	return cmd
}

func newFileserverCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "fileserver",
		Short: "Serve the monitoring dashboard's static assets standalone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFileserver(dir, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8000, "port to listen on")
	cmd.Flags().StringVar(&dir, "dir", "./html", "directory to serve")
	return cmd
}

func runFileserver(dir string, port int) error {
	addr := fmt.Sprintf(":%d", port)
	fmt.Printf("serving %s on %s\n", dir, addr)
	return http.ListenAndServe(addr, http.FileServer(http.Dir(dir)))
}

func runServe() error {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnvironment()
	if port != 0 {
		cfg.Server.Port = port
	}

	log := logging.NewLogger(logging.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info().Msg("starting onion request test driver")

	promMetrics := metrics.NewPrometheusMetrics()
	health := metrics.NewHealthChecker("1.0.0")
	health.RegisterCheck("directory", metrics.AlwaysHealthy("directory client initialized"))

	dirClient := directory.NewClient(cfg.Directory.SeedURL)
	selector := pathselect.New(nil, cfg.PathSelect.Seed)
	if cfg.PathSelect.FoundationNodesOnly {
		// The flag is only reported here: the refresh loop installs the
		// pool without filtering it by operator.
		log.Info().Msg("foundation_nodes_only is set; the node pool is not filtered by operator")
	}

	guardTransport := transport.NewGuardTransport(promMetrics)
	healthTracker := nodehealth.NewTracker(nodehealth.Config{})
	defer healthTracker.Stop()

	aggregator := driver.NewAggregator()
	db, err := driver.OpenResultsDB(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening results database: %w", err)
	}

	runner := driver.NewRunner(dirClient, selector, guardTransport, aggregator, healthTracker, log, promMetrics, driver.RunnerConfig{
		MaxInFlight:    cfg.Driver.MaxInFlight,
		Interval:       cfg.Driver.RequestInterval,
		DifficultyBits: cfg.Driver.DifficultyBits,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runner.RefreshLoop(ctx, cfg.Directory.RefreshInterval)
	go runner.AggregateLoop(ctx, cfg.Driver.AggregateInterval, db)
	go runner.Run(ctx)

	httpServer := driver.NewServer(aggregator, db, health, log, promMetrics, driver.ServerConfig{
		StaticDir: cfg.Server.StaticDir,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start(driver.ServerConfig{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			MetricsAddr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			MetricsPath:    cfg.Metrics.Path,
			StaticDir:      cfg.Server.StaticDir,
			MetricsEnabled: cfg.Metrics.Enabled,
		})
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("results server failed: %w", err)
		}
	case <-quit:
		log.Info().Msg("shutting down")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	return nil
}
