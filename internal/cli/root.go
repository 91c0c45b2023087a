package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ledgerdesk/aegis/internal/control"
	"github.com/ledgerdesk/aegis/internal/core/config"
	"github.com/ledgerdesk/aegis/internal/resilience/guard"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "aegisd",
	Short: "Aegis resilience sidecar",
	Long:  `Aegis keeps the LedgerDesk client usable when its backend misbehaves: it retries, breaks circuits, serves cached data, and reports what it could not fix.`,
	Run:   runService,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

func runService(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	// Load Configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	// Initialize the resilience service
	app, err := control.NewService(*cfg, control.Options{
		Restart: func() {
			// The supervisor (systemd, launchd) restarts the exited
			// process with the replaced binary.
			os.Exit(0)
		},
	})
	if err != nil {
		slog.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start service", "error", err)
		os.Exit(1)
	}

	slog.Info("Aegis started", "config", cfgPath)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	if g := app.Guard(); !g.AllowExit() {
		slog.Warn("Submissions in flight, draining before shutdown", "in_flight", g.InFlight())
		waitForDrain(g, sigChan)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}

// waitForDrain blocks until in-flight submissions finish or a second
// signal forces shutdown.
func waitForDrain(g *guard.Guard, sigChan <-chan os.Signal) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case sig := <-sigChan:
			slog.Warn("Forcing shutdown", "signal", sig)
			return
		case <-ticker.C:
			if g.InFlight() == 0 {
				return
			}
		}
	}
}
