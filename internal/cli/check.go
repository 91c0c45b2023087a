package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/ledgerdesk/aegis/internal/core/config"
	"github.com/ledgerdesk/aegis/internal/core/fault"
	"github.com/ledgerdesk/aegis/internal/infra/probe"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [endpoint_key]",
	Short: "Probe a configured endpoint once and report the classified result",
	Args:  cobra.ExactArgs(1),
	Run:   runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	key := args[0]

	_ = godotenv.Load()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	probers, err := probe.Build(cfg.Probes)
	if err != nil {
		slog.Error("Failed to build probes", "error", err)
		os.Exit(1)
	}
	defer func() {
		for _, p := range probers {
			_ = p.Close()
		}
	}()

	var target probe.Prober
	for _, p := range probers {
		if p.Key() == key {
			target = p
			break
		}
	}
	if target == nil {
		fmt.Printf("No probe configured for %q. Configured endpoints:\n", key)
		for _, p := range probers {
			fmt.Printf("  %s\n", p.Key())
		}
		os.Exit(1)
	}

	timeout := cfg.Probes.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	value, err := target.Check(ctx)
	if err != nil {
		f := fault.Classify(err)
		fmt.Printf("FAIL  %s\n", key)
		fmt.Printf("  class:     %s\n", f.Class)
		fmt.Printf("  severity:  %s\n", f.Severity)
		fmt.Printf("  retryable: %t\n", f.Retryable)
		fmt.Printf("  message:   %s\n", f.Message)
		os.Exit(1)
	}

	fmt.Printf("OK    %s\n", key)
	if value != nil {
		if body, err := json.MarshalIndent(value, "  ", "  "); err == nil {
			fmt.Printf("  %s\n", body)
		}
	}
}
