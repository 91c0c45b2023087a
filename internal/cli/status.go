package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ledgerdesk/aegis/internal/core/config"
	"github.com/ledgerdesk/aegis/internal/resilience/breaker"
	"github.com/ledgerdesk/aegis/internal/resilience/health"
	"github.com/spf13/cobra"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of the running Aegis service",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "address of the running service (default derived from config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	addr := statusAddr
	if addr == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			slog.Error("Failed to load config", "error", err)
			os.Exit(1)
		}
		addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	var detailed struct {
		health.Snapshot
		Circuits map[string]breaker.State `json:"circuits"`
	}

	client := resty.New().SetTimeout(5 * time.Second)
	resp, err := client.R().
		SetResult(&detailed).
		Get(addr + "/health/detailed")
	if err != nil {
		slog.Error("Failed to reach service", "addr", addr, "error", err)
		os.Exit(1)
	}
	if resp.IsError() && resp.StatusCode() != 503 {
		slog.Error("Unexpected response", "status", resp.Status())
		os.Exit(1)
	}

	fmt.Printf("Status:          %s\n", detailed.Status)
	fmt.Printf("Error rate:      %.0f%%\n", detailed.ErrorRate*100)
	fmt.Printf("Memory pressure: %.0f%%\n", detailed.MemoryPressure*100)
	fmt.Printf("Last check:      %s\n", detailed.LastCheck.Format(time.RFC3339))

	if len(detailed.Issues) > 0 {
		fmt.Println("\nIssues:")
		for _, issue := range detailed.Issues {
			fmt.Printf("  [%s] %s\n", issue.Severity, issue.Message)
		}
	}

	if len(detailed.Circuits) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintln(w, "ENDPOINT\tSTATE\tFAILURES\tLAST FAILURE")
		for key, state := range detailed.Circuits {
			label := "closed"
			if state.IsOpen {
				label = "open"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", key, label, state.Failures, state.LastFailure.Format(time.RFC3339))
		}
		_ = w.Flush()
	}
}
