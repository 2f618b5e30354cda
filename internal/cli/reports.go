package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/diag"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List failure reports, newest first",
	Run:   runReports,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
}

func runReports(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	reporter := diag.NewReporter(cfg.Reports, clockwork.NewRealClock())
	names, err := reporter.List()
	if err != nil {
		slog.Error("Failed to list reports", "error", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Printf("No failure reports in %s\n", cfg.Reports.Dir)
		return
	}

	for _, name := range names {
		fmt.Println(name)
	}
}
