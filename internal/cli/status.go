package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/diag"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the running launcher",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/health/detailed", cfg.Diagnostics.Port)
	httpc := &http.Client{Timeout: 3 * time.Second}
	resp, err := httpc.Get(url)
	if err != nil {
		slog.Error("Launcher is not reachable", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var status diag.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		slog.Error("Failed to decode status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "FIELD\tVALUE")
	_, _ = fmt.Fprintf(w, "state\t%s\n", status.State)
	_, _ = fmt.Fprintf(w, "ready\t%t\n", status.Ready)
	_, _ = fmt.Fprintf(w, "degraded\t%t\n", status.Degraded)
	_, _ = fmt.Fprintf(w, "signed in\t%t\n", status.SignedIn)
	_, _ = fmt.Fprintf(w, "realtime\t%t\n", status.RealtimeConnected)
	_, _ = fmt.Fprintf(w, "downloads\t%d\n", status.ActiveDownloads)
	_, _ = fmt.Fprintf(w, "version\t%s\n", status.Version)
	for _, e := range status.Errors {
		_, _ = fmt.Fprintf(w, "error\t%s: %s\n", e.Component, e.Message)
	}
	_ = w.Flush()
}
