package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/infra/storage"
	"github.com/vietddude/launcher/internal/infra/storage/sqlite"
)

var (
	resetAll  bool
	resetHard bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear locally cached records (session, profile, library, download queue)",
	Run:   runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "also clear preferences")
	resetCmd.Flags().BoolVar(&resetHard, "hard", false, "delete the store file entirely; use when the store is damaged")
}

func runReset(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if resetHard {
		for _, path := range []string{cfg.Storage.Path, cfg.Storage.Path + "-wal", cfg.Storage.Path + "-shm"} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				slog.Error("Failed to remove store file", "path", path, "error", err)
				os.Exit(1)
			}
		}
		fmt.Printf("Removed record store at %s\n", cfg.Storage.Path)
		return
	}

	ctx := context.Background()
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		slog.Error("Failed to open record store", "error", err)
		os.Exit(1)
	}
	repo := sqlite.NewRecordRepo(db)
	defer func() {
		_ = repo.Close()
	}()

	keys := []string{storage.KeyAuth, storage.KeyProfile, storage.KeyLibrary, storage.KeyDownloadQueue}
	if resetAll {
		keys = append(keys, storage.KeyPreferences)
	}
	if err := repo.BatchDelete(ctx, keys...); err != nil {
		slog.Error("Failed to clear records", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Cleared %d record(s) from %s\n", len(keys), cfg.Storage.Path)
}
