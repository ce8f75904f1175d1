package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/internradar/internradar/internal/notifier"
	"github.com/internradar/internradar/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one cycle, print new postings, exit",
	Long: "One-shot cycle: fetches every enabled source, dedupes against the stored postings, " +
		"enriches and prints new ones. Does not write to the store or send alerts.",
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: nothing will be saved")

	st, closeStore, err := setupStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Alerts go to the log only; nothing is recorded as sent.
	n := notifier.NewLogNotifier(logger)
	cycle, closeCycle, err := buildCycle(ctx, cfg, store.NewDryRun(st), n, phaseLogger(logger), logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer closeCycle()

	report, err := cycle.Run(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\nfetched %d · new %d · suspected %d · failed sources %d · %s\n",
		report.Fetched, report.New, report.Suspected, report.SourceFailures, report.Elapsed.Round(time.Millisecond))
	return nil
}
