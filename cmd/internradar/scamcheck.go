package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var scamcheckCmd = &cobra.Command{
	Use:   "scamcheck <company>",
	Short: "Look up scam reports for one company",
	Long:  "Runs the configured forum search for a company name and prints every flag found.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScamcheck,
}

func init() {
	rootCmd.AddCommand(scamcheckCmd)
}

func runScamcheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := setupScamProvider(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up scam check", "error", err)
		os.Exit(1)
	}
	defer closeProvider()
	if provider == nil {
		fmt.Println("scam check is disabled in config (scamcheck.enabled: false)")
		return nil
	}

	company := strings.Join(args, " ")
	flags, err := provider.Check(ctx, company)
	if err != nil {
		fmt.Printf("%s: Unknown (%v)\n", company, err)
		return nil
	}
	if len(flags) == 0 {
		fmt.Printf("%s: Clean, no red-flag mentions found\n", company)
		return nil
	}

	fmt.Printf("%s: Suspected, %d flag(s)\n\n", company, len(flags))
	for i, f := range flags {
		fmt.Printf("%d. [%s] r/%s keyword %q\n", i+1, f.Kind, f.Forum, f.MatchedKeyword)
		if f.PostTitle != "" {
			fmt.Printf("   %s\n", f.PostTitle)
		}
		fmt.Printf("   %s\n   %s\n", f.Excerpt, f.Permalink)
	}
	return nil
}
