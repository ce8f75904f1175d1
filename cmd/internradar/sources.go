package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/internradar/internradar/internal/adapter"
	"github.com/internradar/internradar/internal/config"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all listing platforms",
	Long:  "Reads the config and prints a table of every platform with its state and search terms.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	rows := []struct {
		name     string
		sc       config.SourceConfig
		defaults []string
	}{
		{"internshala", cfg.Sources.Internshala, adapter.DefaultInternshalaTerms},
		{"linkedin", cfg.Sources.LinkedIn, adapter.DefaultLinkedInTerms},
		{"unstop", cfg.Sources.Unstop, adapter.DefaultUnstopTerms},
		{"unstop-offline", cfg.Sources.UnstopOffline, adapter.DefaultUnstopTerms},
	}

	fmt.Printf("%-16s %-9s %-6s %s\n", "Source", "Status", "Pages", "Terms")
	fmt.Println(strings.Repeat("─", 72))

	enabled := 0
	for _, r := range rows {
		status := "disabled"
		if r.sc.Enabled {
			status = "enabled"
			enabled++
		}
		terms := r.sc.Terms
		if len(terms) == 0 {
			terms = r.defaults
		}
		fmt.Printf("%-16s %-9s %-6d %s\n", r.name, status, r.sc.MaxPages, strings.Join(terms, ", "))
	}

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled) · location %s\n",
		len(rows), enabled, len(rows)-enabled, cfg.Location)
	return nil
}
