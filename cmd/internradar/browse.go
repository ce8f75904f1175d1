package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/internradar/internradar/internal/browse"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored postings interactively (TUI)",
	Long:  "Shows the view picker, then the split-pane list of stored postings with scam flags and cover messages.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, closeStore, err := setupStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	postings, err := browse.RunLoader(cfg.Store.Path, st.Load)
	if err != nil {
		logger.Error("failed to load postings", "error", err)
		os.Exit(1)
	}
	if len(postings) == 0 {
		fmt.Printf("No postings stored in %s yet. Run `internradar check` or `internradar start` first.\n", cfg.Store.Path)
		return nil
	}

	views := browse.Views()
	for {
		choice, err := browse.RunViewPicker(views, postings)
		if err != nil {
			return err
		}
		if choice < 0 {
			return nil
		}

		view := views[choice]
		wantQuit, err := browse.Run(view.Label, view.Apply(postings))
		if err != nil {
			return err
		}
		if wantQuit {
			return nil
		}
	}
}
