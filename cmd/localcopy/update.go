package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/feed-localcopy/internal/observability"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Poll all feeds and download local copies of new articles",
	Long: "Poll every configured feed, store new and changed articles and run the plugin hooks on them. " +
		"New articles always get a local copy; changed ones only when downloadupdates is on.",
	RunE: runUpdate,
}

var (
	updateWrite   bool
	updateVerbose bool
)

func init() {
	updateCmd.Flags().BoolVarP(&updateWrite, "write", "w", false, "Render the output page after updating")
	updateCmd.Flags().BoolVarP(&updateVerbose, "verbose", "v", false, "Print a summary of the update")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms

	agg, store, err := a.openAggregator(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := agg.Update(ctx)
	if updateVerbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintUpdateSummary(summary)
	}
	if err != nil {
		return err
	}

	if updateWrite {
		return writeOutput(ctx, agg, a.cfg.Output, cmd.OutOrStdout())
	}
	return nil
}
