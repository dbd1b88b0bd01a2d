package main

import (
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the HTML page of stored articles",
	Long:  "Render stored articles, newest first, into the output page. Use --out - to write to stdout.",
	RunE:  runRender,
}

var renderOutput string

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Output file (default: output from config)")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
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

	out := renderOutput
	if out == "" {
		out = a.cfg.Output
	}
	return writeOutput(ctx, agg, out, cmd.OutOrStdout())
}
