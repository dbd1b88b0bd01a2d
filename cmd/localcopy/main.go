// Package main provides the localcopy command: a feed aggregator that keeps a
// readable local copy of every article it sees.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "localcopy",
	Short: "Feed aggregator with readable local copies of articles",
	Long: "localcopy polls RSS and Atom feeds, stores their articles, downloads a cleaned-up copy " +
		"of each linked page and renders an HTML page linking to both the original and the local copy.",
	SilenceUsage: true,
}

var (
	configPath string
	logLevel   string
	devLogs    bool
	useBrowser bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&devLogs, "dev", false, "Human-readable console logs")
	rootCmd.PersistentFlags().BoolVar(&useBrowser, "browser", false, "Render pages that look empty with headless Chrome")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
