package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/feed-localcopy/internal/feed"
	"github.com/jonathan/feed-localcopy/internal/observability"
	"github.com/jonathan/feed-localcopy/internal/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download a local copy of a single page",
	Long: "Fetch one URL, extract its readable content and store it the way new articles are stored, " +
		"without touching the article database. Useful for checking extraction on a site.",
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var fetchTitle string

func init() {
	fetchCmd.Flags().StringVarP(&fetchTitle, "title", "t", "", "Article title used to name the cache file (default: the URL)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms

	link := args[0]
	title := fetchTitle
	if title == "" {
		title = link
	}
	article := &types.Article{
		ID:    feed.ArticleID("", link),
		Title: title,
		Link:  link,
	}

	err = a.manager.DownloadArticle(cmd.Context(), article)
	observability.NewPrinter(cmd.OutOrStdout()).PrintArticle(article)
	return err
}
