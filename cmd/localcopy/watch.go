package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonathan/feed-localcopy/internal/aggregator"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Update and render on a schedule until interrupted",
	Long: "Run update followed by render on the config schedule (cron syntax or @every <duration>). " +
		"Runs never overlap; a run still going when the next is due is skipped.",
	RunE: runWatch,
}

var (
	watchSchedule string
	watchNow      bool
)

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "Cron schedule (overrides config)")
	watchCmd.Flags().BoolVar(&watchNow, "now", true, "Run once immediately before waiting for the schedule")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	schedule := watchSchedule
	if schedule == "" {
		schedule = a.cfg.Schedule
	}

	cycle := func() {
		if err := runCycle(ctx, agg, a.cfg.Output); err != nil {
			a.logger.Errorw("scheduled run failed", "error", err)
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, cycle); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	if watchNow {
		cycle()
	}

	a.logger.Infow("watching feeds", "schedule", schedule, "feeds", len(a.cfg.Feeds))
	c.Start()
	<-ctx.Done()

	a.logger.Infow("stopping")
	<-c.Stop().Done()
	return nil
}

// runCycle is one scheduled run: update, then render.
func runCycle(ctx context.Context, agg *aggregator.Aggregator, output string) error {
	if _, err := agg.Update(ctx); err != nil {
		return err
	}
	return writeOutput(ctx, agg, output, os.Stdout)
}
