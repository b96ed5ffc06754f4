package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gp_reviews/internal/adapters/observability"
)

var runNow bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the scrape on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		observability.Serve(cfg.MetricsAddr)
		j, err := newJob()
		if err != nil {
			return err
		}
		defer j.close()

		s := gocron.NewScheduler(time.UTC)
		// a run that overruns the next tick makes that tick a no-op
		scheduled, err := s.Cron(cfg.Schedule).SingletonMode().Do(func() {
			if err := j.run(ctx); err != nil {
				log.Error().Err(err).Msg("scheduled run failed")
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
		}
		if runNow {
			if err := j.run(ctx); err != nil {
				log.Error().Err(err).Msg("initial run failed")
			}
		}

		s.StartAsync()
		log.Info().Str("schedule", cfg.Schedule).Time("next", scheduled.NextRun()).Msg("watching")

		<-ctx.Done()
		s.Stop()
		log.Info().Msg("watch stopped")
		return nil
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "Cron expression, UTC (or set SCRAPE_SCHEDULE)")
	f.BoolVar(&runNow, "now", false, "Run once immediately before waiting for the schedule")
	rootCmd.AddCommand(watchCmd)
}
