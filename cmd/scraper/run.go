package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gp_reviews/internal/adapters/dataset"
	"gp_reviews/internal/adapters/nhs"
	"gp_reviews/internal/adapters/observability"
	redisad "gp_reviews/internal/adapters/redis"
	"gp_reviews/internal/app"
	"gp_reviews/internal/domain"
	"gp_reviews/internal/scrape"
	mysqlrepo "gp_reviews/internal/storage/mysql"
)

var opts struct {
	store    bool
	failFast bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape every practice once and write the datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		observability.Serve(cfg.MetricsAddr)
		j, err := newJob()
		if err != nil {
			return err
		}
		defer j.close()
		return j.run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// job is one configured scrape: pipeline plus sinks.
type job struct {
	pipeline *app.Pipeline
	out      *dataset.Writer
	publish  *app.PublishService
	closers  []func() error
}

func newJob() (*job, error) {
	out, err := dataset.NewWriter(cfg.OutputDir, cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	fetcher := nhs.New(nhs.Options{RPS: cfg.FetchRPS, Timeout: cfg.FetchTimeout, Retries: cfg.FetchRetries})
	ex := app.NewExtractor(fetcher, scrape.NewSite(cfg.NHSBase), observability.WithComponent("extractor"))
	j := &job{
		pipeline: app.NewPipeline(ex, app.PipelineOptions{Workers: cfg.Workers, FailFast: opts.failFast}, observability.WithComponent("pipeline")),
		out:      out,
	}

	if opts.store {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db.Ping: %w", err)
		}
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		j.closers = append(j.closers, db.Close, cache.Close)
		j.publish = app.NewPublishService(mysqlrepo.New(db), cache, observability.WithComponent("publish"))
	}

	log.Info().
		Str("base", cfg.NHSBase).
		Int("workers", cfg.Workers).
		Float64("rps", cfg.FetchRPS).
		Str("out", cfg.OutputDir).
		Str("format", cfg.OutputFormat).
		Bool("store", opts.store).
		Msg("scraper configured")
	return j, nil
}

func (j *job) run(ctx context.Context) error {
	res, err := j.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", res.RunID, err)
	}
	if err := j.out.Write(ctx, res.Overviews, res.Reviews); err != nil {
		return err
	}
	if j.publish != nil {
		if err := j.publish.Publish(ctx, res); err != nil {
			return fmt.Errorf("publish %s: %w", res.RunID, err)
		}
	}
	j.logRun(res)
	return nil
}

func (j *job) close() {
	for _, c := range j.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func (j *job) logRun(res domain.RunResult) {
	ovPath, rvPath := j.out.Paths()
	log.Info().
		Str("run_id", res.RunID).
		Int("discovered", res.Discovered).
		Int("overviews", len(res.Overviews)).
		Int("reviews", len(res.Reviews)).
		Int("misses", len(res.Misses)).
		Dur("took", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)).
		Str("overview_file", ovPath).
		Str("reviews_file", rvPath).
		Msg("run complete")
}
