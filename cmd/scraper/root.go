package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gp_reviews/internal/adapters/observability"
	"gp_reviews/internal/shared"
)

// cfg starts from the environment (.env included); flags override it.
var cfg = shared.Load()

var rootCmd = &cobra.Command{
	Use:           "scraper",
	Short:         "NHS GP practice overview and review scraper",
	Long:          "Discovers GP practices on the NHS site, extracts their overview indicators and patient reviews, and writes both datasets.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = observability.NewLogger(cfg.AppEnv)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.NHSBase, "base-url", cfg.NHSBase, "Site root (or set NHS_BASE_URL)")
	pf.Float64Var(&cfg.FetchRPS, "rps", cfg.FetchRPS, "Page fetches per second (or set FETCH_RPS)")
	pf.IntVar(&cfg.FetchRetries, "retries", cfg.FetchRetries, "Extra attempts on 429/5xx; 0 fails fast (or set FETCH_RETRIES)")
	pf.IntVar(&cfg.Workers, "workers", cfg.Workers, "Practices extracted concurrently (or set SCRAPE_WORKERS)")
	pf.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Output directory (or set OUTPUT_DIR)")
	pf.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Dataset format: csv or parquet (or set OUTPUT_FORMAT)")
	pf.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus listen address, empty to disable (or set METRICS_ADDR)")
	pf.BoolVar(&opts.store, "store", false, "Also publish the run to MySQL and evict cached API reads")
	pf.BoolVar(&opts.failFast, "fail-fast", false, "Abort the run on the first practice-level error")
}
