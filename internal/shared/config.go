package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	MetricsAddr  string
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	NHSBase      string
	FetchRPS     float64
	FetchTimeout time.Duration
	FetchRetries int
	Workers      int
	OutputDir    string
	OutputFormat string
	Schedule     string
	CacheTTL     time.Duration
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("ignoring unreadable .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not a number, using default")
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/gpreviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		NHSBase:      env("NHS_BASE_URL", "https://www.nhs.uk"),
		FetchRPS:     atof("FETCH_RPS", 2),
		FetchTimeout: time.Duration(atoi("FETCH_TIMEOUT_SECONDS", 20)) * time.Second,
		FetchRetries: atoi("FETCH_RETRIES", 0),
		Workers:      atoi("SCRAPE_WORKERS", 1),
		OutputDir:    env("OUTPUT_DIR", "out"),
		OutputFormat: env("OUTPUT_FORMAT", "csv"),
		Schedule:     env("SCRAPE_SCHEDULE", "0 3 * * 1"),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.Workers < 1 {
		log.Warn().Int("workers", c.Workers).Msg("SCRAPE_WORKERS below 1, running sequentially")
		c.Workers = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
