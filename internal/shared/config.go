package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	Storage   string // mysql | memory
	MySQLDSN  string
	RedisAddr string // empty disables caching
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	JWTSecret string

	PageSize          int
	RandomSampleSize  int
	ReviewMaxAttempts int

	SeedFile string
	SeedURL  string
	SeedRPS  int
}

// Load reads the environment, after merging a .env file when one exists.
// Variables already set in the process win over .env entries.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
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
	c := Config{
		AppEnv:            env("APP_ENV", "prod"),
		LogLevel:          env("LOG_LEVEL", "info"),
		HTTPAddr:          env("HTTP_ADDR", ":8080"),
		MetricsAddr:       env("METRICS_ADDR", ""),
		Storage:           env("STORAGE", "mysql"),
		MySQLDSN:          env("MYSQL_DSN", "root:root@tcp(localhost:3306)/netflixo?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:         env("REDIS_ADDR", ""),
		RedisPass:         env("REDIS_PASSWORD", ""),
		RedisDB:           atoi("REDIS_DB", 0),
		CacheTTL:          time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		JWTSecret:         env("JWT_SECRET", ""),
		PageSize:          atoi("PAGE_SIZE", 2),
		RandomSampleSize:  atoi("RANDOM_SAMPLE_SIZE", 8),
		ReviewMaxAttempts: atoi("REVIEW_MAX_ATTEMPTS", 4),
		SeedFile:          env("SEED_FILE", ""),
		SeedURL:           env("SEED_URL", ""),
		SeedRPS:           atoi("SEED_RPS", 5),
	}
	if c.PageSize <= 0 {
		log.Warn().Int("page_size", c.PageSize).Msg("PAGE_SIZE must be positive, using 2")
		c.PageSize = 2
	}
	if c.RandomSampleSize <= 0 {
		c.RandomSampleSize = 8
	}
	if c.ReviewMaxAttempts <= 0 {
		c.ReviewMaxAttempts = 1
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; authenticated routes will reject every request")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
