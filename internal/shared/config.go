package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	StoreBackend   string // memory|redis|mysql
	SeedFile       string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	RedisPrefix    string
	ScoreWorkers   int
	WriteRPS       float64
	WriteBurst     int
	RequestTimeout time.Duration
}

func Load() Config {
	// .env is optional; real environment always wins.
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
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8000"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		StoreBackend:   env("STORE_BACKEND", "memory"),
		SeedFile:       env("SEED_FILE", "data/reviews.csv"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisDB:        atoi("REDIS_DB", 0),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisPrefix:    env("REDIS_PREFIX", "reviews"),
		ScoreWorkers:   atoi("SCORE_WORKERS", 8),
		WriteRPS:       atof("WRITE_RPS", 20),
		WriteBurst:     atoi("WRITE_BURST", 40),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
	}
	// PORT is honoured when HTTP_ADDR is unset
	if p := os.Getenv("PORT"); p != "" && os.Getenv("HTTP_ADDR") == "" {
		c.HTTPAddr = ":" + p
	}
	switch c.StoreBackend {
	case "memory", "redis", "mysql":
	default:
		log.Warn().Str("backend", c.StoreBackend).Msg("unknown STORE_BACKEND, falling back to memory")
		c.StoreBackend = "memory"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
