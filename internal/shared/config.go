package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	// StoreBackend is "sql" or "tablestore".
	StoreBackend string
	DBDriver     string
	DatabaseDSN  string

	TableStoreBase    string
	TableStoreKey     string
	PropertyTable     string
	BuyerTable        string
	TableStoreRPS     int
	TableStoreTimeout time.Duration

	RedisAddr string
	RedisDB   int
	RedisPass string

	GeocoderBase    string
	GeocoderKey     string
	GeocoderRPS     int
	GeocodeTimeout  time.Duration
	GeocodeAttempts int
	GeoCacheTTL     time.Duration

	CatalogPath string
	FieldKey    string
	Workers     int
}

// Load reads the process environment, after merging a .env file when one
// exists in the working directory.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() Config {
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		StoreBackend: strings.ToLower(env("STORE_BACKEND", "sql")),
		DBDriver:     env("DB_DRIVER", "mysql"),
		DatabaseDSN:  env("DATABASE_DSN", "root:root@tcp(localhost:3306)/distrib?parseTime=true&charset=utf8mb4&loc=UTC"),

		TableStoreBase:    env("TABLESTORE_BASE_URL", ""),
		TableStoreKey:     env("TABLESTORE_API_KEY", ""),
		PropertyTable:     env("TABLESTORE_PROPERTY_TABLE", "properties"),
		BuyerTable:        env("TABLESTORE_BUYER_TABLE", "buyers"),
		TableStoreRPS:     atoi("TABLESTORE_RPS", 5),
		TableStoreTimeout: time.Duration(atoi("TABLESTORE_TIMEOUT_MS", 10000)) * time.Millisecond,

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),

		GeocoderBase:    env("GEOCODER_BASE_URL", ""),
		GeocoderKey:     env("GEOCODER_API_KEY", ""),
		GeocoderRPS:     atoi("GEOCODER_RPS", 10),
		GeocodeTimeout:  time.Duration(atoi("GEOCODE_TIMEOUT_MS", 5000)) * time.Millisecond,
		GeocodeAttempts: atoi("GEOCODE_ATTEMPTS", 3),
		GeoCacheTTL:     time.Duration(atoi("GEOCODE_CACHE_TTL_SECONDS", 30*24*3600)) * time.Second,

		CatalogPath: env("CATALOG_PATH", "configs/catalog.yaml"),
		FieldKey:    env("FIELD_KEY", ""),
		Workers:     atoi("ASSIGN_WORKERS", 8),
	}
	if c.GeocoderKey == "" {
		log.Warn().Msg("GEOCODER_API_KEY is empty; properties without coordinates in their map link get no radius areas")
	}
	return c
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
