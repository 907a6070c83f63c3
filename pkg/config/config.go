package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/wms-imagery/pkg/wms"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	WMS      WMSConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Ledger   LedgerConfig
	RunCache RunCacheConfig
	Storage  StorageConfig
}

// WMSConfig describes the imagery source and where tiles land.
type WMSConfig struct {
	BaseURLTemplate string
	QueryParams     string
	OutputDir       string
	Timeout         time.Duration
	Workers         int
	UserAgent       string
	Location        *time.Location
	ManifestFormat  string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LedgerConfig toggles persisting per-tile outcomes to Postgres.
type LedgerConfig struct {
	Enabled bool
}

// RunCacheConfig toggles storing run status in Redis.
type RunCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// StorageConfig governs signed tile download links.
type StorageConfig struct {
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	workers := v.GetInt("WMS_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.WMS = WMSConfig{
		BaseURLTemplate: v.GetString("WMS_BASE_URL_TEMPLATE"),
		QueryParams:     v.GetString("WMS_QUERY_PARAMS"),
		OutputDir:       v.GetString("WMS_OUTPUT_DIR"),
		Timeout:         parseDuration(v.GetString("WMS_TIMEOUT"), 30*time.Second),
		Workers:         workers,
		UserAgent:       v.GetString("WMS_USER_AGENT"),
		Location:        parseLocation(v.GetString("WMS_TIMEZONE")),
		ManifestFormat:  strings.ToLower(strings.TrimSpace(v.GetString("WMS_MANIFEST_FORMAT"))),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Ledger = LedgerConfig{Enabled: v.GetBool("ENABLE_FETCH_LEDGER")}

	cfg.RunCache = RunCacheConfig{
		Enabled: v.GetBool("ENABLE_RUN_CACHE"),
		TTL:     parseDuration(v.GetString("RUN_CACHE_TTL"), 24*time.Hour),
	}

	cfg.Storage = StorageConfig{
		SignedURLSecret: v.GetString("TILES_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("TILES_SIGNED_URL_TTL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("WMS_BASE_URL_TEMPLATE", wms.DefaultBaseURLTemplate)
	v.SetDefault("WMS_QUERY_PARAMS", wms.DefaultQueryParams)
	v.SetDefault("WMS_OUTPUT_DIR", "wms_images")
	v.SetDefault("WMS_TIMEOUT", "30s")
	v.SetDefault("WMS_WORKERS", 1)
	v.SetDefault("WMS_USER_AGENT", "wms-imagery/0.1")
	v.SetDefault("WMS_TIMEZONE", "Local")
	v.SetDefault("WMS_MANIFEST_FORMAT", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "wms_imagery")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_FETCH_LEDGER", false)
	v.SetDefault("ENABLE_RUN_CACHE", false)
	v.SetDefault("RUN_CACHE_TTL", "24h")

	v.SetDefault("TILES_SIGNED_URL_SECRET", "")
	v.SetDefault("TILES_SIGNED_URL_TTL", "1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseLocation(raw string) *time.Location {
	if raw == "" || strings.EqualFold(raw, "Local") {
		return time.Local
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		return time.Local
	}
	return loc
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
