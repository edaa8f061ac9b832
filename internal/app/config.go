package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/learnhub-backend/internal/data/db"
)

type Config struct {
	Port    string
	LogMode string

	Postgres       db.Config
	EnablePolicies bool

	JWTSecretKey   string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	RedisAddr     string
	RedisPassword string

	ReconcileCron        string
	ReconcileConcurrency int
	ReconcileTimeout     time.Duration

	RateLimitPerMinute int
	CORSOrigins        []string
	BadgeStylePath     string

	MetricsAddr string
	ServiceName string
}

// envConfig is the flat key space read from the environment and app.env.
type envConfig struct {
	Port    string `mapstructure:"PORT"`
	LogMode string `mapstructure:"LOG_MODE"`

	PostgresHost               string `mapstructure:"POSTGRES_HOST"`
	PostgresPort               string `mapstructure:"POSTGRES_PORT"`
	PostgresUser               string `mapstructure:"POSTGRES_USER"`
	PostgresPassword           string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresName               string `mapstructure:"POSTGRES_NAME"`
	PostgresSSLMode            string `mapstructure:"POSTGRES_SSLMODE"`
	PostgresMaxOpenConns       int    `mapstructure:"POSTGRES_MAX_OPEN_CONNS"`
	PostgresPrivilegedUser     string `mapstructure:"POSTGRES_PRIVILEGED_USER"`
	PostgresPrivilegedPassword string `mapstructure:"POSTGRES_PRIVILEGED_PASSWORD"`
	PostgresEnableRLS          bool   `mapstructure:"POSTGRES_ENABLE_RLS"`

	JWTSecretKey          string `mapstructure:"JWT_SECRET_KEY"`
	JWTIssuer             string `mapstructure:"JWT_ISSUER"`
	AccessTokenTTLSeconds int    `mapstructure:"ACCESS_TOKEN_TTL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	ReconcileCron           string `mapstructure:"RECONCILE_CRON"`
	ReconcileConcurrency    int    `mapstructure:"RECONCILE_CONCURRENCY"`
	ReconcileTimeoutSeconds int    `mapstructure:"RECONCILE_TIMEOUT_SECONDS"`

	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	CORSOrigins        string `mapstructure:"CORS_ORIGINS"`
	BadgeStylePath     string `mapstructure:"BADGE_STYLE_PATH"`

	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

var defaults = map[string]any{
	"PORT":                      "8080",
	"LOG_MODE":                  "development",
	"POSTGRES_HOST":             "localhost",
	"POSTGRES_PORT":             "5432",
	"POSTGRES_NAME":             "learnhub",
	"POSTGRES_SSLMODE":          "disable",
	"POSTGRES_MAX_OPEN_CONNS":   20,
	"POSTGRES_ENABLE_RLS":       true,
	"ACCESS_TOKEN_TTL":          3600,
	"RECONCILE_CRON":            "@every 1h",
	"RECONCILE_CONCURRENCY":     4,
	"RECONCILE_TIMEOUT_SECONDS": 900,
	"RATE_LIMIT_PER_MINUTE":     60,
	"OTEL_SERVICE_NAME":         "learnhub",
}

// passthroughKeys are read from the process env by platform packages
// (object storage, metrics, tracing). Values that only exist in app.env are
// exported so those packages see them.
var passthroughKeys = []string{
	"OBJECT_STORAGE_MODE",
	"STORAGE_EMULATOR_HOST",
	"BADGE_GCS_BUCKET_NAME",
	"BADGE_CDN_DOMAIN",
	"GOOGLE_APPLICATION_CREDENTIALS_JSON",
	"METRICS_ENABLED",
	"METRICS_SCRAPE_INTERVAL_SECONDS",
	"OTEL_ENABLED",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_HEADERS",
	"OTEL_TRACES_SAMPLER_ARG",
	"LOG_LEVEL",
	"LOG_REDACTION_ENABLED",
	"LOG_HASH_SALT",
}

// LoadConfig reads the environment, overlaid on an optional app.env in dir.
// A missing file is not an error.
func LoadConfig(dir string) (Config, error) {
	v := viper.New()
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()
	// RECONCILE_CRON="" must disable the schedule rather than fall back to the default.
	v.AllowEmptyEnv(true)

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	var raw envConfig
	for _, key := range mapstructureKeys() {
		_ = v.BindEnv(key)
	}
	for _, key := range passthroughKeys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read app.env: %w", err)
		}
	}
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	for _, key := range passthroughKeys {
		if _, set := os.LookupEnv(key); !set {
			if val := v.GetString(key); val != "" {
				_ = os.Setenv(key, val)
			}
		}
	}
	return raw.resolve()
}

func (raw envConfig) resolve() (Config, error) {
	cfg := Config{
		Port:    firstNonEmpty(raw.Port, "8080"),
		LogMode: firstNonEmpty(raw.LogMode, "development"),
		Postgres: db.Config{
			Host:               raw.PostgresHost,
			Port:               firstNonEmpty(raw.PostgresPort, "5432"),
			Name:               raw.PostgresName,
			User:               raw.PostgresUser,
			Password:           raw.PostgresPassword,
			PrivilegedUser:     raw.PostgresPrivilegedUser,
			PrivilegedPassword: raw.PostgresPrivilegedPassword,
			SSLMode:            raw.PostgresSSLMode,
			MaxOpenConns:       raw.PostgresMaxOpenConns,
		},
		EnablePolicies:       raw.PostgresEnableRLS,
		JWTSecretKey:         strings.TrimSpace(raw.JWTSecretKey),
		JWTIssuer:            strings.TrimSpace(raw.JWTIssuer),
		AccessTokenTTL:       time.Duration(raw.AccessTokenTTLSeconds) * time.Second,
		RedisAddr:            strings.TrimSpace(raw.RedisAddr),
		RedisPassword:        raw.RedisPassword,
		ReconcileCron:        strings.TrimSpace(raw.ReconcileCron),
		ReconcileConcurrency: raw.ReconcileConcurrency,
		ReconcileTimeout:     time.Duration(raw.ReconcileTimeoutSeconds) * time.Second,
		RateLimitPerMinute:   raw.RateLimitPerMinute,
		CORSOrigins:          splitList(raw.CORSOrigins),
		BadgeStylePath:       strings.TrimSpace(raw.BadgeStylePath),
		MetricsAddr:          strings.TrimSpace(raw.MetricsAddr),
		ServiceName:          firstNonEmpty(raw.ServiceName, "learnhub"),
	}
	if cfg.JWTSecretKey == "" {
		return cfg, errors.New("JWT_SECRET_KEY is required")
	}
	if cfg.Postgres.User == "" {
		return cfg, errors.New("POSTGRES_USER is required")
	}
	if cfg.ReconcileConcurrency <= 0 {
		cfg.ReconcileConcurrency = 4
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	return cfg, nil
}

func mapstructureKeys() []string {
	return []string{
		"PORT", "LOG_MODE",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_NAME",
		"POSTGRES_SSLMODE", "POSTGRES_MAX_OPEN_CONNS",
		"POSTGRES_PRIVILEGED_USER", "POSTGRES_PRIVILEGED_PASSWORD", "POSTGRES_ENABLE_RLS",
		"JWT_SECRET_KEY", "JWT_ISSUER", "ACCESS_TOKEN_TTL",
		"REDIS_ADDR", "REDIS_PASSWORD",
		"RECONCILE_CRON", "RECONCILE_CONCURRENCY", "RECONCILE_TIMEOUT_SECONDS",
		"RATE_LIMIT_PER_MINUTE", "CORS_ORIGINS", "BADGE_STYLE_PATH",
		"METRICS_ADDR", "OTEL_SERVICE_NAME",
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
