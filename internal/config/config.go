package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a Postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Pass),
		d.Host,
		d.Port,
		d.Name,
	)
}

// Kafka stores order-intake consumer settings. Empty brokers or topic
// disable the consumer.
type Kafka struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Dispatch stores the dispatch engine settings.
//
// RadiusMeters has no default: the proximity radius is a required explicit
// parameter, and Load fails when it is unset or non-positive.
// RebroadcastInterval is a policy point for re-notifying drivers of an
// unmatched delivery; 0 disables it and 0 is the default.
type Dispatch struct {
	RadiusMeters        float64
	RebroadcastInterval time.Duration
	PageTokenTTL        time.Duration
	TokenSecret         string
	CodeLength          int
}

// PprofConfig stores the pprof debug server settings.
type PprofConfig struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// RateLimit stores the per-IP rate limit settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Config stores the HTTP service settings.
type Config struct {
	Port      int
	DB        DB
	Kafka     Kafka
	Dispatch  Dispatch
	RateLimit RateLimit
	Pprof     PprofConfig
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      DefaultPort(),
		DB:        DefaultDB(),
		Dispatch:  DefaultDispatch(),
		RateLimit: DefaultRateLimit(),
		Pprof:     DefaultPprof(),
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Float64Var(&cfg.Dispatch.RadiusMeters, "dispatch-radius", cfg.Dispatch.RadiusMeters, "driver search radius in meters (required)")
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = p
	}

	setString(&cfg.DB.Host, "POSTGRES_HOST")
	setString(&cfg.DB.User, "POSTGRES_USER")
	setString(&cfg.DB.Pass, "POSTGRES_PASSWORD")
	setString(&cfg.DB.Name, "POSTGRES_DB")
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid POSTGRES_PORT %q: %w", v, err)
		}
		cfg.DB.Port = v
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitNonEmpty(v)
	}
	setString(&cfg.Kafka.Topic, "KAFKA_ORDERS_TOPIC")
	setString(&cfg.Kafka.GroupID, "KAFKA_GROUP_ID")

	if v := os.Getenv("DISPATCH_RADIUS_M"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DISPATCH_RADIUS_M %q: %w", v, err)
		}
		cfg.Dispatch.RadiusMeters = r
	}
	if err := setDuration(&cfg.Dispatch.RebroadcastInterval, "DISPATCH_REBROADCAST_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Dispatch.PageTokenTTL, "PAGE_TOKEN_TTL"); err != nil {
		return err
	}
	setString(&cfg.Dispatch.TokenSecret, "TOKEN_SECRET")
	if v := os.Getenv("DELIVERY_CODE_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DELIVERY_CODE_LENGTH %q: %w", v, err)
		}
		cfg.Dispatch.CodeLength = n
	}

	if v := os.Getenv("PPROF_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PPROF_ENABLED %q: %w", v, err)
		}
		cfg.Pprof.Enabled = b
	}
	setString(&cfg.Pprof.Addr, "PPROF_ADDR")
	setString(&cfg.Pprof.User, "PPROF_USER")
	setString(&cfg.Pprof.Pass, "PPROF_PASS")

	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_ENABLED %q: %w", v, err)
		}
		cfg.RateLimit.Enabled = b
	}
	if v := os.Getenv("RATE_LIMIT_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RATE %q: %w", v, err)
		}
		cfg.RateLimit.Rate = r
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST %q: %w", v, err)
		}
		cfg.RateLimit.Burst = n
	}

	return nil
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Dispatch.RadiusMeters <= 0 {
		return fmt.Errorf("dispatch radius is required: set DISPATCH_RADIUS_M or --dispatch-radius")
	}
	if cfg.Dispatch.TokenSecret == "" {
		return fmt.Errorf("token secret is required: set TOKEN_SECRET")
	}
	if cfg.Dispatch.PageTokenTTL <= 0 {
		return fmt.Errorf("invalid page token ttl: %s", cfg.Dispatch.PageTokenTTL)
	}
	if cfg.Dispatch.CodeLength <= 0 {
		return fmt.Errorf("invalid delivery code length: %d", cfg.Dispatch.CodeLength)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
