// Package config loads service settings from an optional YAML file and the environment.
// Environment variables (including those from a .env file) override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port      string          `yaml:"port"`
	LogLevel  string          `yaml:"log_level"`
	LogDev    bool            `yaml:"log_dev"`
	Routing   RoutingConfig   `yaml:"routing"`
	Cache     CacheConfig     `yaml:"cache"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

type RoutingConfig struct {
	// Provider is osrm, ors or none.
	Provider             string        `yaml:"provider"`
	OSRMBaseURL          string        `yaml:"osrm_base_url"`
	OSRMProfile          string        `yaml:"osrm_profile"`
	ORSBaseURL           string        `yaml:"ors_base_url"`
	ORSAPIKey            string        `yaml:"ors_api_key"`
	ORSProfile           string        `yaml:"ors_profile"`
	Timeout              time.Duration `yaml:"timeout"`
	RequestsPerSecond    float64       `yaml:"requests_per_second"`
	FallbackMinutesPerKm float64       `yaml:"fallback_minutes_per_km"`
}

type CacheConfig struct {
	// Backend is memory, sqlite, postgres or redis.
	Backend       string `yaml:"backend"`
	DBPath        string `yaml:"db_path"`
	DatabaseURL   string `yaml:"database_url"`
	RedisURL      string `yaml:"redis_url"`
	RedisPrefix   string `yaml:"redis_prefix"`
	RetentionDays int    `yaml:"retention_days"`
}

type OptimizerConfig struct {
	Metric      string `yaml:"metric"`
	Parallelism int    `yaml:"parallelism"`
	TwoOpt      bool   `yaml:"two_opt"`
}

// Default returns the settings used when neither file nor environment set a value.
func Default() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		Routing: RoutingConfig{
			Provider:             "osrm",
			OSRMBaseURL:          "https://router.project-osrm.org",
			OSRMProfile:          "driving",
			ORSBaseURL:           "https://api.openrouteservice.org",
			ORSProfile:           "driving-car",
			Timeout:              10 * time.Second,
			FallbackMinutesPerKm: 1.5,
		},
		Cache: CacheConfig{
			Backend:       "sqlite",
			DBPath:        "data/routes.db",
			RedisPrefix:   "routecache:",
			RetentionDays: 30,
		},
		Optimizer: OptimizerConfig{
			Metric:      "distance",
			Parallelism: 5,
		},
	}
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Default()

	if path := Get("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = Get("PORT", cfg.Port)
	cfg.LogLevel = Get("LOG_LEVEL", cfg.LogLevel)

	cfg.Routing.Provider = strings.ToLower(Get("ROUTING_PROVIDER", cfg.Routing.Provider))
	cfg.Routing.OSRMBaseURL = Get("OSRM_BASE_URL", cfg.Routing.OSRMBaseURL)
	cfg.Routing.OSRMProfile = Get("OSRM_PROFILE", cfg.Routing.OSRMProfile)
	cfg.Routing.ORSBaseURL = Get("ORS_BASE_URL", cfg.Routing.ORSBaseURL)
	cfg.Routing.ORSAPIKey = Get("ORS_API_KEY", cfg.Routing.ORSAPIKey)
	cfg.Routing.ORSProfile = Get("ORS_PROFILE", cfg.Routing.ORSProfile)

	cfg.Cache.Backend = strings.ToLower(Get("CACHE_BACKEND", cfg.Cache.Backend))
	cfg.Cache.DBPath = Get("DB_PATH", cfg.Cache.DBPath)
	cfg.Cache.DatabaseURL = Get("DATABASE_URL", cfg.Cache.DatabaseURL)
	cfg.Cache.RedisURL = Get("REDIS_URL", cfg.Cache.RedisURL)
	cfg.Cache.RedisPrefix = Get("REDIS_PREFIX", cfg.Cache.RedisPrefix)

	cfg.Optimizer.Metric = strings.ToLower(Get("OPTIMIZER_METRIC", cfg.Optimizer.Metric))

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envBool("LOG_DEV", &cfg.LogDev))
	collect(envDuration("PROVIDER_TIMEOUT", &cfg.Routing.Timeout))
	collect(envFloat("PROVIDER_RPS", &cfg.Routing.RequestsPerSecond))
	collect(envFloat("FALLBACK_MIN_PER_KM", &cfg.Routing.FallbackMinutesPerKm))
	collect(envInt("CACHE_RETENTION_DAYS", &cfg.Cache.RetentionDays))
	collect(envInt("OPTIMIZER_PARALLELISM", &cfg.Optimizer.Parallelism))
	collect(envBool("OPTIMIZER_TWO_OPT", &cfg.Optimizer.TwoOpt))

	return errors.Join(errs...)
}

// Validate checks enumerations and the settings each backend requires.
func (c Config) Validate() error {
	var errs []error

	switch c.Routing.Provider {
	case "osrm", "none":
	case "ors":
		if c.Routing.ORSAPIKey == "" {
			errs = append(errs, errors.New("config: ORS_API_KEY is required when ROUTING_PROVIDER=ors"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown ROUTING_PROVIDER %q", c.Routing.Provider))
	}

	switch c.Cache.Backend {
	case "memory":
	case "sqlite":
		if c.Cache.DBPath == "" {
			errs = append(errs, errors.New("config: DB_PATH is required when CACHE_BACKEND=sqlite"))
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required when CACHE_BACKEND=postgres"))
		}
	case "redis":
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("config: REDIS_URL is required when CACHE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown CACHE_BACKEND %q", c.Cache.Backend))
	}

	switch c.Optimizer.Metric {
	case "distance", "duration":
	default:
		errs = append(errs, fmt.Errorf("config: unknown OPTIMIZER_METRIC %q", c.Optimizer.Metric))
	}

	if c.Routing.FallbackMinutesPerKm <= 0 {
		errs = append(errs, errors.New("config: FALLBACK_MIN_PER_KM must be positive"))
	}
	if c.Cache.RetentionDays < 0 {
		errs = append(errs, errors.New("config: CACHE_RETENTION_DAYS must not be negative"))
	}

	return errors.Join(errs...)
}

func envBool(key string, dst *bool) error {
	v := Get(key, "")
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v := Get(key, "")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := Get(key, "")
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := Get(key, "")
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
