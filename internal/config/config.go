package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const devJWTSecret = "dev-secret"

// Config holds process configuration read from the environment.
type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string

	HTTPListenAddr     string
	PublicBasePath     string
	CORSAllowedOrigins []string

	StorageDriver  string
	DatabaseURL    string
	DatabaseSchema string
	SQLitePath     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
	RedisPrefix   string
	CacheTTL      time.Duration

	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	MetricsNamespace string
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		AppEnv:             getenv("APP_ENV", "development"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          getenv("LOG_FORMAT", "json"),
		HTTPListenAddr:     getenv("HTTP_LISTEN_ADDR", ":5000"),
		PublicBasePath:     getenv("PUBLIC_BASE_PATH", ""),
		CORSAllowedOrigins: getenvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		StorageDriver:      strings.ToLower(getenv("STORAGE_DRIVER", DriverMemory)),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		DatabaseSchema:     getenv("DATABASE_SCHEMA", ""),
		SQLitePath:         getenv("SQLITE_PATH", "portal.db"),
		RedisAddr:          getenv("REDIS_ADDR", ""),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		RedisPrefix:        getenv("REDIS_KEY_PREFIX", "csp-portal"),
		JWTSecret:          getenv("JWT_SECRET", ""),
		JWTIssuer:          getenv("JWT_ISSUER", "csp-portal"),
		MetricsNamespace:   getenv("METRICS_NAMESPACE", "csp_portal"),
	}

	var err error
	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.RedisTLS, err = getenvBool("REDIS_TLS", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.AccessTokenTTL, err = getenvDuration("ACCESS_TOKEN_TTL", 12*time.Hour); err != nil {
		errs = append(errs, err)
	}

	switch cfg.StorageDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver))
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required outside development"))
		} else {
			cfg.JWTSecret = devJWTSecret
		}
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "production" || env == "prod"
}

func getenv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, val)
	}
	return parsed, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, val)
	}
	return parsed, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid duration %q", key, val)
		}
		return parsed, nil
	}
	if val := strings.TrimSpace(os.Getenv(key + "_SECONDS")); val != "" {
		seconds, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s_SECONDS: invalid integer %q", key, val)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return fallback, nil
}

func getenvList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
