package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "CensoGate"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultCensusTimeout   = 10 * time.Second
	defaultRecheckWorkers  = 4
	censusTimeoutSecEnvVar = "CENSUS_TIMEOUT_SECONDS"
	censusTimeoutEnvVar    = "CENSUS_TIMEOUT"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
)

// Config captures application runtime configuration loaded from
// environment variables. It is loaded once at process start and treated
// as immutable for the process lifetime.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Census endpoint and caller credentials.
	CensusURL      string
	CensusTimeout  time.Duration
	CensusClient   string
	CensusOrg      string
	CensusEntity   string
	CensusUser     string
	CensusPassword string
	// CensusKey signs the per-request replay token.
	CensusKey string

	// FingerprintSecret salts every verification fingerprint. Rotating it
	// invalidates all stored fingerprints.
	FingerprintSecret string

	// AdminTokenHash is the bcrypt hash the admin bearer token is checked
	// against. Empty disables the admin surface.
	AdminTokenHash string

	// RecheckConcurrency caps parallel census calls during fleet rechecks.
	RecheckConcurrency int
}

// Load reads configuration values from the environment and populates a
// Config instance. Postgres and Redis are optional in development, where
// in-memory fallbacks exist, and required everywhere else.
func Load() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdempotencyTTL,
		CensusURL:          os.Getenv("CENSUS_URL"),
		CensusTimeout:      defaultCensusTimeout,
		CensusClient:       os.Getenv("CENSUS_CLI"),
		CensusOrg:          os.Getenv("CENSUS_ORG"),
		CensusEntity:       os.Getenv("CENSUS_ENT"),
		CensusUser:         os.Getenv("CENSUS_USU"),
		CensusPassword:     os.Getenv("CENSUS_PWD"),
		CensusKey:          os.Getenv("CENSUS_KEY"),
		FingerprintSecret:  os.Getenv("FINGERPRINT_SECRET"),
		AdminTokenHash:     os.Getenv("ADMIN_TOKEN_HASH"),
		RecheckConcurrency: defaultRecheckWorkers,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.CensusTimeout, err = durationEnv(censusTimeoutSecEnvVar, censusTimeoutEnvVar, cfg.CensusTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("RECHECK_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid RECHECK_CONCURRENCY: %q", v)
		}
		cfg.RecheckConcurrency = n
	}

	if cfg.CensusURL == "" {
		return Config{}, fmt.Errorf("CENSUS_URL must be set")
	}
	if cfg.FingerprintSecret == "" {
		return Config{}, fmt.Errorf("FINGERPRINT_SECRET must be set")
	}
	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the process runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(secondsVar, durationVar string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsVar, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationVar, err)
		}
		return d, nil
	}
	return fallback, nil
}
