package config

import (
	"os"
	"strconv"
	"time"
)

// Backends selectable through the environment
const (
	GatewayPostgres = "postgres"
	GatewayMemory   = "memory"

	RecoverySQLite = "sqlite"
	RecoveryMemory = "memory"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string

	// Persistence backends
	GatewayBackend  string // postgres | memory
	RecoveryBackend string // sqlite | memory
	RecoveryPath    string // SQLite file for unsaved editor content

	// Editor timing
	AutosaveDelay time.Duration // idle period before a recovery snapshot
	FetchTimeout  time.Duration // ceiling for a document load

	// Logging
	LogDir      string // empty disables the log file
	LogMaxFiles int

	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:     tablePrefix,
		GatewayBackend:  getEnv("GATEWAY_BACKEND", getDefaultGateway(env)),
		RecoveryBackend: getEnv("RECOVERY_BACKEND", RecoverySQLite),
		RecoveryPath:    getEnv("RECOVERY_PATH", "data/recovery.db"),
		AutosaveDelay:   getDuration("AUTOSAVE_DELAY", time.Second),
		FetchTimeout:    getDuration("FETCH_TIMEOUT", 5*time.Second),
		LogDir:          getEnv("LOG_DIR", ""),
		LogMaxFiles:     getInt("LOG_MAX_FILES", 10),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getDefaultGateway keeps tests off the database unless asked
func getDefaultGateway(env string) string {
	if env == "test" {
		return GatewayMemory
	}
	return GatewayPostgres
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses Go duration syntax ("1s", "750ms"); bad values fall back
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
