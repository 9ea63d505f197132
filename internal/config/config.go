package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	envDataDir         = "EPARGNE_DATA_DIR"
	envDBPath          = "EPARGNE_DB_PATH"
	envHost            = "EPARGNE_HOST"
	envPort            = "EPARGNE_PORT"
	envQuoteAPIKey     = "EPARGNE_QUOTE_API_KEY"
	envRefreshSchedule = "EPARGNE_REFRESH_SCHEDULE"
	envLogDir          = "EPARGNE_LOG_DIR"
)

const (
	defaultDBName   = "epargne.db"
	defaultHost     = "127.0.0.1"
	defaultPort     = 8000
	defaultSchedule = "*/15 * * * *"
)

var runtimeDataDir string
var runtimePort = 0

// SetRuntimeDataDir overrides the data directory, typically from a
// command-line flag. It takes precedence over the environment.
func SetRuntimeDataDir(dir string) {
	runtimeDataDir = strings.TrimSpace(dir)
}

// SetRuntimePort overrides the listen port from a command-line flag.
func SetRuntimePort(port int) {
	if port > 0 {
		runtimePort = port
	}
}

// GetDataDir resolves the data directory (flag, then env, then the
// OS user config dir) and creates it if missing.
func GetDataDir() (string, error) {
	dir := runtimeDataDir
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(envDataDir))
	}
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config")
		}
		dir = filepath.Join(configDir, "epargne")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetDBPath resolves the SQLite database file path.
func GetDBPath() (string, error) {
	if envPath := strings.TrimSpace(os.Getenv(envDBPath)); envPath != "" {
		return envPath, nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, defaultDBName), nil
}

// GetLogDir resolves the log directory, defaulting to <data dir>/logs.
func GetLogDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(envLogDir)); dir != "" {
		return dir, nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "logs"), nil
}

// GetHost returns the listen host.
func GetHost() string {
	if host := strings.TrimSpace(os.Getenv(envHost)); host != "" {
		return host
	}
	return defaultHost
}

// GetPort returns the listen port (flag override first).
func GetPort() int {
	if runtimePort > 0 {
		return runtimePort
	}
	if value := strings.TrimSpace(os.Getenv(envPort)); value != "" {
		if port, err := strconv.Atoi(value); err == nil && port > 0 && port < 65536 {
			return port
		}
	}
	return defaultPort
}

// GetQuoteAPIKey returns the market data API key, empty when unset.
func GetQuoteAPIKey() string {
	return strings.TrimSpace(os.Getenv(envQuoteAPIKey))
}

// GetRefreshSchedule returns the cron expression for the background
// quote refresh job.
func GetRefreshSchedule() string {
	if value := strings.TrimSpace(os.Getenv(envRefreshSchedule)); value != "" {
		return value
	}
	return defaultSchedule
}
