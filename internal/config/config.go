package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr      string
	AuthToken string
}

// PlatformConfig holds the endpoints of the factory platform services this
// daemon collaborates with.
type PlatformConfig struct {
	BackendURL    string // contract lookups
	AssetURL      string // NGSI-LD context broker entities endpoint
	TimescaleURL  string // PostgREST time-series frontend
	AlertaURL     string
	AlertaKey     string
	RelayURL      string // downstream publish-data endpoint
	RedisAddr     string // session cache holding the platform token
	StaticToken   string // fixed token for standalone deployments
	AttributeBase string // URI prefix of asset attributes
}

// Config holds all runtime configuration options for the daemon.
type Config struct {
	Server   ServerConfig
	Platform PlatformConfig

	Mode              string // http, mcp or both
	LogLevel          string
	StateDir          string
	ReconcileInterval time.Duration
	ShutdownGrace     time.Duration
	FiringRetention   int
}

const (
	defaultAddr              = "0.0.0.0:7071"
	defaultLogLevel          = "info"
	defaultMode              = "http"
	defaultReconcileInterval = 10 * time.Minute
	defaultShutdownGrace     = 5 * time.Second
	defaultFiringRetention   = 50
	defaultAttributeBase     = "https://industry-fusion.org/base/v0.1/"
)

func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// Parse parses command line flags and environment variables into Config.
// Priority: CLI flags > environment variables > .env file > defaults.
func Parse() (*Config, error) {
	// Load .env if present; optional.
	envFiles := []string{".env"}
	if configDir, err := os.UserConfigDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(configDir, "bindrelay", ".env"))
	}
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		Server: ServerConfig{
			Addr:      getEnvString("BINDRELAY_ADDR", defaultAddr),
			AuthToken: getEnvString("BINDRELAY_AUTH_TOKEN", ""),
		},
		Platform: PlatformConfig{
			BackendURL:    getEnvString("IFX_BACKEND_URL", ""),
			AssetURL:      getEnvString("SCORPIO_URL", ""),
			TimescaleURL:  getEnvString("TIMESCALE_URL", ""),
			AlertaURL:     getEnvString("ALERTA_URL", ""),
			AlertaKey:     getEnvString("ALERTA_KEY", ""),
			RelayURL:      getEnvString("RELAY_URL", ""),
			RedisAddr:     getEnvString("REDIS_ADDR", ""),
			StaticToken:   getEnvString("BINDRELAY_STATIC_TOKEN", ""),
			AttributeBase: getEnvString("BINDRELAY_ATTRIBUTE_BASE", defaultAttributeBase),
		},
		Mode:              getEnvString("BINDRELAY_MODE", defaultMode),
		LogLevel:          getEnvString("BINDRELAY_LOG_LEVEL", defaultLogLevel),
		StateDir:          getEnvString("BINDRELAY_STATE_DIR", ""),
		ReconcileInterval: getEnvDuration("BINDRELAY_RECONCILE_INTERVAL", defaultReconcileInterval),
		ShutdownGrace:     getEnvDuration("BINDRELAY_SHUTDOWN_GRACE", defaultShutdownGrace),
		FiringRetention:   getEnvInt("BINDRELAY_FIRING_RETENTION", defaultFiringRetention),
	}

	var addr, logLevel, stateDir, mode string
	var reconcileInterval, shutdownGrace time.Duration
	var firingRetention int

	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides env)")
	flag.StringVar(&stateDir, "state-dir", "", "Directory for the task database")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&mode, "mode", "", "Serving mode: http, mcp or both")
	flag.DurationVar(&reconcileInterval, "reconcile-interval", 0, "Cadence of reconciliation passes")
	flag.DurationVar(&shutdownGrace, "shutdown-grace", 0, "Grace period when shutting down")
	flag.IntVar(&firingRetention, "firing-retention", 0, "Firing records to retain per task")

	flag.Parse()

	if addr != "" {
		cfg.Server.Addr = addr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}
	if mode != "" {
		cfg.Mode = mode
	}
	if reconcileInterval > 0 {
		cfg.ReconcileInterval = reconcileInterval
	}
	if shutdownGrace > 0 {
		cfg.ShutdownGrace = shutdownGrace
	}
	if firingRetention > 0 {
		cfg.FiringRetention = firingRetention
	}

	if cfg.StateDir == "" {
		dir, err := defaultStateDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default state dir: %w", err)
		}
		cfg.StateDir = dir
	}
	if cfg.FiringRetention < 1 {
		cfg.FiringRetention = defaultFiringRetention
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}

	switch strings.ToLower(cfg.Mode) {
	case "http", "mcp", "both":
		cfg.Mode = strings.ToLower(cfg.Mode)
	default:
		return nil, fmt.Errorf("invalid mode %q: must be http, mcp or both", cfg.Mode)
	}

	return cfg, nil
}

func defaultStateDir() (string, error) {
	baseDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(baseDir, "bindrelay")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}
