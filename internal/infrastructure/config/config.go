package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Log      LogConfig
	Widgets  WidgetsConfig
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host        string
	Port        int
	MetricsPort int    // Port for Prometheus metrics HTTP server
	Store       string // Catalog store: postgres or memory
}

// Catalog stores
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// CacheConfig represents catalog cache configuration
type CacheConfig struct {
	Enabled        bool
	MaxMemoryBytes int64 // Maximum memory usage in bytes (e.g., 104857600 = 100MB)
	Metrics        bool
	TTLMinutes     int // Time-to-live for cache entries in minutes
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	File   string // Rotated log file, empty for stderr
}

// WidgetsConfig represents widget builder configuration
type WidgetsConfig struct {
	TreeDepth  int
	SearchPath string // Regular expression matching the cross-type search page path
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// FindProjectRoot returns the directory holding go.mod
func FindProjectRoot() (string, error) {
	return findProjectRoot()
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(projectRoot)

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	setDefaults()

	return nil
}

func setDefaults() {
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 50051)
	viper.SetDefault("METRICS_PORT", 9090)
	viper.SetDefault("CATALOG_STORE", StorePostgres)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 15432)
	viper.SetDefault("DB_USER", "riskmap")
	viper.SetDefault("DB_NAME", "riskmap_dev")
	viper.SetDefault("DB_SSLMODE", "disable")

	// Cache defaults
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_MAX_MEMORY_BYTES", 16*1024*1024) // 16MB
	viper.SetDefault("CACHE_METRICS", true)
	viper.SetDefault("CACHE_TTL_MINUTES", 5)

	// Logging defaults
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_FILE", "")

	// Widget defaults
	viper.SetDefault("WIDGET_TREE_DEPTH", 2)
	viper.SetDefault("WIDGET_SEARCH_PATH", `^/objectBrowser/?$`)
}

// Load loads configuration from viper
func Load() (*Config, error) {
	cfg := LoadWithoutDatabase()

	// DB_PASSWORD is required for security
	dbPassword := viper.GetString("DB_PASSWORD")
	if dbPassword == "" && cfg.Server.Store != StoreMemory {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}
	cfg.Database.Password = dbPassword

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithoutDatabase loads every setting except the database password.
// Used by offline tools that never connect to PostgreSQL.
func LoadWithoutDatabase() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        viper.GetString("SERVER_HOST"),
			Port:        viper.GetInt("SERVER_PORT"),
			MetricsPort: viper.GetInt("METRICS_PORT"),
			Store:       viper.GetString("CATALOG_STORE"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Database: viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:        viper.GetBool("CACHE_ENABLED"),
			MaxMemoryBytes: viper.GetInt64("CACHE_MAX_MEMORY_BYTES"),
			Metrics:        viper.GetBool("CACHE_METRICS"),
			TTLMinutes:     viper.GetInt("CACHE_TTL_MINUTES"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			File:   viper.GetString("LOG_FILE"),
		},
		Widgets: WidgetsConfig{
			TreeDepth:  viper.GetInt("WIDGET_TREE_DEPTH"),
			SearchPath: viper.GetString("WIDGET_SEARCH_PATH"),
		},
	}
}

// Validate checks settings that cannot be used as given
func (c *Config) Validate() error {
	if c.Widgets.TreeDepth < 0 {
		return fmt.Errorf("WIDGET_TREE_DEPTH must not be negative, got %d", c.Widgets.TreeDepth)
	}
	if c.Widgets.SearchPath != "" {
		if _, err := regexp.Compile(c.Widgets.SearchPath); err != nil {
			return fmt.Errorf("invalid WIDGET_SEARCH_PATH: %w", err)
		}
	}
	switch c.Server.Store {
	case "", StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("CATALOG_STORE must be postgres or memory, got %q", c.Server.Store)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
