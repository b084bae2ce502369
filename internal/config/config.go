package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/errors"
)

// Config holds all configuration settings
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Audit log collaborator (append-only agent step trail)
	AuditLog AuditLogConfig `yaml:"audit_log"`

	// Job-tracking store
	Jobs JobsConfig `yaml:"jobs"`

	// Reconstruction payload cache
	Cache CacheConfig `yaml:"cache"`

	// Live graph (comparison view only)
	Neo4j Neo4jConfig `yaml:"neo4j"`

	// Logging
	Log LogConfig `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second per client
	RateBurst       int           `yaml:"rate_burst"`
}

type AuditLogConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

type JobsConfig struct {
	Type        string `yaml:"type"` // "postgres", "sqlite"
	PostgresDSN string `yaml:"postgres_dsn"`
	SQLitePath  string `yaml:"sqlite_path"`
}

type CacheConfig struct {
	Type          string        `yaml:"type"` // "redis", "bolt", "none"
	RedisHost     string        `yaml:"redis_host"`
	RedisPort     int           `yaml:"redis_port"`
	RedisPassword string        `yaml:"redis_password"`
	BoltPath      string        `yaml:"bolt_path"`
	TTL           time.Duration `yaml:"ttl"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type LogConfig struct {
	Level      string `yaml:"level"` // "debug", "info", "warn", "error"
	JSONFormat bool   `yaml:"json_format"`
	OutputFile string `yaml:"output_file"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
		},
		Jobs: JobsConfig{
			Type:       "sqlite",
			SQLitePath: filepath.Join(homeDir, ".graph-cockpit", "jobs.db"),
		},
		Cache: CacheConfig{
			Type:      "bolt",
			RedisPort: 6379,
			BoltPath:  filepath.Join(homeDir, ".graph-cockpit", "cache.db"),
			TTL:       15 * time.Minute,
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	cfg := Default()
	v.SetDefault("server", cfg.Server)
	v.SetDefault("audit_log", cfg.AuditLog)
	v.SetDefault("jobs", cfg.Jobs)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("neo4j", cfg.Neo4j)
	v.SetDefault("log", cfg.Log)

	// Load from environment variables
	v.SetEnvPrefix("COCKPIT")
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".graph-cockpit")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".graph-cockpit"))
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate checks that the loaded configuration is usable for serving.
func (c *Config) Validate() error {
	if c.AuditLog.PostgresDSN == "" {
		return apperrors.ConfigError("audit log DSN missing: set AUDIT_LOG_DSN or audit_log.postgres_dsn")
	}
	switch c.Jobs.Type {
	case "sqlite", "postgres":
	default:
		return apperrors.ValidationError(fmt.Sprintf("unknown jobs store type %q (want sqlite or postgres)", c.Jobs.Type))
	}
	if c.Jobs.Type == "postgres" && c.Jobs.PostgresDSN == "" {
		return apperrors.ConfigErrorf("jobs store type is postgres but jobs.postgres_dsn is empty")
	}
	switch c.Cache.Type {
	case "redis", "bolt", "none", "":
	default:
		return apperrors.ValidationError(fmt.Sprintf("unknown cache type %q (want redis, bolt, or none)", c.Cache.Type))
	}
	if c.Cache.Type == "redis" && c.Cache.RedisHost == "" {
		return apperrors.ConfigErrorf("cache type is redis but cache.redis_host is empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.ValidationError(fmt.Sprintf("server port %d out of range", c.Server.Port))
	}
	return nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".graph-cockpit", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("AUDIT_LOG_DSN"); dsn != "" {
		cfg.AuditLog.PostgresDSN = dsn
	}
	if dsn := os.Getenv("JOBS_DSN"); dsn != "" {
		cfg.Jobs.Type = "postgres"
		cfg.Jobs.PostgresDSN = dsn
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisHost = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Cache.RedisPort = p
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Cache.RedisPassword = password
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Neo4j.User = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		cfg.Neo4j.Password = password
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
}
