// Package config loads runtime configuration from the environment and the
// optional YAML seed file.
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

// AppName is used as the logger app field and in the health response.
const AppName = "hostly-backend"

// Defaults applied when the corresponding variable is unset or invalid.
const (
	DefaultPort            = "3000"
	DefaultLogLevel        = "info"
	DefaultSyncCron        = "0 * * * *"
	DefaultFetchTimeout    = 30 * time.Second
	DefaultSyncConcurrency = 4
	DefaultHistoryLimit    = 500
)

// Config is the top-level service configuration.
type Config struct {
	Port            string
	LogLevel        string
	SyncCron        string
	FetchTimeout    time.Duration
	SyncConcurrency int
	AllowedOrigins  []string
	SeedFile        string
	HistoryLimit    int
	Version         string
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Load reads a .env file if present and then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		SyncCron:        getEnv("SYNC_CRON", DefaultSyncCron),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", DefaultFetchTimeout),
		SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", DefaultSyncConcurrency),
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SeedFile:        os.Getenv("SEED_FILE"),
		HistoryLimit:    getEnvInt("HISTORY_LIMIT", DefaultHistoryLimit),
		Version:         os.Getenv("VERSION"),
	}
	cfg.Normalize()
	return cfg
}

// Normalize replaces zero or out-of-range values with defaults.
func (c *Config) Normalize() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.SyncCron == "" {
		c.SyncCron = DefaultSyncCron
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.SyncConcurrency <= 0 {
		c.SyncConcurrency = DefaultSyncConcurrency
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.Version == "" {
		c.Version = "dev"
	}
}

// SeedProperty is one property entry in the seed file.
type SeedProperty struct {
	PropertyID string `yaml:"propertyId"`
	Name       string `yaml:"name"`
	ICalURL    string `yaml:"icalUrl"`
}

type seedFile struct {
	Properties []SeedProperty `yaml:"properties"`
}

// LoadSeed reads the property list from a YAML file. An empty path yields no
// properties and no error.
func LoadSeed(path string) ([]SeedProperty, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	for i, p := range sf.Properties {
		if p.PropertyID == "" || p.ICalURL == "" {
			return nil, errors.New("seed file entry " + strconv.Itoa(i) + ": propertyId and icalUrl are required")
		}
	}

	return sf.Properties, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
