package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	HTTP struct {
		Addr            string        `yaml:"addr"` // ":5000"
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`

	Store struct {
		Driver      string `yaml:"driver"` // memory | postgres
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"store"`

	Tracing struct {
		Host        string  `yaml:"host"`
		Probability float64 `yaml:"probability"`
	} `yaml:"tracing"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Client struct {
		ServerURL      string        `yaml:"server_url"`
		Cache          string        `yaml:"cache"` // memory | file | redis
		CachePath      string        `yaml:"cache_path"`
		RedisAddr      string        `yaml:"redis_addr"`
		RedisPassword  string        `yaml:"redis_password"`
		RedisDB        int           `yaml:"redis_db"`
		RedisPrefix    string        `yaml:"redis_prefix"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		SyncInterval   time.Duration `yaml:"sync_interval"`
		HealthInterval time.Duration `yaml:"health_interval"`
		MetricsAddr    string        `yaml:"metrics_addr"`
	} `yaml:"client"`
}

// Load reads comma-separated YAML files ("common.yml,api.yml"); later files
// override earlier ones. A .env file and the process environment are applied
// on top, then defaults fill whatever is still empty. An empty list is valid.
func Load(pathList string) (*Config, error) {
	// Load .env file if exists
	godotenv.Load()

	c := Config{}
	c.Metrics.Enabled = true
	c.Tracing.Probability = -1

	for _, p := range strings.Split(pathList, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.DatabaseURL = getEnv("DATABASE_URL", c.Store.DatabaseURL)
	c.Tracing.Host = getEnv("OTEL_HOST", c.Tracing.Host)
	c.Client.ServerURL = getEnv("SERVER_URL", c.Client.ServerURL)
	c.Client.Cache = getEnv("CLIENT_CACHE", c.Client.Cache)
	c.Client.RedisAddr = getEnv("REDIS_ADDR", c.Client.RedisAddr)
	c.Client.RedisPassword = getEnv("REDIS_PASSWORD", c.Client.RedisPassword)
	c.Client.RedisDB = getEnvAsInt("REDIS_DB", c.Client.RedisDB)

	// defaults
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":5000"
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 5 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Tracing.Probability < 0 {
		c.Tracing.Probability = 1.0
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = "http://localhost:5000"
	}
	if c.Client.Cache == "" {
		c.Client.Cache = "file"
	}
	if c.Client.CachePath == "" {
		c.Client.CachePath = ".orderqueue.json"
	}
	if c.Client.RedisAddr == "" {
		c.Client.RedisAddr = "localhost:6379"
	}
	if c.Client.RedisPrefix == "" {
		c.Client.RedisPrefix = "orderqueue:"
	}
	if c.Client.RequestTimeout == 0 {
		c.Client.RequestTimeout = 5 * time.Second
	}
	if c.Client.SyncInterval == 0 {
		c.Client.SyncInterval = time.Second
	}
	if c.Client.HealthInterval == 0 {
		c.Client.HealthInterval = time.Second
	}
	return &c, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
