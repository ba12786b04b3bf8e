package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Liveness   LivenessConfig   `yaml:"liveness"`
	Commands   CommandsConfig   `yaml:"commands"`
	Pairing    PairingConfig    `yaml:"pairing"`
	Redis      RedisConfig      `yaml:"redis"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the offline alert worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether offline alerts can be sent.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// LivenessConfig controls the online/offline sweep.
type LivenessConfig struct {
	WindowSeconds        int           `yaml:"window_seconds"`
	SweepIntervalSeconds int           `yaml:"sweep_interval_seconds"`
	Window               time.Duration `yaml:"-"`
	SweepInterval        time.Duration `yaml:"-"`
}

// CommandsConfig controls the remote command queue.
type CommandsConfig struct {
	DefaultTTLSeconds int           `yaml:"default_ttl_seconds"`
	DrainLimit        int           `yaml:"drain_limit"`
	HistoryLimit      int           `yaml:"history_limit"`
	DefaultTTL        time.Duration `yaml:"-"`
}

// PairingConfig controls OTP pairing codes.
type PairingConfig struct {
	OTPTTLMinutes int           `yaml:"otp_ttl_minutes"`
	MaxAttempts   int           `yaml:"max_attempts"`
	OTPTTL        time.Duration `yaml:"-"`
}

// RedisConfig holds the connection used to publish content-change events.
// An empty Addr disables publishing.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path, applies environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.LoadFromEnv()
	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadFromEnv overrides selected settings from the environment.
func (c *Config) LoadFromEnv() {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}

// ApplyDefaults fills zero values and derives the duration fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 5
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 10
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 5
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "signage.db"
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Liveness.WindowSeconds <= 0 {
		c.Liveness.WindowSeconds = 300
	}
	if c.Liveness.SweepIntervalSeconds <= 0 {
		c.Liveness.SweepIntervalSeconds = 60
	}
	c.Liveness.Window = time.Duration(c.Liveness.WindowSeconds) * time.Second
	c.Liveness.SweepInterval = time.Duration(c.Liveness.SweepIntervalSeconds) * time.Second

	if c.Commands.DefaultTTLSeconds <= 0 {
		c.Commands.DefaultTTLSeconds = 3600
	}
	if c.Commands.DrainLimit <= 0 {
		c.Commands.DrainLimit = 10
	}
	if c.Commands.HistoryLimit <= 0 {
		c.Commands.HistoryLimit = 50
	}
	c.Commands.DefaultTTL = time.Duration(c.Commands.DefaultTTLSeconds) * time.Second

	if c.Pairing.OTPTTLMinutes <= 0 {
		c.Pairing.OTPTTLMinutes = 15
	}
	if c.Pairing.MaxAttempts <= 0 {
		c.Pairing.MaxAttempts = 10
	}
	c.Pairing.OTPTTL = time.Duration(c.Pairing.OTPTTLMinutes) * time.Minute

	if c.Redis.Channel == "" {
		c.Redis.Channel = "signage:content-changes"
	}

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}
	if c.WorkerPool.Size <= 0 {
		c.WorkerPool.Size = 1
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}
