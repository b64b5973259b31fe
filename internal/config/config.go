package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"diagramboard/internal/cleanup"
	"diagramboard/internal/middleware"
	"diagramboard/internal/user"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port            int           `mapstructure:"port"`
		AllowedOrigins  []string      `mapstructure:"allowed_origins"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	OpenAI struct {
		APIKey         string        `mapstructure:"api_key"`
		BaseURL        string        `mapstructure:"base_url"`
		Model          string        `mapstructure:"model"`
		MaxTokens      int           `mapstructure:"max_tokens"`
		Temperature    float32       `mapstructure:"temperature"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"openai"`
	Cleanup struct {
		MaxAttempts    int           `mapstructure:"max_attempts"`
		InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	} `mapstructure:"cleanup"`
	Limits struct {
		MaxMessageSize    int           `mapstructure:"max_message_size"`
		MessagesPerSecond float64       `mapstructure:"messages_per_second"`
		BurstSize         int           `mapstructure:"burst_size"`
		SendQueueSize     int           `mapstructure:"send_queue_size"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"`
		ConnectsPerMinute float64       `mapstructure:"connects_per_minute"`
		ConnectBurst      int           `mapstructure:"connect_burst"`
		CleanupsPerMinute float64       `mapstructure:"cleanups_per_minute"`
		CleanupBurst      int           `mapstructure:"cleanup_burst"`
	} `mapstructure:"limits"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", cleanup.DefaultBaseURL)
	v.SetDefault("openai.model", cleanup.DefaultModel)
	v.SetDefault("openai.max_tokens", cleanup.DefaultMaxTokens)
	v.SetDefault("openai.temperature", cleanup.DefaultTemperature)
	v.SetDefault("openai.request_timeout", cleanup.DefaultRequestTimeout)

	v.SetDefault("cleanup.max_attempts", cleanup.DefaultMaxAttempts)
	v.SetDefault("cleanup.initial_backoff", cleanup.DefaultInitialBackoff)

	v.SetDefault("limits.max_message_size", 512*1024)
	v.SetDefault("limits.messages_per_second", 120)
	v.SetDefault("limits.burst_size", 240)
	v.SetDefault("limits.send_queue_size", 256)
	v.SetDefault("limits.write_timeout", 10*time.Second)
	v.SetDefault("limits.connects_per_minute", 10)
	v.SetDefault("limits.connect_burst", 5)
	v.SetDefault("limits.cleanups_per_minute", 6)
	v.SetDefault("limits.cleanup_burst", 3)
}

// Load reads .env, then an optional yaml file, then the environment.
// configFile, when set, must exist; otherwise config.yaml is searched in . and ./config.
func Load(configFile string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Addr: listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) CleanupConfig() cleanup.Config {
	return cleanup.Config{
		APIKey:         c.OpenAI.APIKey,
		BaseURL:        c.OpenAI.BaseURL,
		Model:          c.OpenAI.Model,
		MaxTokens:      c.OpenAI.MaxTokens,
		Temperature:    c.OpenAI.Temperature,
		MaxAttempts:    c.Cleanup.MaxAttempts,
		InitialBackoff: c.Cleanup.InitialBackoff,
		RequestTimeout: c.OpenAI.RequestTimeout,
	}
}

func (c *Config) UserOptions() user.Options {
	return user.Options{
		QueueSize:         c.Limits.SendQueueSize,
		WriteTimeout:      c.Limits.WriteTimeout,
		PingPeriod:        user.PingPeriod,
		MessagesPerSecond: c.Limits.MessagesPerSecond,
		BurstSize:         c.Limits.BurstSize,
	}
}

func (c *Config) RateLimit() *middleware.RateLimit {
	return middleware.NewRateLimit(c.Limits.MaxMessageSize)
}

func (c *Config) ConnectLimiter() *middleware.IPRateLimit {
	return middleware.NewIPRateLimit(c.Limits.ConnectsPerMinute, c.Limits.ConnectBurst)
}

func (c *Config) CleanupLimiter() *middleware.IPRateLimit {
	return middleware.NewIPRateLimit(c.Limits.CleanupsPerMinute, c.Limits.CleanupBurst)
}

// SlogLevel: unknown names fall back to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
