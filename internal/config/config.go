package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type VisualCrossingConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

type SessionConfig struct {
	TTL   time.Duration `mapstructure:"ttl"`
	Sweep string        `mapstructure:"sweep"`
}

type Config struct {
	Port           string               `mapstructure:"port"`
	LogLevel       string               `mapstructure:"log_level"`
	Location       string               `mapstructure:"location"`
	VisualCrossing VisualCrossingConfig `mapstructure:"visualcrossing"`
	Session        SessionConfig        `mapstructure:"session"`
	Redis          RedisConfig          `mapstructure:"redis"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
}

// Load reads an optional YAML file named by FORECAST_CONFIG, then applies
// FORECAST_* environment overrides and the plain variable names shared with the
// other homenavi services.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FORECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("FORECAST_CONFIG"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	bindLegacy(v, "port", "PORT", "WEATHER_SERVICE_PORT")
	bindLegacy(v, "visualcrossing.api_key", "VISUALCROSSING_API_KEY", "WEATHER_API_KEY")
	bindLegacy(v, "redis.addr", "REDIS_ADDR")
	bindLegacy(v, "redis.password", "REDIS_PASSWORD")
	bindLegacy(v, "log_level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8095")
	v.SetDefault("log_level", "info")
	v.SetDefault("location", "Local")
	v.SetDefault("visualcrossing.api_key", "")
	v.SetDefault("visualcrossing.base_url", "https://weather.visualcrossing.com")
	v.SetDefault("visualcrossing.timeout", 10*time.Second)
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.sweep", "@every 1m")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 10)
}

// bindLegacy lets an unprefixed variable set key unless FORECAST_* already did.
func bindLegacy(v *viper.Viper, key string, envs ...string) {
	prefixed := "FORECAST_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if os.Getenv(prefixed) != "" {
		return
	}
	for _, env := range envs {
		if val := os.Getenv(env); val != "" {
			v.Set(key, val)
			return
		}
	}
}

func (c *Config) sanitize() {
	if c.VisualCrossing.Timeout <= 0 {
		slog.Warn("invalid upstream timeout, using default", "timeout", c.VisualCrossing.Timeout)
		c.VisualCrossing.Timeout = 10 * time.Second
	}
	if c.Session.TTL <= 0 {
		slog.Warn("invalid session ttl, using default", "ttl", c.Session.TTL)
		c.Session.TTL = 30 * time.Minute
	}
	if strings.TrimSpace(c.Session.Sweep) == "" {
		c.Session.Sweep = "@every 1m"
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = c.RateLimit.RPS * 2
	}
}

// TimeLocation resolves Location, falling back to the process zone.
func (c Config) TimeLocation() *time.Location {
	if c.Location == "" || strings.EqualFold(c.Location, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		slog.Warn("unknown location, using local time", "location", c.Location, "error", err)
		return time.Local
	}
	return loc
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
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
