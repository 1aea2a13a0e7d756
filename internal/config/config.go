package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	HTTPTimeout     time.Duration
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
	StaticDir       string
	SeedSample      bool
	RandomSeed      int64
}

// FromEnv reads configuration from the environment.
func FromEnv() Config {
	cfg, _ := load(viper.New(), "")
	return cfg
}

// Load reads an optional config file (any format viper understands) with
// environment variables taking precedence over it.
func Load(path string) (Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (Config, error) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 15)
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("SEED_SAMPLE", true)
	v.SetDefault("RANDOM_SEED", 0)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fromViper(v), fmt.Errorf("reading config file: %w", err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Port:            envOr(v, "PORT", "8080"),
		HTTPTimeout:     seconds(v, "HTTP_TIMEOUT_SECONDS", 15),
		ShutdownTimeout: seconds(v, "SHUTDOWN_TIMEOUT_SECONDS", 5),
		LogLevel:        ParseLevel(v.GetString("LOG_LEVEL")),
		StaticDir:       v.GetString("STATIC_DIR"),
		SeedSample:      v.GetBool("SEED_SAMPLE"),
		RandomSeed:      v.GetInt64("RANDOM_SEED"),
	}
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func seconds(v *viper.Viper, k string, def int) time.Duration {
	n := v.GetInt(k)
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

func envOr(v *viper.Viper, k, def string) string {
	s := v.GetString(k)
	if s == "" {
		return def
	}
	return s
}
