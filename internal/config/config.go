package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/example/traybridge/internal/logging"
)

const envPrefix = "TRAYBRIDGE"

// Config is the settings file shared by the demo host and the reference
// renderer.
type Config struct {
	Renderer RendererConfig `mapstructure:"renderer"`
	Log      LogConfig      `mapstructure:"log"`
	// Platform overrides runtime.GOOS for the checkbox title policy.
	Platform string `mapstructure:"platform"`
}

// RendererConfig locates the renderer executable.
type RendererConfig struct {
	Path     string `mapstructure:"path"`
	CacheDir string `mapstructure:"cache_dir"`
}

// LogConfig configures zap output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from configPath, or from traybridge.yaml in the
// working directory or $HOME/.traybridge when configPath is empty. A missing
// default file is not an error. TRAYBRIDGE_* environment variables override
// file values, e.g. TRAYBRIDGE_LOG_LEVEL.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("renderer.path", "")
	v.SetDefault("renderer.cache_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("platform", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("traybridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.traybridge")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console", "text":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format)
	}

	if c.Log.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(c.Log.Level))); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

// LoggingOptions converts the log section for logging.New.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	}
}
