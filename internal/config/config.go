package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/benchmark-cli/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig              `yaml:"store" mapstructure:"store"`
	Server    ServerConfig             `yaml:"server" mapstructure:"server"`
	Log       LogConfig                `yaml:"log" mapstructure:"log"`
	Analysis  AnalysisConfig           `yaml:"analysis" mapstructure:"analysis"`
	Anthropic AnthropicConfig          `yaml:"anthropic" mapstructure:"anthropic"`
	Workspace WorkspaceConfig          `yaml:"workspace" mapstructure:"workspace"`
	Category  CategoryConfig           `yaml:"category" mapstructure:"category"`
	Breaker   resilience.BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnalysisConfig holds settings for the comparability analysis backend.
type AnalysisConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
	// RateLimit is the number of requests per second sent to the backend.
	RateLimit   float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	// BatchSize caps the companies sent in one web search request.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// WorkspaceConfig configures the in-memory benchmark workspaces.
type WorkspaceConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// CategoryConfig tunes company categorization.
type CategoryConfig struct {
	MinDescriptionWords int `yaml:"min_description_words" mapstructure:"min_description_words"`
}

// Load reads configuration from an optional .env file, config.yaml and the
// environment. Environment variables use the BENCHMARK_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BENCHMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have empty defaults so AutomaticEnv sees them during Unmarshal.
	v.SetDefault("store.database_url", "")
	v.SetDefault("analysis.key", "")
	v.SetDefault("anthropic.key", "")

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("analysis.base_url", "http://localhost:8000")
	v.SetDefault("analysis.rate_limit", 5.0)
	v.SetDefault("analysis.timeout", "30s")
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.batch_size", 25)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("workspace.refresh_interval", "30s")
	v.SetDefault("category.min_description_words", 50)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout", "30s")
	v.SetDefault("breaker.half_open_probes", 1)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "serve",
// "store" or "analysis".
func (c *Config) Validate(mode string) error {
	var problems []string
	switch mode {
	case "store":
		problems = c.storeProblems()
	case "analysis":
		problems = append(c.storeProblems(), c.analysisProblems()...)
	case "serve":
		problems = append(c.storeProblems(), c.analysisProblems()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Workspace.RefreshInterval < time.Second {
			problems = append(problems, "workspace.refresh_interval must be at least 1s")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}
	if c.Category.MinDescriptionWords < 0 {
		problems = append(problems, "category.min_description_words must not be negative")
	}
	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) storeProblems() []string {
	var out []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			out = append(out, "store.database_url is required for postgres (BENCHMARK_STORE_DATABASE_URL)")
		}
	case "sqlite":
	default:
		out = append(out, "store.driver must be postgres or sqlite")
	}
	return out
}

func (c *Config) analysisProblems() []string {
	var out []string
	if c.Analysis.BaseURL == "" {
		out = append(out, "analysis.base_url is required")
	}
	if c.Analysis.RateLimit <= 0 {
		out = append(out, "analysis.rate_limit must be positive")
	}
	if c.Analysis.Concurrency < 1 || c.Analysis.Concurrency > 32 {
		out = append(out, "analysis.concurrency must be between 1 and 32")
	}
	if c.Analysis.BatchSize < 0 {
		out = append(out, "analysis.batch_size must not be negative")
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
