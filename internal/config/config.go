package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/contact-research/internal/cost"
)

// Research providers.
const (
	ProviderOpenAI     = "openai"
	ProviderPerplexity = "perplexity"
	ProviderAnthropic  = "anthropic"
)

// Validation modes.
const (
	ModeResearch = "research"
	ModeServe    = "serve"
)

// credentialFiles are loaded into the process environment before viper binds
// it. Values already present in the environment are not overwritten.
var credentialFiles = []string{"key.env", ".env"}

// vendorEnv maps a provider to the conventional environment variables that
// back llm.key and llm.model when they are not set explicitly.
var vendorEnv = map[string][2]string{
	ProviderOpenAI:     {"OPENAI_API_KEY", "OPENAI_MODEL"},
	ProviderPerplexity: {"PERPLEXITY_API_KEY", "PERPLEXITY_MODEL"},
	ProviderAnthropic:  {"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL"},
}

// Config holds the full application configuration.
type Config struct {
	LLM     LLMConfig    `yaml:"llm" mapstructure:"llm"`
	Batch   BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig `yaml:"server" mapstructure:"server"`
	Log     LogConfig    `yaml:"log" mapstructure:"log"`
	Pricing cost.Rates   `yaml:"pricing" mapstructure:"pricing"`
}

// LLMConfig selects and configures the research provider.
type LLMConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"`
	Model            string `yaml:"model" mapstructure:"model"`
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens        int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	WebSearchMaxUses int64  `yaml:"web_search_max_uses" mapstructure:"web_search_max_uses"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	// MaxConcurrency bounds in-flight provider calls per phase. 0 means unbounded.
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	// FailurePolicy is parsed by batch.ParsePolicy. Empty means abort.
	FailurePolicy string `yaml:"failure_policy" mapstructure:"failure_policy"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from credential files, the config file and the
// environment.
func Load() (*Config, error) {
	for _, f := range credentialFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(err, "config: load %s", f)
		}
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a default are invisible to AutomaticEnv during
	// Unmarshal, so every key gets one.
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.web_search_max_uses", 5)
	v.SetDefault("llm.timeout_secs", 180)
	v.SetDefault("batch.max_concurrency", 0)
	v.SetDefault("batch.failure_policy", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if names, ok := vendorEnv[cfg.LLM.Provider]; ok {
		if cfg.LLM.Key == "" {
			cfg.LLM.Key = os.Getenv(names[0])
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = os.Getenv(names[1])
		}
	}
	cfg.Pricing = cost.DefaultRates().Merge(cfg.Pricing)

	return &cfg, nil
}

// Validate checks the settings a command mode depends on: ModeResearch for
// the research and lookup commands, ModeServe for the HTTP server.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeResearch:
		errs = append(errs, c.validateResearch()...)
	case ModeServe:
		errs = append(errs, c.validateResearch()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateResearch() []string {
	var errs []string

	if _, ok := vendorEnv[c.LLM.Provider]; !ok {
		errs = append(errs, "llm.provider must be one of openai, perplexity, anthropic")
	}
	if c.LLM.Key == "" {
		errs = append(errs, "llm.key is required")
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, "llm.max_tokens must be >= 0")
	}
	if c.Batch.MaxConcurrency < 0 || c.Batch.MaxConcurrency > 50 {
		errs = append(errs, "batch.max_concurrency must be between 0 and 50")
	}
	return errs
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
