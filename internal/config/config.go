package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ottomail/proposal-cli/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Gmail   GmailConfig   `yaml:"gmail" mapstructure:"gmail"`
	Notify  NotifyConfig  `yaml:"notify" mapstructure:"notify"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	Inbox   InboxConfig   `yaml:"inbox" mapstructure:"inbox"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LLMConfig configures the completion provider backing the AI stages.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GmailConfig holds Gmail OAuth credentials and inbox settings.
type GmailConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token"`
	MaxResults   int    `yaml:"max_results" mapstructure:"max_results"`
}

// NotifyConfig holds review-notification webhook settings.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// PricingConfig holds proposal pricing rates.
type PricingConfig struct {
	HourlyRate        float64            `yaml:"hourly_rate" mapstructure:"hourly_rate"`
	Multipliers       map[string]float64 `yaml:"multipliers" mapstructure:"multipliers"`
	DefaultMultiplier float64            `yaml:"default_multiplier" mapstructure:"default_multiplier"`
}

// Rates converts the pricing configuration into calculator rates, filling
// any unset value from the standard defaults.
func (p PricingConfig) Rates() cost.Rates {
	rates := cost.DefaultRates()
	if p.HourlyRate > 0 {
		rates.HourlyRate = p.HourlyRate
	}
	if len(p.Multipliers) > 0 {
		rates.Multipliers = p.Multipliers
	}
	if p.DefaultMultiplier > 0 {
		rates.DefaultMultiplier = p.DefaultMultiplier
	}
	return rates
}

// InboxConfig configures inbox polling.
type InboxConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration required for the given run mode
// is present. Modes: "process" (one-off pipeline run), "inbox" (Gmail
// polling), "serve" (webhook server), "proposals" (review operations).
func (c *Config) Validate(mode string) error {
	var missing []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			if c.Store.Path == "" {
				missing = append(missing, "store.path is required for the sqlite driver")
			}
		default:
			missing = append(missing, "store.driver must be postgres or sqlite")
		}
	}
	checkLLM := func() {
		switch c.LLM.Provider {
		case "mock", "":
		case "anthropic", "gemini":
			if c.LLM.Key == "" {
				missing = append(missing, "llm.key is required for provider "+c.LLM.Provider)
			}
		default:
			missing = append(missing, "llm.provider must be anthropic, gemini, or mock")
		}
		if c.LLM.TimeoutSecs < 0 {
			missing = append(missing, "llm.timeout_secs must be >= 0")
		}
	}
	checkGmail := func() {
		if c.Gmail.ClientID == "" {
			missing = append(missing, "gmail.client_id is required")
		}
		if c.Gmail.ClientSecret == "" {
			missing = append(missing, "gmail.client_secret is required")
		}
		if c.Gmail.RefreshToken == "" {
			missing = append(missing, "gmail.refresh_token is required")
		}
	}

	switch mode {
	case "process":
		checkStore()
		checkLLM()
	case "inbox":
		checkStore()
		checkLLM()
		checkGmail()
		if c.Inbox.MaxConcurrent < 1 || c.Inbox.MaxConcurrent > 20 {
			missing = append(missing, "inbox.max_concurrent must be between 1 and 20")
		}
	case "serve":
		checkStore()
		checkLLM()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "proposals":
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROPOSAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "proposals.db")
	v.SetDefault("llm.provider", "mock")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("gmail.max_results", 10)
	v.SetDefault("inbox.max_concurrent", 3)
	v.SetDefault("server.port", 8080)
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

	return &cfg, nil
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
