package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files, environment
// variables and command line flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIKey             string        `mapstructure:"odds_api_key"`
	APIKeyFile         string        `mapstructure:"odds_api_key_file"`
	BaseURL            string        `mapstructure:"odds_api_base_url"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	DefaultSport      string `mapstructure:"default_sport"`
	DefaultRegions    string `mapstructure:"default_regions"`
	DefaultMarkets    string `mapstructure:"default_markets"`
	DefaultOddsFormat string `mapstructure:"default_odds_format"`
	DefaultDateFormat string `mapstructure:"default_date_format"`
	DefaultDaysFrom   int    `mapstructure:"default_days_from"`

	OutputPretty bool `mapstructure:"output_pretty"`

	PublishersFile string `mapstructure:"publishers_file"`
	ProfilesFile   string `mapstructure:"profiles_file"`

	PushgatewayURL string `mapstructure:"metrics_pushgateway_url"`
	MetricsJob     string `mapstructure:"metrics_job"`
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"api-key":      "odds_api_key",
	"api-key-file": "odds_api_key_file",
	"base-url":     "odds_api_base_url",
	"timeout":      "http_timeout_seconds",
	"log-level":    "log_level",
	"sport":        "default_sport",
	"regions":      "default_regions",
	"markets":      "default_markets",
	"odds-format":  "default_odds_format",
	"date-format":  "default_date_format",
	"days-from":    "default_days_from",
	"pretty":       "output_pretty",
	"publishers":   "publishers_file",
	"profiles":     "profiles_file",
	"pushgateway":  "metrics_pushgateway_url",
}

// Load reads configuration from .env files, environment variables and, when fs
// is non-nil, any flags the user actually set. Flags win over env, env over
// defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load(".env")

	v := viper.New()

	v.SetDefault("app_name", "oddsapi")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("odds_api_key", "")
	v.SetDefault("odds_api_key_file", "odds_api_key.txt")
	v.SetDefault("odds_api_base_url", "https://api.the-odds-api.com")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("default_sport", "basketball_nba")
	v.SetDefault("default_regions", "us")
	v.SetDefault("default_markets", "h2h,spreads")
	v.SetDefault("default_odds_format", "decimal")
	v.SetDefault("default_date_format", "iso")
	v.SetDefault("default_days_from", 1)
	v.SetDefault("output_pretty", true)
	v.SetDefault("publishers_file", "")
	v.SetDefault("profiles_file", "./configs/profiles.yaml")
	v.SetDefault("metrics_pushgateway_url", "")
	v.SetDefault("metrics_job", "oddsapi")

	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid odds_api_base_url (must not be empty)")
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	return &cfg, nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	return c
}
