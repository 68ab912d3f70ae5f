// Package config loads the bot configuration from a YAML file layered with
// TELEROUTE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TELEROUTE_BOT_TOKEN.
const EnvPrefix = "TELEROUTE_"

const (
	DefaultBotAPIURL       = "https://api.telegram.org"
	DefaultRetryMax        = 3
	DefaultPollTimeout     = 30
	DefaultShutdownTimeout = 10 * time.Second
	DefaultParseMode       = "HTML"
	DefaultWebhookPath     = "/webhook"
	DefaultWebhookPort     = 8080
	DefaultLogLevel        = "info"
)

type Config struct {
	Bot      BotConfig      `yaml:"bot" envPrefix:"BOT_"`
	API      APIConfig      `yaml:"api" envPrefix:"API_"`
	Settings SettingsConfig `yaml:"settings" envPrefix:"SETTINGS_"`
	Webhook  WebhookConfig  `yaml:"webhook" envPrefix:"WEBHOOK_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

type BotConfig struct {
	Token string `yaml:"token" env:"TOKEN"`
}

type APIConfig struct {
	// BotAPIURL points at api.telegram.org or a self-hosted Bot API server.
	BotAPIURL string `yaml:"bot_api_url" env:"BOT_API_URL"`
	IsLocal   bool   `yaml:"is_local" env:"IS_LOCAL"`
	// RetryMax bounds transport-level retries of outbound API calls.
	RetryMax int `yaml:"retry_max" env:"RETRY_MAX"`
}

type SettingsConfig struct {
	UseWebhook         bool          `yaml:"use_webhook" env:"USE_WEBHOOK"`
	DropPendingUpdates bool          `yaml:"drop_pending_updates" env:"DROP_PENDING_UPDATES"`
	OwnerID            int64         `yaml:"owner_id" env:"OWNER_ID"`
	AllowedUserIDs     []int64       `yaml:"allowed_user_ids" env:"ALLOWED_USER_IDS" envSeparator:","`
	ThrottleRate       float64       `yaml:"throttle_rate" env:"THROTTLE_RATE"`
	ThrottleBurst      int           `yaml:"throttle_burst" env:"THROTTLE_BURST"`
	PollTimeout        int           `yaml:"poll_timeout" env:"POLL_TIMEOUT"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	ParseMode          string        `yaml:"parse_mode" env:"PARSE_MODE"`
}

type WebhookConfig struct {
	URL  string `yaml:"url" env:"URL"`
	Path string `yaml:"path" env:"PATH"`
	Port int    `yaml:"port" env:"PORT"`
}

type LogConfig struct {
	Level   string `yaml:"level" env:"LEVEL"`
	NoColor bool   `yaml:"no_color" env:"NO_COLOR"`
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides from the process environment, fills defaults and
// validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment; nil means os.Environ.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, errors.Wrap(err, "parsing env config")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.BotAPIURL == "" {
		c.API.BotAPIURL = DefaultBotAPIURL
	}
	if c.API.RetryMax == 0 {
		c.API.RetryMax = DefaultRetryMax
	}
	if c.Settings.PollTimeout == 0 {
		c.Settings.PollTimeout = DefaultPollTimeout
	}
	if c.Settings.ShutdownTimeout == 0 {
		c.Settings.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Settings.ParseMode == "" {
		c.Settings.ParseMode = DefaultParseMode
	}
	if c.Webhook.Path == "" {
		c.Webhook.Path = DefaultWebhookPath
	}
	if c.Webhook.Port == 0 {
		c.Webhook.Port = DefaultWebhookPort
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return errors.New("bot.token is required")
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return errors.Errorf("webhook.path %q must start with /", c.Webhook.Path)
	}
	if c.Webhook.Port < 1 || c.Webhook.Port > 65535 {
		return errors.Errorf("webhook.port %d out of range", c.Webhook.Port)
	}
	if c.API.RetryMax < 0 {
		return errors.Errorf("api.retry_max %d must not be negative", c.API.RetryMax)
	}
	if c.Settings.PollTimeout < 0 {
		return errors.Errorf("settings.poll_timeout %d must not be negative", c.Settings.PollTimeout)
	}
	if c.Settings.ThrottleRate < 0 || c.Settings.ThrottleBurst < 0 {
		return errors.New("settings.throttle_rate and throttle_burst must not be negative")
	}
	switch c.Settings.ParseMode {
	case "HTML", "Markdown", "MarkdownV2", "None":
	default:
		return errors.Errorf("settings.parse_mode %q is not one of HTML, Markdown, MarkdownV2, None", c.Settings.ParseMode)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// WebhookURL is the public URL registered with setWebhook. Without an
// explicit url it falls back to the local listener.
func (c *Config) WebhookURL() string {
	if c.Webhook.URL != "" {
		return strings.TrimSuffix(c.Webhook.URL, "/") + c.Webhook.Path
	}
	return fmt.Sprintf("http://localhost:%d%s", c.Webhook.Port, c.Webhook.Path)
}

// WebhookAddr is the listen address of the webhook server.
func (c *Config) WebhookAddr() string {
	return fmt.Sprintf(":%d", c.Webhook.Port)
}

// EffectiveParseMode maps the configured parse mode to the Bot API value;
// "None" sends plain text.
func (c *Config) EffectiveParseMode() string {
	if c.Settings.ParseMode == "None" {
		return ""
	}
	return c.Settings.ParseMode
}

// IsOwner reports whether userID is the configured owner.
func (c *Config) IsOwner(userID int64) bool {
	return c.Settings.OwnerID != 0 && c.Settings.OwnerID == userID
}
