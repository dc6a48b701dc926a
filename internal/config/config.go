/*
Package config loads service configuration from an optional YAML file, an
optional .env file and the process environment, in that order of
precedence (environment wins).
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/annrelay/internal/ai"
	"github.com/shanehull/annrelay/internal/market"
	"github.com/shanehull/annrelay/internal/notify"
)

const (
	DefaultPath       = "config.yaml"
	DefaultRelayPort  = 3001
	DefaultMarketPort = 3000
)

type Config struct {
	Server    Server             `yaml:"server"`
	Logging   Logging            `yaml:"logging"`
	AI        AI                 `yaml:"ai"`
	WhatsApp  WhatsApp           `yaml:"whatsapp"`
	Relay     Relay              `yaml:"relay"`
	ShortLink ShortLink          `yaml:"shortlink"`
	History   History            `yaml:"history"`
	SMTP      notify.EmailConfig `yaml:"smtp"`
	Market    Market             `yaml:"market"`
}

type Server struct {
	Port            int `yaml:"port"`
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AI struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type WhatsApp struct {
	AuthDir        string        `yaml:"auth_dir"`
	ReadyTimeout   time.Duration `yaml:"ready_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type Relay struct {
	Dedupe       bool `yaml:"dedupe"`
	StreamBuffer int  `yaml:"stream_buffer"`
}

type ShortLink struct {
	BaseURL  string `yaml:"base_url"`
	RedisURL string `yaml:"redis_url"`
}

type History struct {
	Dir      string `yaml:"dir"`
	Timezone string `yaml:"timezone"`
}

type Market struct {
	Port          int           `yaml:"port"`
	Keys          market.Keys   `yaml:"keys"`
	Timeout       time.Duration `yaml:"timeout"`
	AlpacaDataURL string        `yaml:"alpaca_data_url"`
}

// Load reads path (a missing file is not an error), loads envFile into the
// environment if present, applies environment overrides and fills defaults.
func Load(path, envFile string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.AI.APIKey, "GEMINI_API_KEY")
	setString(&cfg.AI.Model, "GEMINI_MODEL")

	setString(&cfg.Market.Keys.AlphaVantage, "ALPHA_VANTAGE_API_KEY")
	setString(&cfg.Market.Keys.FMP, "FMP_API_KEY")
	setString(&cfg.Market.Keys.Finnhub, "FINNHUB_API_KEY")
	setString(&cfg.Market.Keys.Polygon, "POLYGON_API_KEY")
	setString(&cfg.Market.Keys.AlpacaKey, "APCA_API_KEY_ID")
	setString(&cfg.Market.Keys.AlpacaSecret, "APCA_API_SECRET_KEY")

	setString(&cfg.WhatsApp.AuthDir, "AUTH_DIR")
	setString(&cfg.ShortLink.BaseURL, "PUBLIC_BASE_URL")
	setString(&cfg.ShortLink.RedisURL, "REDIS_URL")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	setString(&cfg.SMTP.SMTPServer, "SMTP_SERVER")
	setString(&cfg.SMTP.SMTPUser, "SMTP_USER")
	setString(&cfg.SMTP.SMTPPass, "SMTP_PASS")
	setString(&cfg.SMTP.FromEmail, "SMTP_FROM")
	setString(&cfg.SMTP.ToEmail, "SMTP_TO")

	if err := setInt(&cfg.SMTP.SMTPPort, "SMTP_PORT"); err != nil {
		return err
	}
	return setInt(&cfg.Server.Port, "PORT")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultRelayPort
	}
	if c.Server.RateLimitPerMin == 0 {
		c.Server.RateLimitPerMin = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.AI.Model == "" {
		c.AI.Model = ai.DefaultModel
	}
	if c.WhatsApp.AuthDir == "" {
		c.WhatsApp.AuthDir = "auth_info"
	}
	if c.WhatsApp.ReadyTimeout == 0 {
		c.WhatsApp.ReadyTimeout = 15 * time.Second
	}
	if c.WhatsApp.ReconnectDelay == 0 {
		c.WhatsApp.ReconnectDelay = 3 * time.Second
	}
	if c.Relay.StreamBuffer == 0 {
		c.Relay.StreamBuffer = 100
	}
	if c.ShortLink.BaseURL == "" {
		c.ShortLink.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.History.Timezone == "" {
		c.History.Timezone = "Asia/Kolkata"
	}
	if c.SMTP.SMTPPort == 0 {
		c.SMTP.SMTPPort = 587
	}
	if c.SMTP.FromEmail == "" {
		c.SMTP.FromEmail = c.SMTP.SMTPUser
	}
	if c.Market.Port == 0 {
		c.Market.Port = DefaultMarketPort
	}
	if c.Market.Timeout == 0 {
		c.Market.Timeout = market.DefaultTimeout
	}
}
