// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JobToken  string        `yaml:"job_token"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type MailboxConfig struct {
	ClientID       string        `yaml:"client_id"`
	ClientSecret   string        `yaml:"client_secret"`
	RefreshToken   string        `yaml:"refresh_token"`
	PubSubTopic    string        `yaml:"pubsub_topic"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	ProviderFilter string        `yaml:"provider_filter"` // substring matched against From/Subject
	MaxMessages    int           `yaml:"max_messages"`    // per delivery
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	SeenCacheSize  int           `yaml:"seen_cache_size"`
}

type PaymentConfig struct {
	Provider            string   `yaml:"provider"`
	RedirectURL         string   `yaml:"redirect_url"`
	Instructions        string   `yaml:"instructions"`
	SupportedCurrencies []string `yaml:"supported_currencies"`
	NotifyOnReject      *bool    `yaml:"notify_on_reject"`
	NotifyOnActivate    *bool    `yaml:"notify_on_activate"`
}

type CheckoutConfig struct {
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
	Workers     int    `yaml:"workers"` // async notification workers
}

type SchedulerConfig struct {
	WatchRenewInterval time.Duration `yaml:"watch_renew_interval"`
	WatchRenewBefore   time.Duration `yaml:"watch_renew_before"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Mailbox   MailboxConfig   `yaml:"mailbox"`
	Payment   PaymentConfig   `yaml:"payment"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, overlays secrets from the environment
// (optionally seeded from a .env file next to the binary) and applies defaults.
func LoadConfig(configPath string, dev bool) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse builds a Config from YAML bytes and the current environment.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	envStr("DATABASE_URL", &cfg.Database.URL)
	envStr("REDIS_URL", &cfg.Redis.URL)
	envStr("REDIS_PASSWORD", &cfg.Redis.Password)
	envStr("JWT_SECRET", &cfg.Auth.JWTSecret)
	envStr("JOB_TOKEN", &cfg.Auth.JobToken)
	envStr("MAILBOX_WEBHOOK_SECRET", &cfg.Mailbox.WebhookSecret)
	envStr("GMAIL_CLIENT_ID", &cfg.Mailbox.ClientID)
	envStr("GMAIL_CLIENT_SECRET", &cfg.Mailbox.ClientSecret)
	envStr("GMAIL_REFRESH_TOKEN", &cfg.Mailbox.RefreshToken)
	envStr("GMAIL_PUBSUB_TOPIC", &cfg.Mailbox.PubSubTopic)
	envStr("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_ADMIN_CHAT_ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.AdminChatID = id
		}
	}
}

func envStr(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = time.Hour
	}

	cfg.Mailbox.ProviderFilter = strings.TrimSpace(cfg.Mailbox.ProviderFilter)
	if cfg.Mailbox.ProviderFilter == "" {
		cfg.Mailbox.ProviderFilter = "Boosty"
	}
	if cfg.Mailbox.MaxMessages <= 0 {
		cfg.Mailbox.MaxMessages = 20
	}
	if cfg.Mailbox.HTTPTimeout <= 0 {
		cfg.Mailbox.HTTPTimeout = 10 * time.Second
	}
	if cfg.Mailbox.SeenCacheSize <= 0 {
		cfg.Mailbox.SeenCacheSize = 1024
	}

	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "boosty"
	}
	if cfg.Payment.RedirectURL == "" {
		cfg.Payment.RedirectURL = "https://boosty.to/storywalkers"
	}
	if cfg.Payment.Instructions == "" {
		cfg.Payment.Instructions = "Complete payment on Boosty, then contact support with this activation code."
	}
	if len(cfg.Payment.SupportedCurrencies) == 0 {
		cfg.Payment.SupportedCurrencies = []string{"USD", "EUR", "PLN", "RUB"}
	}
	for i, c := range cfg.Payment.SupportedCurrencies {
		cfg.Payment.SupportedCurrencies[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	if cfg.Payment.NotifyOnReject == nil {
		t := true
		cfg.Payment.NotifyOnReject = &t
	}
	if cfg.Payment.NotifyOnActivate == nil {
		t := true
		cfg.Payment.NotifyOnActivate = &t
	}

	if cfg.Checkout.RateLimit <= 0 {
		cfg.Checkout.RateLimit = 10
	}
	if cfg.Checkout.RateWindow <= 0 {
		cfg.Checkout.RateWindow = time.Minute
	}
	if cfg.Telegram.Workers <= 0 {
		cfg.Telegram.Workers = 2
	}
	if cfg.Scheduler.WatchRenewInterval <= 0 {
		cfg.Scheduler.WatchRenewInterval = 6 * time.Hour
	}
	if cfg.Scheduler.WatchRenewBefore <= 0 {
		cfg.Scheduler.WatchRenewBefore = 24 * time.Hour
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
