// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres | memory
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type BillingConfig struct {
	Currency          string        `yaml:"currency"`
	GatewayTimeout    time.Duration `yaml:"gateway_timeout"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileAfter    time.Duration `yaml:"reconcile_after"`
	ExpiryInterval    time.Duration `yaml:"expiry_interval"`
	ReceiptMaxBytes   int64         `yaml:"receipt_max_bytes"`
	ReceiptDir        string        `yaml:"receipt_dir"`
	ReceiptsPerHour   int           `yaml:"receipts_per_hour"`
	DefaultReturnURL  string        `yaml:"default_return_url"`
}

type ClickConfig struct {
	Enabled        bool   `yaml:"enabled"`
	MerchantID     string `yaml:"merchant_id"`
	ServiceID      string `yaml:"service_id"`
	MerchantUserID string `yaml:"merchant_user_id"`
	SecretKey      string `yaml:"secret_key"`
}

type PaymeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	MerchantID string `yaml:"merchant_id"`
	SecretKey  string `yaml:"secret_key"`
}

type StripeConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
	CancelURL     string `yaml:"cancel_url"`
}

// NoopConfig enables the in-memory test gateway. Never enable it in production.
type NoopConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type PaymentConfig struct {
	Click  ClickConfig  `yaml:"click"`
	Payme  PaymeConfig  `yaml:"payme"`
	Stripe StripeConfig `yaml:"stripe"`
	Noop   NoopConfig   `yaml:"noop"`
}

type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Billing  BillingConfig  `yaml:"billing"`
	Payment  PaymentConfig  `yaml:"payment"`
	Telegram TelegramConfig `yaml:"telegram"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads an optional .env file, the YAML file at path and then
// applies environment overrides and defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse builds a Config from YAML bytes. Exposed for tests.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Payment.Stripe.Enabled && (cfg.Payment.Stripe.SecretKey == "" || cfg.Payment.Stripe.WebhookSecret == "") {
		return nil, errors.New("payment.stripe requires secret_key and webhook_secret")
	}
	if cfg.Payment.Stripe.Enabled && !strings.EqualFold(cfg.Payment.Stripe.Currency, cfg.Billing.Currency) {
		return nil, fmt.Errorf("payment.stripe.currency %q must match billing.currency %q", cfg.Payment.Stripe.Currency, cfg.Billing.Currency)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Payment.Click.SecretKey, "CLICK_SECRET_KEY")
	override(&cfg.Payment.Payme.SecretKey, "PAYME_SECRET_KEY")
	override(&cfg.Payment.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	override(&cfg.Payment.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	override(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "UZS"
	}
	if cfg.Billing.GatewayTimeout <= 0 {
		cfg.Billing.GatewayTimeout = 10 * time.Second
	}
	if cfg.Billing.ReconcileInterval <= 0 {
		cfg.Billing.ReconcileInterval = time.Minute
	}
	if cfg.Billing.ReconcileAfter <= 0 {
		cfg.Billing.ReconcileAfter = 10 * time.Minute
	}
	if cfg.Billing.ExpiryInterval <= 0 {
		cfg.Billing.ExpiryInterval = time.Hour
	}
	if cfg.Billing.ReceiptMaxBytes <= 0 {
		cfg.Billing.ReceiptMaxBytes = 5 << 20
	}
	if cfg.Billing.ReceiptDir == "" {
		cfg.Billing.ReceiptDir = "media/receipts"
	}
	if cfg.Billing.ReceiptsPerHour <= 0 {
		cfg.Billing.ReceiptsPerHour = 10
	}
	if cfg.Billing.DefaultReturnURL == "" {
		cfg.Billing.DefaultReturnURL = "http://localhost:3000/dashboard/billing"
	}
	if cfg.Payment.Stripe.Currency == "" {
		cfg.Payment.Stripe.Currency = strings.ToLower(cfg.Billing.Currency)
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
