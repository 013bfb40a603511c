package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ticketing/gateway"
	"ticketing/pricing"
)

type Config struct {
	HTTPAddr       string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"HTTP listen address"`
	PostgresURL    string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address for event streams"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint, tracing is not exported when empty"`
	LogLevel       string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"logrus level"`

	Currency       string        `long:"currency" env:"CURRENCY" default:"nok" description:"ISO 4217 currency of all prices"`
	PaymentTimeout time.Duration `long:"payment-timeout" env:"PAYMENT_TIMEOUT" default:"10s" description:"timeout of every payment processor call"`
	DefaultVatRate string        `long:"default-vat-rate" env:"DEFAULT_VAT_RATE" default:"0.12" description:"VAT rate of regions without an override"`
	RegionVatRates []string      `long:"vat-rate" env:"VAT_RATES" env-delim:"," description:"per-region VAT override as REGION=RATE, may repeat"`

	Stripe struct {
		SecretKey     string `long:"secret-key" env:"SECRET_KEY" description:"Stripe API secret key"`
		WebhookSecret string `long:"webhook-secret" env:"WEBHOOK_SECRET" description:"Stripe webhook signing secret"`
		APIURL        string `long:"api-url" env:"API_URL" description:"Stripe API base URL override"`
	} `group:"Stripe" namespace:"stripe" env-namespace:"STRIPE"`

	SMTP struct {
		Host     string `long:"host" env:"HOST" default:"localhost" description:"SMTP host"`
		Port     int    `long:"port" env:"PORT" default:"587" description:"SMTP port"`
		Username string `long:"username" env:"USERNAME" description:"SMTP username, no auth when empty"`
		Password string `long:"password" env:"PASSWORD" description:"SMTP password"`
	} `group:"SMTP" namespace:"smtp" env-namespace:"SMTP"`

	MailFrom     string `long:"mail-from" env:"MAIL_FROM" default:"tickets@localhost" description:"sender address of notifications"`
	MailFromName string `long:"mail-from-name" env:"MAIL_FROM_NAME" default:"Tickets" description:"sender name of notifications"`
}

// Load parses args on top of the environment. Flags win over env vars.
func Load(args []string) (Config, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return Config{}, err
	}

	if cfg.PaymentTimeout <= 0 {
		return Config{}, fmt.Errorf("payment timeout must be positive, got %s", cfg.PaymentTimeout)
	}
	if _, err := cfg.VatRates(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) VatRates() (pricing.Rates, error) {
	defaultRate, err := decimal.NewFromString(c.DefaultVatRate)
	if err != nil {
		return pricing.Rates{}, fmt.Errorf("invalid default vat rate %q: %w", c.DefaultVatRate, err)
	}
	if defaultRate.IsNegative() || defaultRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return pricing.Rates{}, fmt.Errorf("default vat rate must be within [0, 1), got %s", defaultRate)
	}

	byRegion, err := pricing.ParseRegionRates(c.RegionVatRates)
	if err != nil {
		return pricing.Rates{}, err
	}

	return pricing.NewRates(defaultRate, byRegion), nil
}

func (c Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}

	return level, nil
}

func (c Config) StripeConfig() gateway.StripeConfig {
	return gateway.StripeConfig{
		SecretKey:     c.Stripe.SecretKey,
		WebhookSecret: c.Stripe.WebhookSecret,
		APIURL:        c.Stripe.APIURL,
	}
}

func (c Config) SMTPConfig() gateway.SMTPConfig {
	return gateway.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.MailFrom,
		FromName: c.MailFromName,
	}
}
