// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Interbank   InterbankConfig
	MercadoPago MercadoPagoConfig
	Pagarme     PagarmeConfig
	Billing     BillingConfig
	Referral    ReferralConfig
	Notifier    NotifierConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// InterbankConfig holds the PIX issuing bank credentials. Tokens are obtained
// via client-credentials OAuth and cached until expiry.
type InterbankConfig struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	PixKey        string
	WebhookSecret string
	MerchantName  string
	MerchantCity  string
}

type MercadoPagoConfig struct {
	BaseURL       string
	AccessToken   string
	WebhookSecret string
}

type PagarmeConfig struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
}

type BillingConfig struct {
	BaseFee       decimal.Decimal
	PlanID        string
	PeriodDays    int
	ChargeExpiry  time.Duration
	SweepInterval time.Duration
}

type ReferralConfig struct {
	BaseURL string
}

type NotifierConfig struct {
	BaseURL string
}

func Load() (*Config, error) {
	baseFee, err := decimal.NewFromString(getEnv("BILLING_BASE_FEE", "35.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid BILLING_BASE_FEE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8031"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "billing"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "redis:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Interbank: InterbankConfig{
			BaseURL:       getEnv("INTER_BASE_URL", "https://cdpj.partners.bancointer.com.br"),
			ClientID:      getEnv("INTER_CLIENT_ID", ""),
			ClientSecret:  getEnv("INTER_CLIENT_SECRET", ""),
			PixKey:        getEnv("INTER_PIX_KEY", ""),
			WebhookSecret: getEnv("INTER_WEBHOOK_SECRET", ""),
			MerchantName:  getEnv("PIX_MERCHANT_NAME", "Recebedor"),
			MerchantCity:  getEnv("PIX_MERCHANT_CITY", "Cidade"),
		},
		MercadoPago: MercadoPagoConfig{
			BaseURL:       getEnv("MERCADO_PAGO_BASE_URL", "https://api.mercadopago.com"),
			AccessToken:   getEnv("MERCADO_PAGO_ACCESS_TOKEN", ""),
			WebhookSecret: getEnv("MERCADO_PAGO_WEBHOOK_SECRET", ""),
		},
		Pagarme: PagarmeConfig{
			BaseURL:       getEnv("PAGARME_BASE_URL", "https://api.pagar.me/core/v5"),
			SecretKey:     getEnv("PAGARME_SECRET_KEY", ""),
			WebhookSecret: getEnv("PAGARME_WEBHOOK_SECRET", ""),
		},
		Billing: BillingConfig{
			BaseFee:       baseFee,
			PlanID:        getEnv("BILLING_PLAN_ID", "monthly"),
			PeriodDays:    getEnvInt("BILLING_PERIOD_DAYS", 30),
			ChargeExpiry:  getEnvDuration("CHARGE_EXPIRY", time.Hour),
			SweepInterval: getEnvDuration("EXPIRY_SWEEP_INTERVAL", 5*time.Minute),
		},
		Referral: ReferralConfig{
			BaseURL: getEnv("REFERRAL_SERVICE_URL", "http://referral-service:8032"),
		},
		Notifier: NotifierConfig{
			BaseURL: getEnv("NOTIFIER_SERVICE_URL", "http://notification-service:8033"),
		},
	}

	if cfg.Billing.PeriodDays <= 0 {
		return nil, fmt.Errorf("BILLING_PERIOD_DAYS must be positive")
	}

	return cfg, nil
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
