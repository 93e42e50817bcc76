package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "marketplace"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Marketplace MarketplaceConfig
	Carriers    CarriersConfig
	GCP         GCPConfig
	PubSub      PubSubConfig
	Outbox      OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Marketplace.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETPLACE_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETPLACE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MARKETPLACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETPLACE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETPLACE_DB_DSN" required:"true"`
	Driver string `envconfig:"MARKETPLACE_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"MARKETPLACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETPLACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETPLACE_REDIS_URL"`
	Address      string        `envconfig:"MARKETPLACE_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETPLACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETPLACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETPLACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETPLACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETPLACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MARKETPLACE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARKETPLACE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MARKETPLACE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// MarketplaceConfig carries the business-policy knobs the fulfillment and
// payout core consumes.
type MarketplaceConfig struct {
	MinPayoutCents           int `envconfig:"MARKETPLACE_MIN_PAYOUT_CENTS" default:"5000"`
	HoldingPeriodDays        int `envconfig:"MARKETPLACE_HOLDING_PERIOD_DAYS" default:"7"`
	MaxDeliveryAttempts      int `envconfig:"MARKETPLACE_MAX_DELIVERY_ATTEMPTS" default:"3"`
	DefaultCommissionBps     int `envconfig:"MARKETPLACE_DEFAULT_COMMISSION_BPS" default:"1500"`
	PayoutFeeFlatCents       int `envconfig:"MARKETPLACE_PAYOUT_FEE_FLAT_CENTS" default:"0"`
	PayoutFeeBps             int `envconfig:"MARKETPLACE_PAYOUT_FEE_BPS" default:"0"`
	PayoutClaimRetries       int `envconfig:"MARKETPLACE_PAYOUT_CLAIM_RETRIES" default:"3"`
	CODMismatchToleranceCent int `envconfig:"MARKETPLACE_COD_MISMATCH_TOLERANCE_CENTS" default:"0"`
	CODReconcileAfterDays    int `envconfig:"MARKETPLACE_COD_RECONCILE_AFTER_DAYS" default:"3"`
}

// HoldingPeriod returns the configured holding period as a duration.
func (m MarketplaceConfig) HoldingPeriod() time.Duration {
	return time.Duration(m.HoldingPeriodDays) * 24 * time.Hour
}

func (m MarketplaceConfig) validate() error {
	if m.MinPayoutCents < 0 {
		return fmt.Errorf("minimum payout must not be negative")
	}
	if m.HoldingPeriodDays < 0 {
		return fmt.Errorf("holding period must not be negative")
	}
	if m.MaxDeliveryAttempts < 1 {
		return fmt.Errorf("max delivery attempts must be at least 1")
	}
	if m.DefaultCommissionBps < 0 || m.DefaultCommissionBps > 10000 {
		return fmt.Errorf("default commission rate must be between 0 and 10000 basis points")
	}
	if m.PayoutFeeBps < 0 || m.PayoutFeeBps > 10000 {
		return fmt.Errorf("payout fee rate must be between 0 and 10000 basis points")
	}
	return nil
}

// CarriersConfig holds per-carrier upstream endpoints and credentials.
type CarriersConfig struct {
	HTTPTimeout time.Duration `envconfig:"MARKETPLACE_CARRIER_HTTP_TIMEOUT" default:"10s"`

	DHLBaseURL   string `envconfig:"MARKETPLACE_CARRIER_DHL_BASE_URL" default:"https://api-eu.dhl.com/track/shipments"`
	DHLAPIKey    string `envconfig:"MARKETPLACE_CARRIER_DHL_API_KEY"`
	FedExBaseURL string `envconfig:"MARKETPLACE_CARRIER_FEDEX_BASE_URL" default:"https://apis.fedex.com/track/v1/trackingnumbers"`
	FedExAPIKey  string `envconfig:"MARKETPLACE_CARRIER_FEDEX_API_KEY"`
	UPSBaseURL   string `envconfig:"MARKETPLACE_CARRIER_UPS_BASE_URL" default:"https://onlinetools.ups.com/api/track/v1/details"`
	UPSAPIKey    string `envconfig:"MARKETPLACE_CARRIER_UPS_API_KEY"`
	USPSBaseURL  string `envconfig:"MARKETPLACE_CARRIER_USPS_BASE_URL" default:"https://api.usps.com/tracking/v3/tracking"`
	USPSAPIKey   string `envconfig:"MARKETPLACE_CARRIER_USPS_API_KEY"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MARKETPLACE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MARKETPLACE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MARKETPLACE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"MARKETPLACE_PUBSUB_DOMAIN_TOPIC" default:"marketplace-domain-events"`
	DomainSubscription string `envconfig:"MARKETPLACE_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"MARKETPLACE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"MARKETPLACE_OUTBOX_IDEMPOTENCY_TTL" default:"24h"`
}
