package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Attribution  AttributionConfig
	Settlement   SettlementConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Eventing     EventingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PARTNERLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"PARTNERLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PARTNERLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PARTNERLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PARTNERLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PARTNERLEDGER_DB_DSN"`
	Driver string `envconfig:"PARTNERLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PARTNERLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"PARTNERLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARTNERLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"PARTNERLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARTNERLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARTNERLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARTNERLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARTNERLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARTNERLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARTNERLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARTNERLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PARTNERLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"PARTNERLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARTNERLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARTNERLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARTNERLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARTNERLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARTNERLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARTNERLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PARTNERLEDGER_AUTO_MIGRATE" default:"false"`
}

// AttributionConfig carries fallback attribution settings used when a link
// does not define its own window.
type AttributionConfig struct {
	DefaultWindowDays int `envconfig:"PARTNERLEDGER_ATTRIBUTION_DEFAULT_WINDOW_DAYS" default:"30"`
}

// SettlementConfig tunes the affiliate batcher and multi-party engine.
type SettlementConfig struct {
	PaymentDueDays  int    `envconfig:"PARTNERLEDGER_SETTLEMENT_PAYMENT_DUE_DAYS" default:"15"`
	PlatformFeeBP   int    `envconfig:"PARTNERLEDGER_SETTLEMENT_PLATFORM_FEE_BP" default:"0"`
	BatchChunkLimit int    `envconfig:"PARTNERLEDGER_SETTLEMENT_BATCH_CHUNK_LIMIT" default:"500"`
	PlatformPartyID string `envconfig:"PARTNERLEDGER_SETTLEMENT_PLATFORM_PARTY_ID" default:"00000000-0000-0000-0000-000000000001"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PARTNERLEDGER_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PARTNERLEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PARTNERLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"PARTNERLEDGER_PUBSUB_DOMAIN_TOPIC" default:"pl-domain-events"`
	DomainSubscription string `envconfig:"PARTNERLEDGER_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PARTNERLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PARTNERLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PARTNERLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PARTNERLEDGER_CRON_INTERVAL" default:"24h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PARTNERLEDGER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
