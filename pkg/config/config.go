package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the backend reads.
	EnvPrefix = "ZAYMART"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "ZAYMART_APP_ENV"
	EnvDBDSN  = "ZAYMART_DB_DSN"
	EnvDBHost = "ZAYMART_DB_HOST"
	EnvDBUser = "ZAYMART_DB_USER"
	EnvDBName = "ZAYMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Settlement   SettlementConfig
	Scheduler    SchedulerConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ZAYMART_APP_ENV" required:"true"`
	Port         string `envconfig:"ZAYMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ZAYMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZAYMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ZAYMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ZAYMART_DB_DSN"`
	Driver string `envconfig:"ZAYMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ZAYMART_DB_HOST"`
	LegacyPort     int    `envconfig:"ZAYMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ZAYMART_DB_USER"`
	LegacyPassword string `envconfig:"ZAYMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"ZAYMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"ZAYMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ZAYMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ZAYMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ZAYMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ZAYMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ZAYMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ZAYMART_REDIS_ADDR"`
	Password     string        `envconfig:"ZAYMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZAYMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZAYMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZAYMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZAYMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZAYMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZAYMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ZAYMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ZAYMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ZAYMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ZAYMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ZAYMART_AUTO_MIGRATE" default:"false"`
}

// SettlementConfig carries the commercial knobs of the ledger engine.
// Both values are policy inputs decided outside this subsystem.
type SettlementConfig struct {
	HoldWindow        time.Duration `envconfig:"ZAYMART_SETTLEMENT_HOLD_WINDOW" default:"240h"`
	CommissionPercent float64       `envconfig:"ZAYMART_SETTLEMENT_COMMISSION_PERCENT" default:"10"`
}

func (s SettlementConfig) validate() error {
	if s.HoldWindow <= 0 {
		return fmt.Errorf("settlement hold window must be positive")
	}
	if s.CommissionPercent < 0 || s.CommissionPercent >= 100 {
		return fmt.Errorf("settlement commission percent must be in [0, 100)")
	}
	return nil
}

type SchedulerConfig struct {
	Interval        time.Duration `envconfig:"ZAYMART_SCHEDULER_INTERVAL" default:"15m"`
	UnlockBatchSize int           `envconfig:"ZAYMART_SCHEDULER_UNLOCK_BATCH_SIZE" default:"500"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ZAYMART_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"ZAYMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	WalletTopic        string `envconfig:"ZAYMART_PUBSUB_WALLET_TOPIC" default:"zm-wallet-events"`
	OrdersTopic        string `envconfig:"ZAYMART_PUBSUB_ORDERS_TOPIC" default:"zm-order-events"`
	WalletSubscription string `envconfig:"ZAYMART_PUBSUB_WALLET_SUBSCRIPTION"`
	OrdersSubscription string `envconfig:"ZAYMART_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ZAYMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ZAYMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ZAYMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
