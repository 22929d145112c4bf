package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	JWT    JWTConfig
	GCP    GCPConfig
	PubSub PubSubConfig
	PayPal PayPalConfig
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
	Env          string `envconfig:"AVAILPAYPAL_APP_ENV" required:"true"`
	Port         string `envconfig:"AVAILPAYPAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AVAILPAYPAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AVAILPAYPAL_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"AVAILPAYPAL_APP_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AVAILPAYPAL_DB_DSN"`
	Driver string `envconfig:"AVAILPAYPAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AVAILPAYPAL_DB_HOST"`
	LegacyPort     int    `envconfig:"AVAILPAYPAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AVAILPAYPAL_DB_USER"`
	LegacyPassword string `envconfig:"AVAILPAYPAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"AVAILPAYPAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"AVAILPAYPAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AVAILPAYPAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AVAILPAYPAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AVAILPAYPAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AVAILPAYPAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AVAILPAYPAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AVAILPAYPAL_REDIS_ADDR"`
	Password     string        `envconfig:"AVAILPAYPAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"AVAILPAYPAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AVAILPAYPAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AVAILPAYPAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AVAILPAYPAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AVAILPAYPAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AVAILPAYPAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AVAILPAYPAL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AVAILPAYPAL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AVAILPAYPAL_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AVAILPAYPAL_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"AVAILPAYPAL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AVAILPAYPAL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	MessageTopic string `envconfig:"AVAILPAYPAL_PUBSUB_MESSAGE_TOPIC" default:"availpaypal-messages"`
}

// PayPalConfig selects the gateway endpoint used for IPN verification.
type PayPalConfig struct {
	UseSandbox    bool          `envconfig:"AVAILPAYPAL_PAYPAL_USE_SANDBOX" default:"false"`
	VerifyTimeout time.Duration `envconfig:"AVAILPAYPAL_PAYPAL_VERIFY_TIMEOUT" default:"30s"`
}

func (p PayPalConfig) Environment() string {
	if p.UseSandbox {
		return "sandbox"
	}
	return "production"
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
