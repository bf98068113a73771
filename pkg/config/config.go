package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig namespace for every setting.
const EnvPrefix = "COMANDA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Terminal     TerminalConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COMANDA_APP_ENV" default:"dev"`
	Port         string `envconfig:"COMANDA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COMANDA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMANDA_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"COMANDA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig selects the embedded SQLite store by default; a Postgres DSN can
// be supplied for installs that already run a local server.
type DBConfig struct {
	Driver string `envconfig:"COMANDA_DB_DRIVER" default:"sqlite"`
	Path   string `envconfig:"COMANDA_DB_PATH" default:"comanda.db"`
	DSN    string `envconfig:"COMANDA_DB_DSN"`

	MaxOpenConns    int           `envconfig:"COMANDA_DB_MAX_OPEN_CONNS" default:"1"`
	MaxIdleConns    int           `envconfig:"COMANDA_DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"COMANDA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMANDA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d DBConfig) validate() error {
	switch d.Driver {
	case DBDriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case DBDriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("postgres DSN is required")
		}
	default:
		return fmt.Errorf("unsupported db driver %q", d.Driver)
	}
	return nil
}

// RedisConfig backs the idempotency store for the LAN ordering terminal.
// Leaving the URL empty disables idempotency replay protection.
type RedisConfig struct {
	URL          string        `envconfig:"COMANDA_REDIS_URL"`
	PoolSize     int           `envconfig:"COMANDA_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"COMANDA_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"COMANDA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMANDA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMANDA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// TerminalConfig covers device tokens for the network ordering terminal.
type TerminalConfig struct {
	JWTSecret       string `envconfig:"COMANDA_TERMINAL_JWT_SECRET"`
	JWTIssuer       string `envconfig:"COMANDA_TERMINAL_JWT_ISSUER" default:"comanda"`
	TokenTTLMinutes int    `envconfig:"COMANDA_TERMINAL_TOKEN_TTL_MINUTES" default:"43200"`
	EnrollCode      string `envconfig:"COMANDA_TERMINAL_ENROLL_CODE"`
}

// TokenTTL returns the terminal token TTL configured in minutes.
func (t TerminalConfig) TokenTTL() time.Duration {
	if t.TokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(t.TokenTTLMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COMANDA_FEATURE_AUTO_MIGRATE" default:"true"`
}
