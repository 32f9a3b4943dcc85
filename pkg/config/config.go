package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Ledger        LedgerConfig
	Estimator     EstimatorConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Bootstrap     BootstrapConfig
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
	Env          string   `envconfig:"MPADCS_APP_ENV" required:"true"`
	Port         string   `envconfig:"MPADCS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"MPADCS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"MPADCS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"MPADCS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MPADCS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MPADCS_DB_DSN"`
	Driver string `envconfig:"MPADCS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MPADCS_DB_HOST"`
	LegacyPort     int    `envconfig:"MPADCS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MPADCS_DB_USER"`
	LegacyPassword string `envconfig:"MPADCS_DB_PASSWORD"`
	LegacyName     string `envconfig:"MPADCS_DB_NAME"`
	LegacySSLMode  string `envconfig:"MPADCS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MPADCS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MPADCS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MPADCS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MPADCS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the embedded sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MPADCS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MPADCS_REDIS_ADDR"`
	Password     string        `envconfig:"MPADCS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MPADCS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MPADCS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MPADCS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MPADCS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MPADCS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MPADCS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MPADCS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MPADCS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MPADCS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MPADCS_REFRESH_TOKEN_TTL_MINUTES" default:"720"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MPADCS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MPADCS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MPADCS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MPADCS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MPADCS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"MPADCS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginStaffLimit  int           `envconfig:"MPADCS_AUTH_RATE_LIMIT_LOGIN_STAFF_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"MPADCS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RefreshWindow    time.Duration `envconfig:"MPADCS_AUTH_RATE_LIMIT_REFRESH_WINDOW" default:"1m"`
	RefreshIPLimit   int           `envconfig:"MPADCS_AUTH_RATE_LIMIT_REFRESH_IP_LIMIT" default:"30"`
	IdempotencyTTL   time.Duration `envconfig:"MPADCS_IDEMPOTENCY_TTL" default:"24h"`
	DispenseDedupTTL time.Duration `envconfig:"MPADCS_DISPENSE_IDEMPOTENCY_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"MPADCS_AUTO_MIGRATE" default:"false"`
	SeedDefaults bool `envconfig:"MPADCS_SEED_DEFAULTS" default:"true"`
}

// LedgerConfig selects how per-medication mutations are serialized.
type LedgerConfig struct {
	LockMode string        `envconfig:"MPADCS_LEDGER_LOCK" default:"local"`
	LockTTL  time.Duration `envconfig:"MPADCS_LEDGER_LOCK_TTL" default:"2m"`
	LockWait time.Duration `envconfig:"MPADCS_LEDGER_LOCK_RETRY" default:"50ms"`
}

// UsesRedisLock reports whether mutations are serialized across API replicas.
func (l LedgerConfig) UsesRedisLock() bool {
	return strings.EqualFold(strings.TrimSpace(l.LockMode), LedgerLockRedis)
}

type EstimatorConfig struct {
	APIKey  string        `envconfig:"MPADCS_GEMINI_API_KEY"`
	BaseURL string        `envconfig:"MPADCS_GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/"`
	Model   string        `envconfig:"MPADCS_GEMINI_MODEL" default:"gemini-2.5-flash"`
	Timeout time.Duration `envconfig:"MPADCS_ESTIMATOR_TIMEOUT" default:"20s"`
}

// Enabled reports whether an optical estimator is configured.
func (e EstimatorConfig) Enabled() bool {
	return strings.TrimSpace(e.APIKey) != ""
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MPADCS_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"MPADCS_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	InventoryTopic string `envconfig:"MPADCS_PUBSUB_INVENTORY_TOPIC" default:"mpadcs-inventory-events"`
	WorkflowTopic  string `envconfig:"MPADCS_PUBSUB_WORKFLOW_TOPIC" default:"mpadcs-workflow-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MPADCS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MPADCS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MPADCS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"MPADCS_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MPADCS_CRON_INTERVAL" default:"1h"`
}

// BootstrapConfig seeds the first administrator when the staff table is empty.
type BootstrapConfig struct {
	AdminStaffNumber string `envconfig:"MPADCS_BOOTSTRAP_ADMIN_ID"`
	AdminPassword    string `envconfig:"MPADCS_BOOTSTRAP_ADMIN_PASSWORD"`
	AdminName        string `envconfig:"MPADCS_BOOTSTRAP_ADMIN_NAME" default:"Unit Administrator"`
}

// Enabled reports whether bootstrap credentials were supplied.
func (b BootstrapConfig) Enabled() bool {
	return strings.TrimSpace(b.AdminStaffNumber) != "" && b.AdminPassword != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
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
